package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/marketsim/params"
	"github.com/uhyunpark/marketsim/pkg/api"
	"github.com/uhyunpark/marketsim/pkg/app/core/market"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
	"github.com/uhyunpark/marketsim/pkg/decision"
	"github.com/uhyunpark/marketsim/pkg/metrics"
	"github.com/uhyunpark/marketsim/pkg/publish"
	"github.com/uhyunpark/marketsim/pkg/sim"
	"github.com/uhyunpark/marketsim/pkg/storage"
	"github.com/uhyunpark/marketsim/pkg/util"
)

const publishTimeout = 5 * time.Second

func main() {
	opts, err := parseArgs(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("arguments: %v", err)
	}

	// Load config from .env file and environment variables
	cfg, err := params.LoadFromEnv(opts.envPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	opts.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.Output)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if err := run(cfg, sugar); err != nil {
		sugar.Fatalw("simulation_failed", "err", err)
	}
}

func newLogger(out params.Output) (*zap.Logger, error) {
	level, err := util.ParseLevel(out.LogLevel)
	if err != nil {
		return nil, err
	}
	if out.LogFile != "" {
		return util.NewLoggerWithFile(out.LogFile, level)
	}
	return util.NewLogger(level)
}

func newProvider(cfg params.Config, sugar *zap.SugaredLogger) (decision.Provider, error) {
	switch cfg.Decision.Provider {
	case params.ProviderAnthropic:
		p, err := decision.NewAnthropicProvider(decision.AnthropicConfig{
			APIKey:      cfg.Anthropic.APIKey,
			Model:       cfg.Anthropic.Model,
			BaseURL:     cfg.Anthropic.BaseURL,
			MaxTokens:   cfg.Anthropic.MaxTokens,
			Temperature: cfg.Anthropic.Temperature,
			MaxRetries:  cfg.Anthropic.MaxRetries,
			Timeout:     cfg.Decision.Timeout,
			Debug:       cfg.Decision.Debug,
		}, sugar)
		if err != nil {
			return nil, err
		}
		return p, nil
	case params.ProviderHeuristic:
		return decision.NewHeuristicProvider(cfg.Simulation.Seed), nil
	}
	return nil, fmt.Errorf("unknown decision provider %q", cfg.Decision.Provider)
}

func run(cfg params.Config, sugar *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	participants, err := newRoster(defaultRoster)
	if err != nil {
		return err
	}
	provider, err := newProvider(cfg, sugar)
	if err != nil {
		return err
	}

	journal, err := storage.OpenJournal(cfg.Output.JournalPath)
	if err != nil {
		return err
	}
	defer journal.Close()
	sugar.Infow("journal_opened", "path", cfg.Output.JournalPath, "run_id", journal.RunID())

	m := metrics.New()
	s, err := sim.New(sim.Options{
		Market:       market.NewMarket(cfg.Simulation.Commodity),
		Participants: participants,
		Provider:     provider,
		Logger:       sugar,
		Metrics:      m,
		Journal:      journal,
		Concurrency:  cfg.Simulation.DecisionConcurrency,
		RoundDelay:   cfg.Simulation.RoundDelay,
		Clock:        util.RealClock{},
	})
	if err != nil {
		return err
	}

	var onTrade []func(orderbook.Trade)
	onRound := []func(sim.RoundReport){func(r sim.RoundReport) { printRound(os.Stdout, r) }}

	// ---- API Server (optional) ----
	if cfg.Output.APIAddr != "" {
		apiServer := api.NewServer(s, sugar)
		go func() {
			if err := apiServer.Start(cfg.Output.APIAddr); err != nil {
				sugar.Errorw("api_server_failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = apiServer.Shutdown(shutdownCtx)
		}()
		onTrade = append(onTrade, apiServer.BroadcastTrade)
		onRound = append(onRound, apiServer.BroadcastRound)
	}

	// ---- Kafka (optional) ----
	if len(cfg.Output.KafkaBrokers) > 0 {
		pub := publish.NewKafkaPublisher(cfg.Output.KafkaBrokers, cfg.Output.KafkaTopic, cfg.Simulation.Commodity)
		defer pub.Close()
		sugar.Infow("kafka_publisher_enabled", "brokers", cfg.Output.KafkaBrokers, "topic", cfg.Output.KafkaTopic)
		onRound = append(onRound, func(r sim.RoundReport) { publishRound(pub, r, sugar) })
	}

	s.OnTrade = func(t orderbook.Trade) {
		for _, fn := range onTrade {
			fn(t)
		}
	}
	s.OnRound = func(r sim.RoundReport) {
		for _, fn := range onRound {
			fn(r)
		}
	}

	fmt.Printf("=== %s market: %d participants, %d rounds, %s provider ===\n",
		cfg.Simulation.Commodity, participants.Count(), cfg.Simulation.Rounds, cfg.Decision.Provider)

	stats, err := s.Run(ctx, cfg.Simulation.Rounds)
	printStats(os.Stdout, stats)
	if err != nil && ctx.Err() != nil {
		sugar.Infow("simulation_interrupted", "rounds", stats.Rounds)
		return nil
	}
	return err
}

func publishRound(pub *publish.Publisher, r sim.RoundReport, sugar *zap.SugaredLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := pub.PublishTrades(ctx, r.Trades); err != nil {
		sugar.Warnw("kafka_publish_failed", "round", r.Round, "err", err)
		return
	}
	ev := publish.RoundEvent{
		Round:     r.Round,
		Submitted: r.Submitted,
		Rejected:  r.Rejected,
		Dropped:   r.Dropped,
		Trades:    len(r.Trades),
		Volume:    r.Volume(),
	}
	if r.Summary.LastPrice != nil {
		ev.LastPrice = r.Summary.LastPrice.StringFixed(2)
	}
	if err := pub.PublishRound(ctx, ev); err != nil {
		sugar.Warnw("kafka_publish_failed", "round", r.Round, "err", err)
	}
}
