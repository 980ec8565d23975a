// Package sim drives a market through rounds of decide, submit, match and
// clear.
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uhyunpark/marketsim/pkg/app/core/account"
	"github.com/uhyunpark/marketsim/pkg/app/core/market"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
	"github.com/uhyunpark/marketsim/pkg/decision"
	"github.com/uhyunpark/marketsim/pkg/metrics"
	"github.com/uhyunpark/marketsim/pkg/storage"
	"github.com/uhyunpark/marketsim/pkg/util"
)

type Options struct {
	Market       *market.Market
	Participants *account.Registry
	Provider     decision.Provider

	// Optional.
	Logger      *zap.SugaredLogger
	Metrics     *metrics.Metrics
	Journal     *storage.Journal
	Concurrency int           // parallel provider calls, default 1
	RoundDelay  time.Duration // pause between rounds in Run
	Clock       util.Clock
}

// Simulator owns the round loop. Run and RunRound must not be called
// concurrently; readers may inspect the market and participants at any time.
type Simulator struct {
	market       *market.Market
	participants *account.Registry
	provider     decision.Provider

	log         *zap.SugaredLogger
	metrics     *metrics.Metrics
	journal     *storage.Journal
	concurrency int
	delay       time.Duration
	clock       util.Clock

	round   int64 // round being played; read by onDrop under the market lock
	dropped int   // orders dropped in the current matching pass

	// Hooks run on the driver goroutine after each round is matched.
	OnTrade func(orderbook.Trade)
	OnRound func(RoundReport)
}

// DecisionResult is one participant's outcome of the decision phase.
type DecisionResult struct {
	Participant string           `json:"participant"`
	Order       *orderbook.Order `json:"order,omitempty"` // nil means hold
	Err         error            `json:"-"`
	Error       string           `json:"error,omitempty"`
}

type RoundReport struct {
	Round     int64             `json:"round"`
	Decisions []DecisionResult  `json:"decisions"`
	Submitted int               `json:"submitted"`
	Rejected  int               `json:"rejected"`
	Dropped   int               `json:"dropped"`
	Trades    []orderbook.Trade `json:"trades"`
	Summary   market.Summary    `json:"summary"` // after matching
	Started   time.Time         `json:"started"`
	Finished  time.Time         `json:"finished"`
}

// Volume is the number of units traded in the round.
func (r RoundReport) Volume() int64 {
	var v int64
	for _, t := range r.Trades {
		v += t.Quantity
	}
	return v
}

func New(opts Options) (*Simulator, error) {
	if opts.Market == nil {
		return nil, errors.New("sim: market is required")
	}
	if opts.Participants == nil {
		return nil, errors.New("sim: participants are required")
	}
	if opts.Provider == nil {
		return nil, errors.New("sim: decision provider is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Clock == nil {
		opts.Clock = util.RealClock{}
	}

	s := &Simulator{
		market:       opts.Market,
		participants: opts.Participants,
		provider:     opts.Provider,
		log:          opts.Logger,
		metrics:      opts.Metrics,
		journal:      opts.Journal,
		concurrency:  opts.Concurrency,
		delay:        opts.RoundDelay,
		clock:        opts.Clock,
	}

	prev := s.market.OnDrop
	s.market.OnDrop = func(o orderbook.Order, reason error) {
		if prev != nil {
			prev(o, reason)
		}
		s.onDrop(o, reason)
	}
	return s, nil
}

func (s *Simulator) Market() *market.Market          { return s.market }
func (s *Simulator) Participants() *account.Registry { return s.participants }
func (s *Simulator) Journal() *storage.Journal       { return s.journal }
func (s *Simulator) Metrics() *metrics.Metrics       { return s.metrics }

// Run plays rounds following the market's current round and returns the
// final statistics. Cancellation is honoured between rounds only; a round
// that has started always completes.
func (s *Simulator) Run(ctx context.Context, rounds int) (Stats, error) {
	start := s.market.Round() + 1
	s.log.Infow("simulation_started", "commodity", s.market.Commodity(), "rounds", rounds, "participants", s.participants.Count())

	for i := 0; i < rounds; i++ {
		if i > 0 && s.delay > 0 {
			select {
			case <-ctx.Done():
				return s.Stats(), ctx.Err()
			case <-s.clock.After(s.delay):
			}
		}
		if _, err := s.RunRound(ctx, start+int64(i)); err != nil {
			return s.Stats(), err
		}
	}

	stats := s.Stats()
	s.log.Infow("simulation_finished", "rounds", stats.Rounds, "trades", stats.TradeCount, "volume", stats.Volume)
	return stats, nil
}

// RunRound plays a single round: every participant decides against the same
// market summary, orders are submitted in roster order, the book is matched
// and then cleared.
func (s *Simulator) RunRound(ctx context.Context, round int64) (RoundReport, error) {
	if err := ctx.Err(); err != nil {
		return RoundReport{Round: round}, err
	}

	report := RoundReport{Round: round, Started: s.clock.Now()}
	s.round = round
	s.market.SetRound(round)
	summary := s.market.Summary()
	participants := s.participants.List()

	s.log.Infow("round_started", "round", round, "participants", len(participants),
		"last_price", priceField(summary.LastPrice), "avg_recent_price", priceField(summary.AvgRecentPrice))

	report.Decisions = s.collectDecisions(ctx, participants, summary)

	for _, d := range report.Decisions {
		if d.Order == nil {
			continue
		}
		o := *d.Order
		o.ParticipantID = d.Participant // a provider only trades for the participant it was asked about
		o.ID, o.Seq = "", 0

		accepted, err := s.market.SubmitOrder(o)
		if err != nil {
			report.Rejected++
			s.log.Warnw("order_rejected", "round", round, "participant", d.Participant, "order", o.String(), "error", err)
			if s.metrics != nil {
				s.metrics.OrderRejected(o.Side)
			}
			continue
		}
		report.Submitted++
		s.log.Debugw("order_submitted", "round", round, "order", accepted.String())
		if s.metrics != nil {
			s.metrics.OrderSubmitted(accepted.Side)
		}
	}

	s.dropped = 0
	report.Trades = s.market.MatchOrders(s.participants)
	report.Dropped = s.dropped
	report.Summary = s.market.Summary()

	for _, t := range report.Trades {
		s.log.Infow("trade_executed", "round", round, "trade_id", t.ID, "buyer", t.BuyerID, "seller", t.SellerID,
			"quantity", t.Quantity, "price", t.Price.StringFixed(2))
	}

	if s.journal != nil {
		if err := s.journal.RecordRound(round, report.Trades, s.participants.Summaries()); err != nil {
			s.log.Warnw("journal_write_failed", "round", round, "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveTrades(report.Trades)
		s.metrics.Rounds.Inc()
	}

	s.market.ClearOrders()
	report.Finished = s.clock.Now()

	if s.OnTrade != nil {
		for _, t := range report.Trades {
			s.OnTrade(t)
		}
	}
	if s.OnRound != nil {
		s.OnRound(report)
	}

	s.log.Infow("round_finished", "round", round, "submitted", report.Submitted, "rejected", report.Rejected,
		"dropped", report.Dropped, "trades", len(report.Trades), "volume", report.Volume())
	return report, nil
}

// collectDecisions asks the provider for every participant, at most
// concurrency at a time. Results are indexed by roster position so the
// submission order never depends on scheduling. A failing provider call
// counts as hold.
func (s *Simulator) collectDecisions(ctx context.Context, participants []*account.Participant, summary market.Summary) []DecisionResult {
	results := make([]DecisionResult, len(participants))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, p := range participants {
		i := i
		state := p.StateSummary()
		g.Go(func() error {
			start := s.clock.Now()
			order, err := s.decide(ctx, state, summary)
			if s.metrics != nil {
				s.metrics.DecisionSeconds.Observe(s.clock.Now().Sub(start).Seconds())
			}

			res := DecisionResult{Participant: state.ID, Order: order}
			if err != nil {
				res.Order, res.Err, res.Error = nil, err, err.Error()
				s.log.Warnw("decision_failed", "round", summary.Round, "participant", state.ID, "error", err)
				if s.metrics != nil {
					s.metrics.DecisionErrors.Inc()
				}
			} else if order == nil {
				s.log.Debugw("decision_hold", "round", summary.Round, "participant", state.ID)
			} else {
				s.log.Debugw("decision_order", "round", summary.Round, "participant", state.ID, "order", order.String())
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors

	return results
}

// decide shields the round from a provider that panics.
func (s *Simulator) decide(ctx context.Context, state account.StateSummary, summary market.Summary) (order *orderbook.Order, err error) {
	defer func() {
		if r := recover(); r != nil {
			order = nil
			err = &decision.ProviderError{Participant: state.ID, Op: "panic", Err: fmt.Errorf("%v", r)}
		}
	}()
	return s.provider.Decide(ctx, state, summary)
}

func (s *Simulator) onDrop(o orderbook.Order, reason error) {
	s.dropped++
	label := dropReason(reason)
	s.log.Infow("order_dropped", "round", s.round, "order_id", o.ID, "participant", o.ParticipantID,
		"side", o.Side.String(), "reason", label)
	if s.metrics != nil {
		s.metrics.OrderDropped(o.Side, label)
	}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, account.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, account.ErrInsufficientInventory):
		return "insufficient_inventory"
	case errors.Is(err, market.ErrUnknownParticipant):
		return "unknown_participant"
	}
	return "other"
}
