package decision

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/uhyunpark/marketsim/pkg/app/core/account"
	"github.com/uhyunpark/marketsim/pkg/app/core/market"
	"github.com/uhyunpark/marketsim/pkg/app/core/orderbook"
)

const (
	DefaultAnthropicURL = "https://api.anthropic.com"
	DefaultModel        = "claude-3-5-haiku-20241022"
)

var errNoText = errors.New("response has no text content")

type AnthropicConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	MaxRetries  int           // SDK retries on 429/5xx, zero disables
	Timeout     time.Duration // per request, zero disables
	Debug       bool          // log prompts and replies
}

// AnthropicProvider asks a Claude model for each decision over the
// Messages API.
type AnthropicProvider struct {
	cfg    AnthropicConfig
	client anthropic.Client
	log    *zap.SugaredLogger
}

func NewAnthropicProvider(cfg AnthropicConfig, logger *zap.SugaredLogger) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAnthropicURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 200
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		// request paths are resolved relative to the base
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"),
		option.WithMaxRetries(cfg.MaxRetries),
	)
	return &AnthropicProvider{
		cfg:    cfg,
		client: client,
		log:    logger,
	}, nil
}

func (p *AnthropicProvider) Decide(ctx context.Context, state account.StateSummary, summary market.Summary) (*orderbook.Order, error) {
	prompt := BuildPrompt(state, summary)
	if p.cfg.Debug {
		p.log.Debugw("decision_prompt", "participant", state.ID, "round", summary.Round, "prompt", prompt)
	}

	reply, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, &ProviderError{Participant: state.ID, Op: "request", Err: err}
	}
	if p.cfg.Debug {
		p.log.Debugw("decision_reply", "participant", state.ID, "round", summary.Round, "reply", reply)
	}

	order, err := ParseDecision(state.ID, reply, state)
	if err != nil {
		return nil, &ProviderError{Participant: state.ID, Op: "parse", Err: err}
	}
	return order, nil
}

func (p *AnthropicProvider) complete(ctx context.Context, prompt string) (string, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.cfg.Model),
		MaxTokens:   int64(p.cfg.MaxTokens),
		Temperature: anthropic.Float(p.cfg.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errNoText
}
