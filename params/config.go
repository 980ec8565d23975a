package params

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderHeuristic = "heuristic"
	ProviderAnthropic = "anthropic"
)

type Simulation struct {
	Commodity           string
	Rounds              int
	DecisionConcurrency int
	// RoundDelay pauses between rounds so API/WebSocket watchers can follow
	// along. Zero runs rounds back to back.
	RoundDelay time.Duration
	Seed       int64
}

type Decision struct {
	Provider string
	Timeout  time.Duration
	Debug    bool
}

type Anthropic struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	BaseURL     string
	MaxRetries  int
}

type Output struct {
	APIAddr     string // empty disables the HTTP/WS API
	JournalPath string // empty keeps the journal in memory
	LogFile     string
	LogLevel    string

	KafkaBrokers []string // empty disables publishing
	KafkaTopic   string
}

type Config struct {
	Simulation Simulation
	Decision   Decision
	Anthropic  Anthropic
	Output     Output
}

func Default() Config {
	return Config{
		Simulation: Simulation{
			Commodity:           "wheat",
			Rounds:              5,
			DecisionConcurrency: 4,
			Seed:                1,
		},
		Decision: Decision{
			Provider: ProviderHeuristic,
			Timeout:  30 * time.Second,
		},
		Anthropic: Anthropic{
			Model:       "claude-3-5-haiku-20241022",
			MaxTokens:   200,
			Temperature: 0.7,
			BaseURL:     "https://api.anthropic.com",
			MaxRetries:  2,
		},
		Output: Output{
			LogLevel:   "info",
			KafkaTopic: "marketsim.events",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	// .env is optional
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	var errs []string
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q: not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	setMillis := func(key string, dst *time.Duration) {
		var ms int
		if os.Getenv(key) == "" {
			return
		}
		setInt(key, &ms)
		*dst = time.Duration(ms) * time.Millisecond
	}

	cfg.Simulation.Commodity = getEnv("SIM_COMMODITY", cfg.Simulation.Commodity)
	setInt("SIM_ROUNDS", &cfg.Simulation.Rounds)
	setInt("SIM_DECISION_CONCURRENCY", &cfg.Simulation.DecisionConcurrency)
	setMillis("SIM_ROUND_DELAY_MS", &cfg.Simulation.RoundDelay)
	if v := os.Getenv("SIM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("SIM_SEED=%q: not an integer", v))
		} else {
			cfg.Simulation.Seed = seed
		}
	}

	cfg.Decision.Provider = strings.ToLower(getEnv("DECISION_PROVIDER", cfg.Decision.Provider))
	setMillis("DECISION_TIMEOUT_MS", &cfg.Decision.Timeout)
	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Decision.Debug = v == "true" || v == "1"
	}

	cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.Anthropic.Model = getEnv("ANTHROPIC_MODEL", cfg.Anthropic.Model)
	cfg.Anthropic.BaseURL = getEnv("ANTHROPIC_BASE_URL", cfg.Anthropic.BaseURL)
	setInt("ANTHROPIC_MAX_TOKENS", &cfg.Anthropic.MaxTokens)
	setInt("ANTHROPIC_MAX_RETRIES", &cfg.Anthropic.MaxRetries)
	if v := os.Getenv("ANTHROPIC_TEMPERATURE"); v != "" {
		temp, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("ANTHROPIC_TEMPERATURE=%q: not a number", v))
		} else {
			cfg.Anthropic.Temperature = temp
		}
	}

	cfg.Output.APIAddr = os.Getenv("API_ADDR")
	cfg.Output.JournalPath = os.Getenv("JOURNAL_PATH")
	cfg.Output.LogFile = os.Getenv("LOG_FILE")
	cfg.Output.LogLevel = getEnv("LOG_LEVEL", cfg.Output.LogLevel)
	cfg.Output.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.Output.KafkaTopic)
	// Brokers from comma-separated list, e.g. "localhost:9092,localhost:9093"
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Output.KafkaBrokers = append(cfg.Output.KafkaBrokers, b)
			}
		}
	}

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Validate rejects configurations the simulator cannot run with.
func (c Config) Validate() error {
	if c.Simulation.Commodity == "" {
		return fmt.Errorf("commodity must not be empty")
	}
	if c.Simulation.Rounds < 1 {
		return fmt.Errorf("rounds must be at least 1, got %d", c.Simulation.Rounds)
	}
	if c.Simulation.DecisionConcurrency < 1 {
		return fmt.Errorf("decision concurrency must be at least 1, got %d", c.Simulation.DecisionConcurrency)
	}
	if c.Simulation.RoundDelay < 0 {
		return fmt.Errorf("round delay must not be negative")
	}
	switch c.Decision.Provider {
	case ProviderHeuristic:
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the %s provider", ProviderAnthropic)
		}
		if c.Anthropic.MaxTokens < 1 {
			return fmt.Errorf("max tokens must be positive, got %d", c.Anthropic.MaxTokens)
		}
		if c.Anthropic.MaxRetries < 0 {
			return fmt.Errorf("max retries must not be negative, got %d", c.Anthropic.MaxRetries)
		}
	default:
		return fmt.Errorf("unknown decision provider %q", c.Decision.Provider)
	}
	if len(c.Output.KafkaBrokers) > 0 && c.Output.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC must be set when brokers are configured")
	}
	return nil
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
