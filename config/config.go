package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/folio/internal/domain"
)

const (
	QuoteSourceBackend = "backend"
	QuoteSourceBinance = "binance"

	defaultTokenEnv = "FOLIO_TOKEN"
)

// Config typed client configuration.
type Config struct {
	API          APIConfig
	Endpoints    Endpoints
	Agents       map[domain.Agent]string
	QuoteSource  string
	Trade        TradeConfig
	Availability AvailabilityConfig
	Chat         ChatConfig
	Journal      JournalConfig
	State        StateConfig
	Dashboard    DashboardConfig
	Log          LogConfig
}

type APIConfig struct {
	BaseURL  string
	Timeout  time.Duration
	TokenEnv string
	// Token bearer token resolved from TokenEnv.
	Token string
}

// Endpoints backend paths relative to APIConfig.BaseURL.
type Endpoints struct {
	Balance           string `yaml:"balance"`
	Holdings          string `yaml:"holdings"`
	Quote             string `yaml:"quote"`
	DailyPrices       string `yaml:"daily_prices"`
	Execute           string `yaml:"execute"`
	Transactions      string `yaml:"transactions"`
	UsernameAvailable string `yaml:"username_available"`
}

type TradeConfig struct {
	// ReconcileAfterTrade refetches balance/holdings after every acknowledged order.
	ReconcileAfterTrade bool
	// NoticeTTL how long an inline validation message stays visible.
	NoticeTTL time.Duration
	// QuantityDebounce delay before quantity input is re-validated against the quote.
	QuantityDebounce time.Duration
}

type AvailabilityConfig struct {
	Debounce  time.Duration
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
}

type ChatConfig struct {
	StreamTick time.Duration
}

type JournalConfig struct {
	Dir string
}

// StateConfig location of persisted CLI preferences.
type StateConfig struct {
	Dir string
}

type DashboardConfig struct {
	Addr      string
	Domains   []string
	CertCache string
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// ConfigTmp raw yaml representation; numbers and booleans are kept as strings and parsed
// into Config with explicit error messages.
type ConfigTmp struct {
	API struct {
		BaseURL  string        `yaml:"base_url"`
		Timeout  time.Duration `yaml:"timeout"`
		TokenEnv string        `yaml:"token_env"`
	} `yaml:"api"`
	Endpoints   Endpoints         `yaml:"endpoints"`
	Agents      map[string]string `yaml:"agents"`
	QuoteSource string            `yaml:"quote_source"`
	Trade       struct {
		ReconcileAfterTradeStr string        `yaml:"reconcile_after_trade,omitempty"`
		NoticeTTL              time.Duration `yaml:"notice_ttl"`
		QuantityDebounce       time.Duration `yaml:"quantity_debounce"`
	} `yaml:"trade"`
	Availability struct {
		Debounce     time.Duration `yaml:"debounce"`
		MinLengthStr string        `yaml:"min_length,omitempty"`
		MaxLengthStr string        `yaml:"max_length,omitempty"`
		Pattern      string        `yaml:"pattern"`
	} `yaml:"availability"`
	Chat struct {
		StreamTick time.Duration `yaml:"stream_tick"`
	} `yaml:"chat"`
	Journal struct {
		Dir string `yaml:"dir"`
	} `yaml:"journal"`
	State struct {
		Dir string `yaml:"dir"`
	} `yaml:"state"`
	Dashboard struct {
		Addr      string   `yaml:"addr"`
		Domains   []string `yaml:"domains"`
		CertCache string   `yaml:"cert_cache"`
	} `yaml:"dashboard"`
	Log struct {
		Level         string `yaml:"level"`
		File          string `yaml:"file"`
		MaxSizeMBStr  string `yaml:"max_size_mb,omitempty"`
		MaxBackupsStr string `yaml:"max_backups,omitempty"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:  "http://localhost:8000/api",
			Timeout:  15 * time.Second,
			TokenEnv: defaultTokenEnv,
		},
		Endpoints: Endpoints{
			Balance:           "/balance",
			Holdings:          "/holdings",
			Quote:             "/quote",
			DailyPrices:       "/daily-prices",
			Execute:           "/execute",
			Transactions:      "/transactions",
			UsernameAvailable: "/username-available",
		},
		Agents: map[domain.Agent]string{
			domain.AgentGeneral:   "/chat",
			domain.AgentMarket:    "/agents/market",
			domain.AgentTrade:     "/agents/trade",
			domain.AgentPortfolio: "/agents/portfolio",
		},
		QuoteSource: QuoteSourceBackend,
		Trade: TradeConfig{
			NoticeTTL:        4 * time.Second,
			QuantityDebounce: 500 * time.Millisecond,
		},
		Availability: AvailabilityConfig{
			Debounce:  500 * time.Millisecond,
			MinLength: 3,
			MaxLength: 20,
			Pattern:   regexp.MustCompile(`^[A-Za-z0-9_]+$`),
		},
		Chat:      ChatConfig{StreamTick: 40 * time.Millisecond},
		Journal:   JournalConfig{Dir: "./wal/journal"},
		State:     StateConfig{Dir: "./wal/state"},
		Dashboard: DashboardConfig{Addr: ":8080", CertCache: "cert-cache"},
		Log:       LogConfig{Level: "info", MaxSizeMB: 50, MaxBackups: 5},
	}
}

// Load reads the yaml config at path (defaults when empty), loads an optional .env file
// and resolves the bearer token from the environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, errors.Wrap(err, "load .env")
	}

	conf := Default()
	if path != "" {
		f, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config")
		}
		conf, err = Parse(f)
		if err != nil {
			return Config{}, err
		}
	}

	conf.API.Token = os.Getenv(conf.API.TokenEnv)
	return conf, nil
}

// Parse converts yaml bytes into Config, filling unset fields with defaults.
func Parse(data []byte) (Config, error) {
	var tmp ConfigTmp
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return Config{}, errors.Wrap(err, "decode yaml config")
	}
	return fromTmp(tmp)
}

func fromTmp(c ConfigTmp) (Config, error) {
	conf := Default()

	if c.API.BaseURL != "" {
		conf.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	}
	if c.API.Timeout > 0 {
		conf.API.Timeout = c.API.Timeout
	}
	if c.API.TokenEnv != "" {
		conf.API.TokenEnv = c.API.TokenEnv
	}

	mergeEndpoints(&conf.Endpoints, c.Endpoints)

	for name, path := range c.Agents {
		agent, err := parseAgent(name)
		if err != nil {
			return Config{}, errors.Wrapf(err, "incorrect 'agents' key in yaml config: %s", name)
		}
		if path != "" {
			conf.Agents[agent] = path
		}
	}

	switch strings.ToLower(c.QuoteSource) {
	case "":
	case QuoteSourceBackend, QuoteSourceBinance:
		conf.QuoteSource = strings.ToLower(c.QuoteSource)
	default:
		return Config{}, errors.Errorf("incorrect 'quote_source' param in yaml config: %s (backend or binance)", c.QuoteSource)
	}

	if c.Trade.ReconcileAfterTradeStr != "" {
		reconcile, err := strconv.ParseBool(c.Trade.ReconcileAfterTradeStr)
		if err != nil {
			return Config{}, errors.Wrap(err, "incorrect 'reconcile_after_trade' param in yaml config (must be true or false)")
		}
		conf.Trade.ReconcileAfterTrade = reconcile
	}
	if c.Trade.NoticeTTL > 0 {
		conf.Trade.NoticeTTL = c.Trade.NoticeTTL
	}
	if c.Trade.QuantityDebounce > 0 {
		conf.Trade.QuantityDebounce = c.Trade.QuantityDebounce
	}

	if c.Availability.Debounce > 0 {
		conf.Availability.Debounce = c.Availability.Debounce
	}
	if c.Availability.MinLengthStr != "" {
		minLength, err := strconv.Atoi(c.Availability.MinLengthStr)
		if err != nil {
			return Config{}, errors.Wrap(err, "incorrect 'min_length' param in yaml config (must be an integer)")
		}
		conf.Availability.MinLength = minLength
	}
	if c.Availability.MaxLengthStr != "" {
		maxLength, err := strconv.Atoi(c.Availability.MaxLengthStr)
		if err != nil {
			return Config{}, errors.Wrap(err, "incorrect 'max_length' param in yaml config (must be an integer)")
		}
		conf.Availability.MaxLength = maxLength
	}
	if conf.Availability.MaxLength > 0 && conf.Availability.MaxLength < conf.Availability.MinLength {
		return Config{}, errors.Errorf("availability max_length %d is less than min_length %d",
			conf.Availability.MaxLength, conf.Availability.MinLength)
	}
	if c.Availability.Pattern != "" {
		pattern, err := regexp.Compile(c.Availability.Pattern)
		if err != nil {
			return Config{}, errors.Wrap(err, "incorrect 'pattern' param in yaml config")
		}
		conf.Availability.Pattern = pattern
	}

	if c.Chat.StreamTick > 0 {
		conf.Chat.StreamTick = c.Chat.StreamTick
	}
	if c.Journal.Dir != "" {
		conf.Journal.Dir = c.Journal.Dir
	}
	if c.State.Dir != "" {
		conf.State.Dir = c.State.Dir
	}

	if c.Dashboard.Addr != "" {
		conf.Dashboard.Addr = c.Dashboard.Addr
	}
	conf.Dashboard.Domains = c.Dashboard.Domains
	if c.Dashboard.CertCache != "" {
		conf.Dashboard.CertCache = c.Dashboard.CertCache
	}

	if c.Log.Level != "" {
		conf.Log.Level = c.Log.Level
	}
	conf.Log.File = c.Log.File
	if c.Log.MaxSizeMBStr != "" {
		size, err := strconv.Atoi(c.Log.MaxSizeMBStr)
		if err != nil {
			return Config{}, errors.Wrap(err, "incorrect 'max_size_mb' param in yaml config (must be an integer)")
		}
		conf.Log.MaxSizeMB = size
	}
	if c.Log.MaxBackupsStr != "" {
		backups, err := strconv.Atoi(c.Log.MaxBackupsStr)
		if err != nil {
			return Config{}, errors.Wrap(err, "incorrect 'max_backups' param in yaml config (must be an integer)")
		}
		conf.Log.MaxBackups = backups
	}

	return conf, nil
}

func mergeEndpoints(dst *Endpoints, src Endpoints) {
	set := func(target *string, value string) {
		if value != "" {
			*target = value
		}
	}
	set(&dst.Balance, src.Balance)
	set(&dst.Holdings, src.Holdings)
	set(&dst.Quote, src.Quote)
	set(&dst.DailyPrices, src.DailyPrices)
	set(&dst.Execute, src.Execute)
	set(&dst.Transactions, src.Transactions)
	set(&dst.UsernameAvailable, src.UsernameAvailable)
}

func parseAgent(name string) (domain.Agent, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "general", "none", "default":
		return domain.AgentGeneral, nil
	case string(domain.AgentMarket):
		return domain.AgentMarket, nil
	case string(domain.AgentTrade):
		return domain.AgentTrade, nil
	case string(domain.AgentPortfolio):
		return domain.AgentPortfolio, nil
	default:
		return "", errors.New("unknown agent")
	}
}
