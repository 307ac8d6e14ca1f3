package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"gopkg.in/yaml.v3"
)

const (
	AggregatorJupiter     = "jupiter"
	AggregatorDeserialize = "deserialize"
)

// ChainConfig wires one chain's RPC node and swap backends.
type ChainConfig struct {
	RPCURL string `yaml:"rpc_url"`
	// WSURL enables subscription based confirmation when set.
	WSURL         string `yaml:"ws_url"`
	Aggregator    string `yaml:"aggregator"`
	AggregatorURL string `yaml:"aggregator_url"`
	// DedicatedAmmURL and DesignatedToken are both empty on chains without a
	// dedicated AMM.
	DedicatedAmmURL  string `yaml:"dedicated_amm_url"`
	DesignatedToken  string `yaml:"designated_token"`
	RefreshBlockhash bool   `yaml:"refresh_blockhash"`
	PriorityFee      uint64 `yaml:"priority_fee"`
}

type TokenLists struct {
	Jupiter     string `yaml:"jupiter"`
	Solar       string `yaml:"solar"`
	Deserialize string `yaml:"deserialize"`
}

type Config struct {
	DefaultChain string                  `yaml:"default_chain"`
	Chains       map[string]*ChainConfig `yaml:"chains"`
	TokenLists   TokenLists              `yaml:"token_lists"`

	// Swap pipeline
	QuoteTTL       time.Duration `yaml:"quote_ttl"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
	Commitment     string        `yaml:"commitment"`
	SkipPreflight  bool          `yaml:"skip_preflight"`
	MaxSlippageBps uint16        `yaml:"max_slippage_bps"`
	// SubmitAttempts bounds sendTransaction retries for one signed transaction.
	SubmitAttempts int `yaml:"submit_attempts"`

	// HTTP client settings. MaxRetries applies to RPC reads only.
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryBackoff      time.Duration `yaml:"retry_backoff"`

	// Redis is optional; empty disables event fan-out and halt switches.
	RedisAddr string `yaml:"redis_addr"`

	// API server
	APIAddr string `yaml:"api_addr"`
	APIKey  string `yaml:"-"`
	DevMode bool   `yaml:"dev_mode"`

	LogLevel string `yaml:"log_level"`

	WalletPrivateKey string `yaml:"-"`
}

// Defaults returns the built-in two-chain setup.
func Defaults() *Config {
	return &Config{
		DefaultChain: string(models.ChainSolana),
		Chains: map[string]*ChainConfig{
			string(models.ChainSolana): {
				RPCURL:        constants.DefaultSolanaRPCURL,
				Aggregator:    AggregatorJupiter,
				AggregatorURL: constants.DefaultRelayerURL,
				PriorityFee:   constants.DefaultPriorityFee,
			},
			string(models.ChainEclipse): {
				RPCURL:           constants.DefaultEclipseRPCURL,
				Aggregator:       AggregatorDeserialize,
				AggregatorURL:    constants.DefaultDeserializeURL,
				DedicatedAmmURL:  constants.DefaultSolarBaseURL,
				DesignatedToken:  constants.SolarTokenMint,
				RefreshBlockhash: true,
				PriorityFee:      constants.DefaultPriorityFee,
			},
		},
		TokenLists: TokenLists{
			Jupiter:     constants.DefaultJupiterTokensURL,
			Solar:       constants.DefaultSolarTokenListURL,
			Deserialize: constants.DefaultDeserializeTokens,
		},
		QuoteTTL:          constants.DefaultQuoteTTL,
		ConfirmTimeout:    constants.DefaultConfirmTimeout,
		Commitment:        "confirmed",
		SkipPreflight:     true,
		MaxSlippageBps:    1000,
		SubmitAttempts:    constants.MaxSubmitAttempts,
		HTTPTimeout:       30 * time.Second,
		RequestsPerSecond: 10,
		MaxRetries:        3,
		RetryBackoff:      500 * time.Millisecond,
		APIAddr:           ":8090",
		LogLevel:          "info",
	}
}

// Load starts from Defaults, applies the YAML file named by SWAP_CONFIG_FILE
// if any, then environment variables.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("SWAP_CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// overlayFile decodes path over c. A chain listed in the file replaces that
// chain's defaults as a whole; unlisted chains keep theirs.
func (c *Config) overlayFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DefaultChain = getEnv("DEFAULT_CHAIN", c.DefaultChain)

	if sol := c.Chains[string(models.ChainSolana)]; sol != nil {
		sol.RPCURL = getEnv("SOLANA_RPC_URL", sol.RPCURL)
		sol.WSURL = getEnv("SOLANA_WS_URL", sol.WSURL)
		sol.AggregatorURL = getEnv("RELAYER_URL", sol.AggregatorURL)
	}
	if ecl := c.Chains[string(models.ChainEclipse)]; ecl != nil {
		ecl.RPCURL = getEnv("ECLIPSE_RPC_URL", ecl.RPCURL)
		ecl.WSURL = getEnv("ECLIPSE_WS_URL", ecl.WSURL)
		ecl.AggregatorURL = getEnv("DESERIALIZE_URL", ecl.AggregatorURL)
		ecl.DedicatedAmmURL = getEnv("SOLAR_URL", ecl.DedicatedAmmURL)
		ecl.DesignatedToken = getEnv("DESIGNATED_TOKEN", ecl.DesignatedToken)
	}
	if v := os.Getenv("PRIORITY_FEE"); v != "" {
		if fee, err := strconv.ParseUint(v, 10, 64); err == nil {
			for _, ch := range c.Chains {
				ch.PriorityFee = fee
			}
		}
	}

	c.TokenLists.Jupiter = getEnv("JUPITER_TOKENS_URL", c.TokenLists.Jupiter)
	c.TokenLists.Solar = getEnv("SOLAR_TOKENS_URL", c.TokenLists.Solar)
	c.TokenLists.Deserialize = getEnv("DESERIALIZE_TOKENS_URL", c.TokenLists.Deserialize)

	c.QuoteTTL = getDurationEnv("QUOTE_TTL", c.QuoteTTL)
	c.ConfirmTimeout = getDurationEnv("CONFIRM_TIMEOUT", c.ConfirmTimeout)
	c.Commitment = getEnv("COMMITMENT", c.Commitment)
	c.SkipPreflight = getBoolEnv("SKIP_PREFLIGHT", c.SkipPreflight)
	c.MaxSlippageBps = uint16(getIntEnv("MAX_SLIPPAGE_BPS", int(c.MaxSlippageBps)))
	c.SubmitAttempts = getIntEnv("SUBMIT_ATTEMPTS", c.SubmitAttempts)

	c.HTTPTimeout = getDurationEnv("HTTP_TIMEOUT", c.HTTPTimeout)
	c.RequestsPerSecond = getFloatEnv("HTTP_RPS", c.RequestsPerSecond)
	c.MaxRetries = getIntEnv("MAX_RETRIES", c.MaxRetries)
	c.RetryBackoff = getDurationEnv("RETRY_BACKOFF", c.RetryBackoff)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.APIAddr = getEnv("API_ADDR", c.APIAddr)
	c.APIKey = getEnv("API_KEY", c.APIKey)
	c.DevMode = getBoolEnv("DEV_MODE", c.DevMode)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.WalletPrivateKey = getEnv("WALLET_PRIVATE_KEY", c.WalletPrivateKey)
}

// ChainNames returns the configured chains in a stable order.
func (c *Config) ChainNames() []string {
	out := make([]string, 0, len(c.Chains))
	for name := range c.Chains {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c *Config) Validate() error {
	if len(c.Chains) == 0 {
		return fmt.Errorf("no chains configured")
	}
	if _, ok := c.Chains[c.DefaultChain]; !ok {
		return fmt.Errorf("default chain %q is not configured", c.DefaultChain)
	}
	for _, name := range c.ChainNames() {
		ch := c.Chains[name]
		if ch == nil {
			return fmt.Errorf("chain %s: empty configuration", name)
		}
		if strings.TrimSpace(ch.RPCURL) == "" {
			return fmt.Errorf("chain %s: rpc_url is required", name)
		}
		switch ch.Aggregator {
		case AggregatorJupiter, AggregatorDeserialize:
		default:
			return fmt.Errorf("chain %s: unknown aggregator %q", name, ch.Aggregator)
		}
		if ch.AggregatorURL == "" {
			return fmt.Errorf("chain %s: aggregator_url is required", name)
		}
		if (ch.DesignatedToken == "") != (ch.DedicatedAmmURL == "") {
			return fmt.Errorf("chain %s: designated_token and dedicated_amm_url must be set together", name)
		}
	}
	switch c.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("invalid commitment %q", c.Commitment)
	}
	if c.QuoteTTL <= 0 {
		return fmt.Errorf("quote_ttl must be positive")
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("confirm_timeout must be positive")
	}
	if c.MaxSlippageBps == 0 || c.MaxSlippageBps > 10000 {
		return fmt.Errorf("max_slippage_bps must be within 1..10000")
	}
	if c.SubmitAttempts <= 0 {
		return fmt.Errorf("submit_attempts must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
