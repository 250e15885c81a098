package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFormat  string `mapstructure:"LOG_FORMAT"`

	// Persistence. Postgres wins when both are set; neither means records are not stored.
	PostgresURL string `mapstructure:"POSTGRES_URL"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	EventLogTTL   time.Duration `mapstructure:"EVENT_LOG_TTL"`
	InFlightTTL   time.Duration `mapstructure:"IN_FLIGHT_TTL"`

	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	LLMProvider        string        `mapstructure:"LLM_PROVIDER"`
	OpenRouterAPIKey   string        `mapstructure:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL  string        `mapstructure:"OPENROUTER_BASE_URL"`
	OpenRouterModel    string        `mapstructure:"OPENROUTER_MODEL"`
	GeminiAPIKey       string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel        string        `mapstructure:"GEMINI_MODEL"`
	LLMMaxTokens       int           `mapstructure:"LLM_MAX_TOKENS"`
	LLMTimeout         time.Duration `mapstructure:"LLM_TIMEOUT"`
	PriceInputPerMTok  float64       `mapstructure:"LLM_PRICE_INPUT_PER_MTOK"`
	PriceOutputPerMTok float64       `mapstructure:"LLM_PRICE_OUTPUT_PER_MTOK"`
	LLMRetryBaseDelay  time.Duration `mapstructure:"LLM_RETRY_BASE_DELAY"`
	MaxParallelAgents  int           `mapstructure:"MAX_PARALLEL_AGENTS"`
	MaxToolIterations  int           `mapstructure:"MAX_TOOL_ITERATIONS"`
	MCPServerURL       string        `mapstructure:"MCP_SERVER_URL"`
	ParserRulesFile    string        `mapstructure:"PARSER_RULES_FILE"`

	// SANDBOX_MODE: daytona, local or none.
	SandboxMode       string        `mapstructure:"SANDBOX_MODE"`
	DaytonaAPIKey     string        `mapstructure:"DAYTONA_API_KEY"`
	DaytonaAPIURL     string        `mapstructure:"DAYTONA_API_URL"`
	DaytonaTarget     string        `mapstructure:"DAYTONA_TARGET"`
	SandboxImage      string        `mapstructure:"SANDBOX_IMAGE"`
	SandboxAutoDelete time.Duration `mapstructure:"SANDBOX_AUTO_DELETE"`
	LocalSandboxRoot  string        `mapstructure:"LOCAL_SANDBOX_ROOT"`
	ProjectDir        string        `mapstructure:"PROJECT_DIR"`
	MaxBuildAttempts  int           `mapstructure:"MAX_BUILD_ATTEMPTS"`
	BuildTimeout      time.Duration `mapstructure:"BUILD_TIMEOUT"`
	InstallTimeout    time.Duration `mapstructure:"INSTALL_TIMEOUT"`
	DevServerPort     int           `mapstructure:"DEV_SERVER_PORT"`

	BrowserPoolSize   int           `mapstructure:"BROWSER_POOL_SIZE"`
	PageLoadTimeout   time.Duration `mapstructure:"PAGE_LOAD_TIMEOUT"`
	StepTimeout       time.Duration `mapstructure:"EXTRACT_STEP_TIMEOUT"`
	UserAgents        []string      `mapstructure:"USER_AGENTS"`
	BrowserProxies    []string      `mapstructure:"BROWSER_PROXIES"`
	MaxScreenshots    int           `mapstructure:"MAX_SCREENSHOTS"`
	SnapshotCacheSize int           `mapstructure:"SNAPSHOT_CACHE_SIZE"`
	SnapshotCacheTTL  time.Duration `mapstructure:"SNAPSHOT_CACHE_TTL"`
}

// Load reads configuration from a .env file (optional) and the environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// A missing .env is fine: production configures through the environment.
	_ = v.ReadInConfig()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.UserAgents = splitList(cfg.UserAgents)
	cfg.BrowserProxies = splitList(cfg.BrowserProxies)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("SQLITE_PATH", "")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("EVENT_LOG_TTL", "24h")
	v.SetDefault("IN_FLIGHT_TTL", "30m")

	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "clones")
	v.SetDefault("MINIO_USE_SSL", false)

	v.SetDefault("LLM_PROVIDER", "openrouter")
	v.SetDefault("OPENROUTER_API_KEY", "")
	v.SetDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("OPENROUTER_MODEL", "anthropic/claude-sonnet-4.5")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-pro")
	v.SetDefault("LLM_MAX_TOKENS", 64000)
	v.SetDefault("LLM_TIMEOUT", "5m")
	v.SetDefault("LLM_PRICE_INPUT_PER_MTOK", 3.0)
	v.SetDefault("LLM_PRICE_OUTPUT_PER_MTOK", 15.0)
	v.SetDefault("LLM_RETRY_BASE_DELAY", "2s")
	v.SetDefault("MAX_PARALLEL_AGENTS", 3)
	v.SetDefault("MAX_TOOL_ITERATIONS", 10)
	v.SetDefault("MCP_SERVER_URL", "")
	v.SetDefault("PARSER_RULES_FILE", "")

	v.SetDefault("SANDBOX_MODE", "daytona")
	v.SetDefault("DAYTONA_API_KEY", "")
	v.SetDefault("DAYTONA_API_URL", "https://app.daytona.io/api")
	v.SetDefault("DAYTONA_TARGET", "us")
	v.SetDefault("SANDBOX_IMAGE", "node:20")
	v.SetDefault("SANDBOX_AUTO_DELETE", "20m")
	v.SetDefault("LOCAL_SANDBOX_ROOT", "")
	v.SetDefault("PROJECT_DIR", "/home/daytona/app")
	v.SetDefault("MAX_BUILD_ATTEMPTS", 3)
	v.SetDefault("BUILD_TIMEOUT", "120s")
	v.SetDefault("INSTALL_TIMEOUT", "180s")
	v.SetDefault("DEV_SERVER_PORT", 8080)

	v.SetDefault("BROWSER_POOL_SIZE", 2)
	v.SetDefault("PAGE_LOAD_TIMEOUT", "30s")
	v.SetDefault("EXTRACT_STEP_TIMEOUT", "20s")
	v.SetDefault("USER_AGENTS", "")
	v.SetDefault("BROWSER_PROXIES", "")
	v.SetDefault("MAX_SCREENSHOTS", 15)
	v.SetDefault("SNAPSHOT_CACHE_SIZE", 32)
	v.SetDefault("SNAPSHOT_CACHE_TTL", "10m")
}

// splitList accepts either a real list or a single comma-separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
