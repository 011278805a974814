package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Version is the addon version, overridden at build time.
var Version = "1.0.0"

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Addon      AddonConfig      `mapstructure:"addon"`
	Solver     SolverConfig     `mapstructure:"solver"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Target     TargetConfig     `mapstructure:"target"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Metadata   MetadataConfig   `mapstructure:"metadata"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	BufferSize int    `mapstructure:"buffer_size"`
}

// AddonConfig describes the addon manifest served to clients.
type AddonConfig struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Logo        string `mapstructure:"logo"`
}

// SolverConfig holds the challenge-solving service configuration.
type SolverConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	TaskType     string        `mapstructure:"task_type"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// BrowserConfig holds automated browser configuration.
type BrowserConfig struct {
	Bin         string        `mapstructure:"bin"`
	Headless    bool          `mapstructure:"headless"`
	NoSandbox   bool          `mapstructure:"no_sandbox"`
	UserAgent   string        `mapstructure:"user_agent"`
	MaxSessions int           `mapstructure:"max_sessions"`
	NetworkIdle time.Duration `mapstructure:"network_idle"`
}

// StrategyTimeouts bounds every wait of one strategy attempt.
type StrategyTimeouts struct {
	Navigation time.Duration `mapstructure:"navigation_timeout"`
	Frame      time.Duration `mapstructure:"frame_timeout"`
	Play       time.Duration `mapstructure:"play_timeout"`
	Capture    time.Duration `mapstructure:"capture_timeout"`
}

// ExtractionConfig controls the resolution pipeline.
type ExtractionConfig struct {
	Strategies      []string         `mapstructure:"strategies"`
	Standard        StrategyTimeouts `mapstructure:"standard"`
	Evasive         StrategyTimeouts `mapstructure:"evasive"`
	ChallengeProbe  time.Duration    `mapstructure:"challenge_probe"`
	ChallengeSettle time.Duration    `mapstructure:"challenge_settle"`
	CaptureGrace    time.Duration    `mapstructure:"capture_grace"`
	EvalTimeout     time.Duration    `mapstructure:"eval_timeout"`
	LaunchTimeout   time.Duration    `mapstructure:"launch_timeout"`
	ScrapeFallback  bool             `mapstructure:"scrape_fallback"`
}

// TargetConfig isolates every constant that depends on the target site.
type TargetConfig struct {
	BaseURL           string   `mapstructure:"base_url"`
	MoviePath         string   `mapstructure:"movie_path"`
	SeriesPath        string   `mapstructure:"series_path"`
	FrameSelector     string   `mapstructure:"frame_selector"`
	PlaySelector      string   `mapstructure:"play_selector"`
	ChallengeSelector string   `mapstructure:"challenge_selector"`
	SiteKeyAttribute  string   `mapstructure:"site_key_attribute"`
	TokenField        string   `mapstructure:"token_field"`
	Denylist          []string `mapstructure:"denylist"`
	ManifestMarker    string   `mapstructure:"manifest_marker"`
}

// CacheConfig holds resolution cache configuration.
type CacheConfig struct {
	Backend   string        `mapstructure:"backend"`
	TTL       time.Duration `mapstructure:"ttl"`
	MaxItems  int           `mapstructure:"max_items"`
	SweepCron string        `mapstructure:"sweep_cron"`
	Redis     RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds the optional Redis cache backend settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// MetadataConfig holds metadata provider configuration.
type MetadataConfig struct {
	OMDB     OMDBConfig    `mapstructure:"omdb"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// OMDBConfig holds OMDb API configuration.
type OMDBConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// Default returns a Config with default values.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults are static values; decoding them cannot fail.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.vidsrc-addon")
	}

	v.SetEnvPrefix("VIDSRC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindConventionalEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Solver.APIKey == "" {
		cfg.Solver.APIKey = EmbeddedSolverKey
	}
	if cfg.Metadata.OMDB.APIKey == "" {
		cfg.Metadata.OMDB.APIKey = EmbeddedOMDBKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindConventionalEnv maps the bare variable names hosting platforms set.
func bindConventionalEnv(v *viper.Viper) {
	_ = v.BindEnv("server.port", "VIDSRC_SERVER_PORT", "PORT")
	_ = v.BindEnv("solver.api_key", "VIDSRC_SOLVER_API_KEY", "CAPSOLVER_API_KEY")
	_ = v.BindEnv("browser.bin", "VIDSRC_BROWSER_BIN", "CHROME_EXECUTABLE_PATH")
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 7000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
	v.SetDefault("logging.buffer_size", 1000)

	v.SetDefault("addon.id", "org.stremio.vidsrc")
	v.SetDefault("addon.name", "VidSrc")
	v.SetDefault("addon.description", "Watch movies and TV shows from VidSrc")
	v.SetDefault("addon.logo", "https://vidsrc.xyz/template/vidsrc-logo-light.svg")

	v.SetDefault("solver.api_key", "")
	v.SetDefault("solver.base_url", "https://api.capsolver.com")
	v.SetDefault("solver.task_type", "AntiTurnstileTaskProxyLess")
	v.SetDefault("solver.poll_interval", 3*time.Second)
	v.SetDefault("solver.max_attempts", 20)
	v.SetDefault("solver.timeout", 15*time.Second)

	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("browser.max_sessions", 2)
	v.SetDefault("browser.network_idle", 500*time.Millisecond)

	v.SetDefault("extraction.strategies", []string{"standard", "evasive"})
	v.SetDefault("extraction.standard.navigation_timeout", 18*time.Second)
	v.SetDefault("extraction.standard.frame_timeout", 10*time.Second)
	v.SetDefault("extraction.standard.play_timeout", 30*time.Second)
	v.SetDefault("extraction.standard.capture_timeout", 8*time.Second)
	v.SetDefault("extraction.evasive.navigation_timeout", 60*time.Second)
	v.SetDefault("extraction.evasive.frame_timeout", 30*time.Second)
	v.SetDefault("extraction.evasive.play_timeout", 30*time.Second)
	v.SetDefault("extraction.evasive.capture_timeout", 10*time.Second)
	v.SetDefault("extraction.challenge_probe", 3*time.Second)
	v.SetDefault("extraction.challenge_settle", 5*time.Second)
	v.SetDefault("extraction.capture_grace", 2*time.Second)
	v.SetDefault("extraction.eval_timeout", 5*time.Second)
	v.SetDefault("extraction.launch_timeout", 30*time.Second)
	v.SetDefault("extraction.scrape_fallback", true)

	v.SetDefault("target.base_url", "https://vidsrc.xyz")
	v.SetDefault("target.movie_path", "/embed/movie/{id}")
	v.SetDefault("target.series_path", "/embed/tv/{id}/{season}-{episode}")
	v.SetDefault("target.frame_selector", "#player_iframe")
	v.SetDefault("target.play_selector", "#pl_but")
	v.SetDefault("target.challenge_selector", ".cf-turnstile[data-sitekey], [data-sitekey]")
	v.SetDefault("target.site_key_attribute", "data-sitekey")
	v.SetDefault("target.token_field", `input[name="cf-turnstile-response"]`)
	v.SetDefault("target.denylist", []string{"analytics", "ads", "social", "disable-devtool", "sV05kUlNvOdOxvtC", "histats"})
	v.SetDefault("target.manifest_marker", ".m3u8")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 2*time.Hour)
	v.SetDefault("cache.max_items", 5000)
	v.SetDefault("cache.sweep_cron", "*/2 * * * *")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", "vidsrc:manifest:")

	v.SetDefault("metadata.omdb.api_key", "")
	v.SetDefault("metadata.omdb.base_url", "https://www.omdbapi.com/")
	v.SetDefault("metadata.omdb.timeout", 10)
	v.SetDefault("metadata.cache_ttl", 24*time.Hour)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if len(c.Extraction.Strategies) == 0 {
		return errors.New("at least one extraction strategy is required")
	}
	for _, s := range c.Extraction.Strategies {
		if s != "standard" && s != "evasive" {
			return fmt.Errorf("unknown extraction strategy %q", s)
		}
	}
	if c.Target.ManifestMarker == "" {
		return errors.New("target.manifest_marker must not be empty")
	}
	if c.Target.FrameSelector == "" {
		return errors.New("target.frame_selector must not be empty")
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}
	if c.Solver.MaxAttempts <= 0 {
		return errors.New("solver.max_attempts must be positive")
	}
	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Timeouts returns the timeouts configured for the named strategy.
func (c *ExtractionConfig) Timeouts(strategy string) StrategyTimeouts {
	if strategy == "evasive" {
		return c.Evasive
	}
	return c.Standard
}
