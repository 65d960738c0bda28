package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Print strategy names selectable via PRINT_STRATEGY.
const (
	StrategyChrome = "chrome"
	StrategyPDF    = "pdf"
	StrategyManual = "manual"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Print    PrintConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PrintConfig governs the secure print session lifecycle.
type PrintConfig struct {
	Strategy           string
	WatermarkText      string
	ProbeTimeout       time.Duration
	CompletionTimeout  time.Duration
	DescriptorCacheTTL time.Duration
	Deterrence         DeterrenceConfig
	Chrome             ChromeConfig
}

// DeterrenceConfig sets the tick interval for each capture-deterrence probe.
type DeterrenceConfig struct {
	DevToolsInterval  time.Duration
	CanvasInterval    time.Duration
	StyleInterval     time.Duration
	ClipboardInterval time.Duration
	MemoryInterval    time.Duration
}

// ChromeConfig configures the headless browser surface backend.
type ChromeConfig struct {
	RemoteURL string
	Headless  bool
	NoSandbox bool
	Timeout   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 2*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Print = PrintConfig{
		Strategy:           v.GetString("PRINT_STRATEGY"),
		WatermarkText:      v.GetString("PRINT_WATERMARK_TEXT"),
		ProbeTimeout:       parseDuration(v.GetString("PRINT_PROBE_TIMEOUT"), 2*time.Second),
		CompletionTimeout:  parseDuration(v.GetString("PRINT_COMPLETION_TIMEOUT"), 45*time.Second),
		DescriptorCacheTTL: parseDuration(v.GetString("PRINT_DESCRIPTOR_CACHE_TTL"), 5*time.Minute),
		Deterrence: DeterrenceConfig{
			DevToolsInterval:  parseDuration(v.GetString("DETERRENCE_DEVTOOLS_INTERVAL"), time.Second),
			CanvasInterval:    parseDuration(v.GetString("DETERRENCE_CANVAS_INTERVAL"), 2*time.Second),
			StyleInterval:     parseDuration(v.GetString("DETERRENCE_STYLE_INTERVAL"), 1500*time.Millisecond),
			ClipboardInterval: parseDuration(v.GetString("DETERRENCE_CLIPBOARD_INTERVAL"), 3*time.Second),
			MemoryInterval:    parseDuration(v.GetString("DETERRENCE_MEMORY_INTERVAL"), 2500*time.Millisecond),
		},
		Chrome: ChromeConfig{
			RemoteURL: v.GetString("CHROME_REMOTE_URL"),
			Headless:  v.GetBool("CHROME_HEADLESS"),
			NoSandbox: v.GetBool("CHROME_NO_SANDBOX"),
			Timeout:   parseDuration(v.GetString("CHROME_TIMEOUT"), 30*time.Second),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "secure_print")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "2h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PRINT_STRATEGY", StrategyManual)
	v.SetDefault("PRINT_WATERMARK_TEXT", "CONFIDENTIAL")
	v.SetDefault("PRINT_PROBE_TIMEOUT", "2s")
	v.SetDefault("PRINT_COMPLETION_TIMEOUT", "45s")
	v.SetDefault("PRINT_DESCRIPTOR_CACHE_TTL", "5m")

	v.SetDefault("DETERRENCE_DEVTOOLS_INTERVAL", "1s")
	v.SetDefault("DETERRENCE_CANVAS_INTERVAL", "2s")
	v.SetDefault("DETERRENCE_STYLE_INTERVAL", "1500ms")
	v.SetDefault("DETERRENCE_CLIPBOARD_INTERVAL", "3s")
	v.SetDefault("DETERRENCE_MEMORY_INTERVAL", "2500ms")

	v.SetDefault("CHROME_REMOTE_URL", "")
	v.SetDefault("CHROME_HEADLESS", true)
	v.SetDefault("CHROME_NO_SANDBOX", false)
	v.SetDefault("CHROME_TIMEOUT", "30s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
