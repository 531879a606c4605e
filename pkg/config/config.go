package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Steam    SteamConfig    `mapstructure:"steam"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type SteamConfig struct {
	APIKey            string        `mapstructure:"api_key" validate:"required"`
	APIBaseURL        string        `mapstructure:"api_base_url" validate:"required,url"`
	StoreBaseURL      string        `mapstructure:"store_base_url" validate:"required,url"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	EnrichLimit       int           `mapstructure:"enrich_limit" validate:"gte=1,lte=100"`
	EnrichDelay       time.Duration `mapstructure:"enrich_delay"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	Language          string        `mapstructure:"language"`
	Country           string        `mapstructure:"country"`
}

type OpenAIConfig struct {
	APIKey               string  `mapstructure:"api_key" validate:"required"`
	BaseURL              string  `mapstructure:"base_url" validate:"omitempty,url"`
	Model                string  `mapstructure:"model" validate:"required"`
	ImageModel           string  `mapstructure:"image_model"`
	MaxTokens            int     `mapstructure:"max_tokens" validate:"gte=0"`
	Temperature          float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	RecommendTemperature float64 `mapstructure:"recommend_temperature" validate:"gte=0,lte=2"`
}

type CacheConfig struct {
	Driver string        `mapstructure:"driver" validate:"oneof=memory postgres"`
	TTL    time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	AnalysisTimeout time.Duration `mapstructure:"analysis_timeout" validate:"gt=0"`
	ResultTTL       time.Duration `mapstructure:"result_ttl" validate:"gt=0"`
	RateLimit       int           `mapstructure:"rate_limit" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `mapstructure:"cors_origins" validate:"dive,url"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q: %w", u.Port(), err)
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("steam.api_base_url", "https://api.steampowered.com")
	v.SetDefault("steam.store_base_url", "https://store.steampowered.com")
	v.SetDefault("steam.timeout", 15*time.Second)
	v.SetDefault("steam.enrich_limit", 20)
	v.SetDefault("steam.enrich_delay", 300*time.Millisecond)
	v.SetDefault("steam.requests_per_second", 5.0)
	v.SetDefault("steam.language", "english")
	v.SetDefault("steam.country", "US")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.image_model", "dall-e-3")
	v.SetDefault("openai.max_tokens", 2000)
	v.SetDefault("openai.temperature", 0.8)
	v.SetDefault("openai.recommend_temperature", 0.9)
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "gamercard")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.analysis_timeout", 3*time.Minute)
	v.SetDefault("http.result_ttl", time.Hour)
	v.SetDefault("http.rate_limit", 10)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
}

// LoadConfig reads path (optional), a .env file in the working directory
// (optional) and the environment, in increasing priority. Keys map to
// GAMERCARD_<SECTION>_<KEY>; STEAM_API_KEY, OPENAI_API_KEY, TELEGRAM_TOKEN and
// DATABASE_URL are also honoured.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GAMERCARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("steam.api_key", "GAMERCARD_STEAM_API_KEY", "STEAM_API_KEY")
	_ = v.BindEnv("openai.api_key", "GAMERCARD_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.base_url", "GAMERCARD_OPENAI_BASE_URL", "OPENAI_BASE_URL")
	_ = v.BindEnv("telegram.token", "GAMERCARD_TELEGRAM_TOKEN", "TELEGRAM_TOKEN")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
