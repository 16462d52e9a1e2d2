package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Session   SessionConfig
	Sentiment SentimentConfig
	Scraper   ScraperConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type SessionConfig struct {
	// Backend selects the session store: "memory" or "redis".
	Backend  string
	TTLHours int
}

type SentimentConfig struct {
	// Provider selects the analyzer: "lexicon" or "openai".
	Provider   string
	APIKey     string
	Model      string
	TimeoutSec int
}

type ScraperConfig struct {
	Enabled        bool
	NewsAPIKey     string
	MaxResults     int
	TimeoutSec     int
	MinEntityNews  int
	MinHandlerNews int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/newswise")

	viper.SetEnvPrefix("NEWSWISE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/newswise.db")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("session.backend", "memory")
	viper.SetDefault("session.ttlHours", 24)

	viper.SetDefault("sentiment.provider", "lexicon")
	viper.SetDefault("sentiment.model", "gpt-4o-mini")
	viper.SetDefault("sentiment.timeoutSec", 15)

	viper.SetDefault("scraper.enabled", true)
	viper.SetDefault("scraper.maxResults", 5)
	viper.SetDefault("scraper.timeoutSec", 30)
	viper.SetDefault("scraper.minEntityNews", 5)
	viper.SetDefault("scraper.minHandlerNews", 3)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
