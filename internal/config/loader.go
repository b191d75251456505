package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rpattn/salespipe/internal/db"
	"github.com/rpattn/salespipe/internal/logger"
)

// CatalogConfig configures the external product-catalog client.
type CatalogConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PipelineConfig tunes the pipeline run itself.
type PipelineConfig struct {
	Workers int
	TopN    int
}

// KafkaConfig configures the optional Kafka input source.
type KafkaConfig struct {
	Brokers    []string
	Topic      string
	GroupID    string
	MaxRecords int
}

// Config is the full application configuration.
type Config struct {
	HTTPAddr  string
	OutputDir string
	Catalog   CatalogConfig
	Pipeline  PipelineConfig
	Kafka     KafkaConfig

	// DatabaseEnabled gates the run-log repository and the Postgres
	// catalog; without it the pipeline runs purely in memory.
	DatabaseEnabled bool
	Database        db.Config
}

// Default returns the configuration used when no file or env overrides are
// present.
func Default() Config {
	return Config{
		HTTPAddr:  ":8080",
		OutputDir: "output",
		Catalog: CatalogConfig{
			BaseURL: "https://fakestoreapi.com",
			Timeout: 10 * time.Second,
		},
		Pipeline: PipelineConfig{
			Workers: 4,
			TopN:    10,
		},
		Kafka: KafkaConfig{
			GroupID:    "salespipe",
			MaxRecords: 10000,
		},
		Database: db.DefaultConfig(),
	}
}

// Load reads config.yaml from configPath and applies environment overrides
// (SALESPIPE_-prefixed, e.g. SALESPIPE_CATALOG_BASE_URL). Missing files are
// fine; defaults plus env are used.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("SALESPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("http.addr")
	v.BindEnv("output.dir")
	v.BindEnv("catalog.base_url")
	v.BindEnv("catalog.timeout")
	v.BindEnv("pipeline.workers")
	v.BindEnv("pipeline.top_n")
	v.BindEnv("kafka.brokers")
	v.BindEnv("kafka.topic")
	v.BindEnv("kafka.group_id")
	v.BindEnv("kafka.max_records")
	v.BindEnv("database.enabled")
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")

	if err := v.ReadInConfig(); err != nil {
		log := logger.New()
		log.Debug().Err(err).Msg("no config.yaml found, using defaults and env vars")
	}

	if v.IsSet("http.addr") {
		cfg.HTTPAddr = v.GetString("http.addr")
	}
	if v.IsSet("output.dir") {
		cfg.OutputDir = v.GetString("output.dir")
	}
	if v.IsSet("catalog.base_url") {
		cfg.Catalog.BaseURL = v.GetString("catalog.base_url")
	}
	if v.IsSet("catalog.timeout") {
		cfg.Catalog.Timeout = v.GetDuration("catalog.timeout")
	}
	if v.IsSet("pipeline.workers") {
		cfg.Pipeline.Workers = v.GetInt("pipeline.workers")
	}
	if v.IsSet("pipeline.top_n") {
		cfg.Pipeline.TopN = v.GetInt("pipeline.top_n")
	}
	if v.IsSet("kafka.brokers") {
		cfg.Kafka.Brokers = v.GetStringSlice("kafka.brokers")
	}
	if v.IsSet("kafka.topic") {
		cfg.Kafka.Topic = v.GetString("kafka.topic")
	}
	if v.IsSet("kafka.group_id") {
		cfg.Kafka.GroupID = v.GetString("kafka.group_id")
	}
	if v.IsSet("kafka.max_records") {
		cfg.Kafka.MaxRecords = v.GetInt("kafka.max_records")
	}
	if v.IsSet("database.enabled") {
		cfg.DatabaseEnabled = v.GetBool("database.enabled")
	}
	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}

	return cfg, nil
}
