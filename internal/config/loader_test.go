package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTPAddr)
	}
	if cfg.OutputDir != "output" {
		t.Fatalf("unexpected output dir: %s", cfg.OutputDir)
	}
	if cfg.Catalog.BaseURL != "https://fakestoreapi.com" {
		t.Fatalf("unexpected catalog url: %s", cfg.Catalog.BaseURL)
	}
	if cfg.Catalog.Timeout != 10*time.Second {
		t.Fatalf("unexpected catalog timeout: %v", cfg.Catalog.Timeout)
	}
	if cfg.Pipeline.Workers != 4 || cfg.Pipeline.TopN != 10 {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.DatabaseEnabled {
		t.Fatalf("database must stay off by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
http:
  addr: ":9090"
catalog:
  base_url: "http://catalog.internal"
  timeout: "3s"
pipeline:
  workers: 8
  top_n: 5
kafka:
  brokers:
    - "broker-1:9092"
  topic: "sales"
database:
  enabled: true
  host: "db.internal"
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("http addr not overridden: %s", cfg.HTTPAddr)
	}
	if cfg.Catalog.BaseURL != "http://catalog.internal" {
		t.Fatalf("catalog url not overridden: %s", cfg.Catalog.BaseURL)
	}
	if cfg.Catalog.Timeout != 3*time.Second {
		t.Fatalf("catalog timeout not overridden: %v", cfg.Catalog.Timeout)
	}
	if cfg.Pipeline.Workers != 8 || cfg.Pipeline.TopN != 5 {
		t.Fatalf("pipeline settings not overridden: %+v", cfg.Pipeline)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "broker-1:9092" {
		t.Fatalf("kafka brokers not overridden: %+v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.Topic != "sales" {
		t.Fatalf("kafka topic not overridden: %s", cfg.Kafka.Topic)
	}
	if !cfg.DatabaseEnabled || cfg.Database.Host != "db.internal" {
		t.Fatalf("database settings not overridden: %+v", cfg.Database)
	}
	if cfg.OutputDir != "output" {
		t.Fatalf("unset keys must keep defaults: %s", cfg.OutputDir)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SALESPIPE_CATALOG_BASE_URL", "http://env.catalog")
	t.Setenv("SALESPIPE_PIPELINE_WORKERS", "2")
	t.Setenv("SALESPIPE_KAFKA_MAX_RECORDS", "500")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if cfg.Catalog.BaseURL != "http://env.catalog" {
		t.Fatalf("env override ignored: %s", cfg.Catalog.BaseURL)
	}
	if cfg.Pipeline.Workers != 2 {
		t.Fatalf("env override ignored: %d", cfg.Pipeline.Workers)
	}
	if cfg.Kafka.MaxRecords != 500 {
		t.Fatalf("env override ignored: %d", cfg.Kafka.MaxRecords)
	}
}
