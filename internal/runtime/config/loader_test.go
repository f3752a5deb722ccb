package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "irisflow.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
pubsub_system: kafka
kafka_brokers:
  - localhost:9092
kafka_consumer_group: iris-inference
scorer_url: http://localhost:8080
scorer_timeout: 10s
sink_table: predictions
pipeline_version: v2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.PubSubSystem != "kafka" {
		t.Errorf("PubSubSystem = %q", cfg.PubSubSystem)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.ScorerTimeout != 10*time.Second {
		t.Errorf("ScorerTimeout = %v", cfg.ScorerTimeout)
	}
	if cfg.SinkTableOrDefault() != "predictions" {
		t.Errorf("SinkTable = %q", cfg.SinkTable)
	}
	if cfg.PipelineVersionOrDefault() != "v2" {
		t.Errorf("PipelineVersion = %q", cfg.PipelineVersion)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "scorer_url: http://from-file:8080\n")
	t.Setenv("IRISFLOW_SCORER_URL", "http://from-env:9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ScorerURL != "http://from-env:9090" {
		t.Errorf("ScorerURL = %q, want env override", cfg.ScorerURL)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("IRISFLOW_PUBSUB_SYSTEM", "channel")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PubSubSystem != "channel" {
		t.Errorf("PubSubSystem = %q", cfg.PubSubSystem)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeConfigFile(t, "pubsub_system: kafka\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for kafka without brokers")
	}
}
