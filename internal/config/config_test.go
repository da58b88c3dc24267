package config

import "testing"

func validConfig() Config {
	return Config{
		HTTP:      HTTPConfig{Port: 5050},
		Database:  DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small"},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MissingEmbeddingModel(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Model = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding model")
	}
}

func TestValidate_DefaultAgentMustHaveBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Agents = AgentsConfig{
		Default:  "gemini",
		Backends: map[string]AgentConfig{"openai": {Model: "gpt-4o-mini"}},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for default agent without backend")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Search.MaxDistance != 1.2 {
		t.Errorf("MaxDistance = %v, want 1.2", cfg.Search.MaxDistance)
	}
	if cfg.Search.DefaultLimit != 10 {
		t.Errorf("DefaultLimit = %d, want 10", cfg.Search.DefaultLimit)
	}
	if cfg.Sync.BatchSize != 100 {
		t.Errorf("BatchSize = %d, want 100", cfg.Sync.BatchSize)
	}
	if cfg.Sync.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Sync.Workers)
	}
	if cfg.Agents.Default != "openai" {
		t.Errorf("Agents.Default = %q, want openai", cfg.Agents.Default)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("ShutdownSec = %d, want 10", cfg.HTTP.ShutdownSec)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{Search: SearchConfig{MaxDistance: 0.8, DefaultLimit: 25}}
	cfg.ApplyDefaults()

	if cfg.Search.MaxDistance != 0.8 {
		t.Errorf("MaxDistance = %v, want 0.8", cfg.Search.MaxDistance)
	}
	if cfg.Search.DefaultLimit != 25 {
		t.Errorf("DefaultLimit = %d, want 25", cfg.Search.DefaultLimit)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SHOPSEARCH_TEST_VAR", "redis:6379")

	got := string(expandEnvVars([]byte("addr: ${SHOPSEARCH_TEST_VAR}")))
	if got != "addr: redis:6379" {
		t.Errorf("got %q", got)
	}
}

func TestExpandEnvVars_Default(t *testing.T) {
	got := string(expandEnvVars([]byte("addr: ${SHOPSEARCH_UNSET_VAR:-localhost:6379}")))
	if got != "addr: localhost:6379" {
		t.Errorf("got %q", got)
	}
}

func TestExpandEnvVars_EmptyDefault(t *testing.T) {
	got := string(expandEnvVars([]byte("password: ${SHOPSEARCH_UNSET_VAR:-}")))
	if got != "password: " {
		t.Errorf("got %q", got)
	}
}
