package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LLMProviders["openrouter"].APIKey != "${OPENROUTER_API_KEY}" {
		t.Error("expected openrouter API key placeholder")
	}
	if cfg.Store.Backend != BackendSQLite || cfg.Conversion.Mode != ConversionLocal {
		t.Errorf("unexpected backends: %+v %+v", cfg.Store, cfg.Conversion)
	}
	if !cfg.Extraction.ASCIIFold || cfg.Extraction.TocFallbackLines != 0 {
		t.Errorf("unexpected extraction defaults: %+v", cfg.Extraction)
	}
	if enabled := cfg.EnabledLLMProviders(); len(enabled) != 1 {
		t.Errorf("expected 1 enabled provider, got %d", len(enabled))
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TEST_OPENROUTER_KEY", "or-key-123")

	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {Type: "openrouter", APIKey: "${TEST_OPENROUTER_KEY}", RateLimit: 60, Enabled: true},
			"literal":    {Type: "openai", APIKey: "direct-key"},
		},
	}

	got := cfg.ToProviderRegistryConfig()
	if got["openrouter"].APIKey != "or-key-123" || got["openrouter"].RateLimit != 60 {
		t.Errorf("openrouter = %+v", got["openrouter"])
	}
	if got["literal"].APIKey != "direct-key" || got["literal"].Enabled {
		t.Errorf("literal = %+v", got["literal"])
	}
}

func TestProviderFor(t *testing.T) {
	d := DefaultsCfg{LLMProvider: "openrouter", CleanupProvider: "openai"}
	tests := map[string]string{
		"titles":     "openrouter",
		"cleanup":    "openai",
		"evaluation": "openrouter",
		"unknown":    "openrouter",
	}
	for task, want := range tests {
		if got := d.ProviderFor(task); got != want {
			t.Errorf("ProviderFor(%q) = %q, want %q", task, got, want)
		}
	}
}

func TestNewManager(t *testing.T) {
	t.Run("file overrides keep section defaults", func(t *testing.T) {
		configFile := writeConfig(t, `
store:
  backend: memory
extraction:
  toc_fallback_lines: 40
prompts:
  - key: chapters.titles.user
    text: "Find the titles."
`)
		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Store.Backend != BackendMemory {
			t.Errorf("backend = %q, want memory", cfg.Store.Backend)
		}
		if cfg.Extraction.TocFallbackLines != 40 || !cfg.Extraction.ASCIIFold {
			t.Errorf("extraction = %+v", cfg.Extraction)
		}
		if cfg.Defaults.LLMProvider != "openrouter" || cfg.Defaults.MaxDeliveries != 3 {
			t.Errorf("defaults = %+v", cfg.Defaults)
		}
		if got := cfg.PromptOverrides()["chapters.titles.user"]; got != "Find the titles." {
			t.Errorf("prompt override = %q", got)
		}
		if mgr.ConfigFile() != configFile {
			t.Errorf("ConfigFile() = %q", mgr.ConfigFile())
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("BOOKBOOST_STORE_BACKEND", "defra")
		mgr, err := NewManager(writeConfig(t, "store:\n  backend: memory\n"))
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.Get().Store.Backend; got != BackendDefra {
			t.Errorf("backend = %q, want defra", got)
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		if _, err := NewManager(writeConfig(t, "store: [unclosed")); err == nil {
			t.Error("expected error for invalid yaml")
		}
	})
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("failed to load written config: %v", err)
	}
	cfg := mgr.Get()
	if cfg.Defra.ContainerName != "bookboost-defra" || cfg.Defaults.MaxWorkers != 8 {
		t.Errorf("round-tripped config = %+v", cfg)
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "defaults:\n  max_workers: 2\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "defaults:\n  max_workers: 2\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = mgr.Get().Defaults.MaxWorkers
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "defaults:\n  max_workers: 2\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if got := mgr.Get().Defaults.MaxWorkers; got != 2 {
		t.Errorf("initial max_workers = %d, want 2", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Int32
	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(int32(cfg.Defaults.MaxWorkers))
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("defaults:\n  max_workers: 5\n"), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 && lastValue.Load() == 5 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Defaults.MaxWorkers; got != 5 {
		t.Errorf("config not updated: max_workers = %d, want 5", got)
	}
	if got := mgr.Get().Defaults.LLMProvider; got != "openrouter" {
		t.Errorf("reload lost defaults: llm_provider = %q", got)
	}
}
