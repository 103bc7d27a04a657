package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/specgate/adapters/metrics"
	"github.com/artpar/specgate/config"
)

func TestHolder_Get(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if got := h.Get(); got.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", got.Server.Port)
	}
}

func TestHolder_ReloadNotifies(t *testing.T) {
	path := writeConfig(t, validConfig())

	reg := prometheus.NewRegistry()
	h, err := config.NewHolder(path, zerolog.Nop(), config.WithReloadMetrics(metrics.NewWithRegistry(reg)))
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var got *config.Config
	h.OnChange(func(cfg *config.Config) { got = cfg })

	if err := os.WriteFile(path, []byte("server:\n  port: 9001\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if got == nil || got.Server.Port != 9001 {
		t.Errorf("listener got %+v", got)
	}
	if h.Get().Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want 9001", h.Get().Server.Port)
	}
}

func TestHolder_ReloadInvalidConfigKeepsOld(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	called := false
	h.OnChange(func(*config.Config) { called = true })

	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := h.Reload(); err == nil {
		t.Fatal("expected reload error")
	}

	if h.Get().Server.Port != 9000 {
		t.Errorf("old config not kept, port = %d", h.Get().Server.Port)
	}
	if called {
		t.Error("listener called for failed reload")
	}
}

func TestHolder_WatchConfigFile(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := h.Watch(); err != nil {
		t.Fatalf("Watch error: %v", err)
	}

	if err := os.WriteFile(path, []byte("server:\n  port: 9500\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	waitFor(t, func() bool { return h.Get().Server.Port == 9500 })
}

func TestHolder_WatchSpecDir(t *testing.T) {
	dir := t.TempDir()
	specDir := filepath.Join(dir, "specs")
	if err := os.Mkdir(specDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "config.yaml")
	content := "specs:\n  dirs: [\"" + specDir + "\"]\n  watch: true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	reloads := 0
	h.OnChange(func(*config.Config) {
		mu.Lock()
		reloads++
		mu.Unlock()
	})

	if err := h.Watch(); err != nil {
		t.Fatalf("Watch error: %v", err)
	}

	if err := os.WriteFile(filepath.Join(specDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(specDir, "svc.json"), []byte(`{}`), 0644); err != nil {
		t.Fatalf("write spec: %v", err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reloads > 0
	})
}

func TestHolder_StopTwice(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	h.WatchSignals()
	h.Stop()
	h.Stop()
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = h.Get().Server.Port
		}()
		go func() {
			defer wg.Done()
			h.Reload()
		}()
	}
	wg.Wait()
}

func TestReloadableFields(t *testing.T) {
	reloadable := config.ReloadableFields()
	for _, f := range config.NonReloadableFields() {
		for _, r := range reloadable {
			if f == r {
				t.Errorf("field %s is listed as both reloadable and non-reloadable", f)
			}
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func validConfig() string {
	return `
server:
  port: 9000

handlers:
  - name: echo
    kind: echo
    spec: core.echo
`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
