package bootstrap

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/artpar/specgate/config"
)

func TestApplyConfig_ConcurrentReaders(t *testing.T) {
	initial, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	logger := zerolog.Nop()
	a, err := New(Options{Config: initial, Logger: &logger})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	defer a.Shutdown()

	reloaded := *initial
	reloaded.Handlers = config.DefaultHandlers()[:1]

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			a.applyConfig(&reloaded)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_ = a.CheckSpecs(context.Background(), nil)
			_ = a.RegisterHandlers(context.Background())
		}
	}()
	wg.Wait()

	if got := a.Config(); got != &reloaded {
		t.Error("Config() should return the reloaded configuration")
	}
	if n := len(a.CheckSpecs(context.Background(), nil)); n != 1 {
		t.Errorf("CheckSpecs after reload checked %d handlers, want 1", n)
	}
}
