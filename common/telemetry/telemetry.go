package telemetry

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/tagforge/tagsync/common/logger"
)

// Telemetry holds observability components
type Telemetry struct {
	log       *logger.Logger
	pprofAddr string
}

// New creates telemetry components
func New(pprofPort int, log *logger.Logger) *Telemetry {
	return &Telemetry{
		log:       log,
		pprofAddr: fmt.Sprintf("localhost:%d", pprofPort),
	}
}

// Start starts telemetry endpoints
func (t *Telemetry) Start(ctx context.Context) error {
	// Start pprof server
	go func() {
		t.log.Info("pprof server starting", "addr", t.pprofAddr)
		if err := http.ListenAndServe(t.pprofAddr, nil); err != nil {
			t.log.Error("pprof server error", "error", err)
		}
	}()

	return nil
}
