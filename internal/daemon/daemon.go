// Package daemon exposes a long-lived controller over Unix socket RPC.
package daemon

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/npratt/reroll/internal/catalog"
	"github.com/npratt/reroll/internal/config"
	"github.com/npratt/reroll/internal/controller"
)

// Daemon serves control requests for one controller.
type Daemon struct {
	config     *config.Config
	controller *controller.Controller
	catalog    *catalog.Catalog
	sockPath   string
	startTime  time.Time
	logger     *slog.Logger

	listener net.Listener
	running  bool
	mu       sync.RWMutex

	stopOnce      sync.Once
	stopRequested chan struct{}
}

// New creates a Daemon. ctrl and cat may be nil in tests that only exercise
// the transport.
func New(cfg *config.Config, ctrl *controller.Controller, cat *catalog.Catalog, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	return &Daemon{
		config:        cfg,
		controller:    ctrl,
		catalog:       cat,
		sockPath:      cfg.Paths.Socket,
		logger:        logger,
		stopRequested: make(chan struct{}),
	}
}

// Running returns whether the daemon is currently running.
func (d *Daemon) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// StartTime returns when the daemon was started.
func (d *Daemon) StartTime() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.startTime
}

// SocketPath returns the Unix socket path.
func (d *Daemon) SocketPath() string {
	return d.sockPath
}

// StopRequested is closed when a client calls the stop method.
func (d *Daemon) StopRequested() <-chan struct{} {
	return d.stopRequested
}

func (d *Daemon) requestStop() {
	d.stopOnce.Do(func() { close(d.stopRequested) })
}
