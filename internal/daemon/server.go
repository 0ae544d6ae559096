package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"
	"time"
)

const (
	// maxMessageSize caps one JSON-RPC request.
	maxMessageSize = 1024 * 1024
	// rpcTimeout bounds reading a request and writing its response.
	rpcTimeout = 30 * time.Second
	// probeTimeout bounds the check for a daemon already on the socket.
	probeTimeout = 200 * time.Millisecond
	// socketPermissions keep other users from driving the game window.
	socketPermissions = 0600
)

var (
	// ErrDaemonRunning is returned by Start when this Daemon is already serving.
	ErrDaemonRunning = errors.New("daemon already running")
	// ErrSocketInUse is returned by Start when another process answers on the socket.
	ErrSocketInUse = errors.New("socket in use by another reroll daemon")
)

// Start listens on the Unix socket and serves requests until ctx is done or
// a client calls stop. A socket file left by a dead daemon is replaced; one
// that still accepts connections is not.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrDaemonRunning
	}
	d.mu.Unlock()

	if conn, err := net.DialTimeout("unix", d.sockPath, probeTimeout); err == nil {
		_ = conn.Close()
		return fmt.Errorf("%w: %s", ErrSocketInUse, d.sockPath)
	}
	_ = os.Remove(d.sockPath)

	listener, err := net.Listen("unix", d.sockPath)
	if err != nil {
		return fmt.Errorf("listen on socket: %w", err)
	}

	// Windows has no socket file modes.
	if runtime.GOOS != "windows" {
		if err := os.Chmod(d.sockPath, socketPermissions); err != nil {
			_ = listener.Close()
			return fmt.Errorf("set socket permissions: %w", err)
		}
	}

	d.mu.Lock()
	d.listener = listener
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	d.logger.Info("daemon started", "socket", d.sockPath)
	go d.serve(ctx, listener)

	select {
	case <-ctx.Done():
	case <-d.stopRequested:
		d.logger.Info("stop requested by client")
	}
	return d.Stop()
}

// Stop closes the listener and cleans up resources.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.running = false

	if d.listener != nil {
		if err := d.listener.Close(); err != nil {
			d.logger.Error("error closing listener", "error", err)
		}
		d.listener = nil
	}

	// Remove socket file
	_ = os.Remove(d.sockPath)

	d.logger.Info("daemon stopped")
	return nil
}

// serve accepts connections and dispatches them to handlers.
func (d *Daemon) serve(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				// Check if we're shutting down
				d.mu.RLock()
				running := d.running
				d.mu.RUnlock()
				if !running {
					return
				}
				d.logger.Error("accept error", "error", err)
				continue
			}
		}

		go d.handleConnection(ctx, conn)
	}
}

// handleConnection answers one request per connection.
func (d *Daemon) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(time.Now().Add(rpcTimeout)); err != nil {
		d.logger.Error("set connection deadline", "error", err)
		return
	}

	decoder := json.NewDecoder(io.LimitReader(conn, maxMessageSize))
	encoder := json.NewEncoder(conn)

	var req Request
	if err := decoder.Decode(&req); err != nil {
		_ = encoder.Encode(Response{Error: fmt.Sprintf("decode error: %v", err)})
		return
	}

	start := time.Now()
	resp := d.handleRequest(ctx, &req)
	resp.ID = req.ID
	d.logger.Debug("rpc request", "method", req.Method, "error", resp.Error, "duration", time.Since(start))
	if err := encoder.Encode(resp); err != nil {
		d.logger.Warn("write response failed", "method", req.Method, "error", err)
	}
}
