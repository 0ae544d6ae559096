package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/npratt/reroll/internal/config"
	"github.com/npratt/reroll/internal/events"
)

// Dispatcher is an events sink that notifies every Notifier when a run
// matches. Delivery failures are logged and never affect the run.
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	targets map[string][]string
	done    chan struct{}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(notifiers []Notifier, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		notifiers: notifiers,
		timeout:   timeout,
		logger:    logger,
		targets:   make(map[string][]string),
		done:      make(chan struct{}),
	}
}

// FromConfig builds the notifiers enabled in cfg. bell receives the terminal
// bell; nil disables it. A Telegram bot that fails to connect is logged and
// skipped.
func FromConfig(cfg config.NotifyConfig, bell io.Writer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	var ns []Notifier
	if cfg.Bell && bell != nil {
		ns = append(ns, NewBell(bell))
	}
	if cfg.DiscordWebhook != "" {
		ns = append(ns, NewDiscord(cfg.DiscordWebhook, cfg.Timeout))
	}
	if cfg.TelegramToken != "" {
		tg, err := NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, cfg.Timeout)
		if err != nil {
			logger.Warn("telegram notifications disabled", "error", err)
		} else {
			ns = append(ns, tg)
		}
	}
	return NewDispatcher(ns, cfg.Timeout, logger)
}

// Types lists the events the dispatcher consumes, for Router.SubscribeTypes.
func Types() []events.EventType {
	return []events.EventType{events.EventRunStart, events.EventRunEnd}
}

// Len returns the number of configured notifiers.
func (d *Dispatcher) Len() int {
	return len(d.notifiers)
}

// Start implements events.Sink.
func (d *Dispatcher) Start(ctx context.Context, ch <-chan events.Event) error {
	go d.run(ctx, ch)
	return nil
}

// Stop implements events.Sink. It waits for in-flight notifications.
func (d *Dispatcher) Stop() error {
	<-d.done
	return nil
}

func (d *Dispatcher) run(ctx context.Context, ch <-chan events.Event) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			d.handle(ctx, ev)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev events.Event) {
	switch e := ev.(type) {
	case *events.RunStartEvent:
		d.mu.Lock()
		d.targets[e.RunID] = e.Targets
		d.mu.Unlock()
	case *events.RunEndEvent:
		d.mu.Lock()
		targets := d.targets[e.RunID]
		delete(d.targets, e.RunID)
		d.mu.Unlock()

		if e.Matched() {
			d.Send(ctx, Message{
				RunID:    e.RunID,
				Targets:  targets,
				Detected: e.Detected,
				Attempts: e.Attempts,
				Duration: time.Duration(e.DurationMs) * time.Millisecond,
			})
		}
	}
}

// Send delivers msg to every notifier concurrently and waits for them.
func (d *Dispatcher) Send(ctx context.Context, msg Message) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var wg sync.WaitGroup
	for _, n := range d.notifiers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := n.Notify(ctx, msg); err != nil {
				d.logger.Warn("notification failed", "notifier", n.Name(), "run_id", msg.RunID, "error", err)
				return
			}
			d.logger.Debug("notification sent", "notifier", n.Name(), "run_id", msg.RunID)
		}()
	}
	wg.Wait()
}
