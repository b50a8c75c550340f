package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// Reconnect backoff bounds for the LISTEN connection.
const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
)

// Listener holds a dedicated PostgreSQL connection in LISTEN mode and turns
// incoming notifications into wake signals. The receive loop is the sole
// user of the connection; a broken connection is replaced with exponential
// backoff and LISTEN is re-issued, so a database restart only delays wakes.
type Listener struct {
	connString string
	logger     *slog.Logger

	connMu sync.Mutex
	conn   *pgx.Conn

	// notify carries at most one pending wake; further announcements
	// coalesce into it.
	notify chan ItemsCollected

	cancel context.CancelFunc
	done   chan struct{}
}

// NewListener creates a Listener for the items channel. Call Start to
// connect.
func NewListener(connString string) *Listener {
	return &Listener{
		connString: connString,
		notify:     make(chan ItemsCollected, 1),
		logger:     slog.Default().With("component", "events"),
	}
}

// Start opens the dedicated connection, issues LISTEN, and begins the
// receive loop. The error covers only initial setup; later connection
// failures are retried inside the loop.
func (l *Listener) Start(ctx context.Context) error {
	conn, err := l.connect(ctx)
	if err != nil {
		return err
	}
	l.connMu.Lock()
	l.conn = conn
	l.connMu.Unlock()

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go func() {
		defer close(l.done)
		defer close(l.notify)
		l.receiveLoop(loopCtx)
	}()

	l.logger.Info("NOTIFY listener started", "channel", ItemsChannel)
	return nil
}

// Notifications returns the wake channel. It is closed when the listener
// stops, so consumers can range over it.
func (l *Listener) Notifications() <-chan ItemsCollected {
	return l.notify
}

// Stop ends the receive loop and closes the connection. Only meaningful
// after a successful Start.
func (l *Listener) Stop(ctx context.Context) {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done

	l.connMu.Lock()
	defer l.connMu.Unlock()
	if l.conn != nil {
		_ = l.conn.Close(ctx)
		l.conn = nil
	}
	l.logger.Info("NOTIFY listener stopped")
}

// connect dials a fresh connection and puts it in LISTEN mode.
func (l *Listener) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect for LISTEN: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ItemsChannel}.Sanitize()); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to LISTEN on %s: %w", ItemsChannel, err)
	}
	return conn, nil
}

// receiveLoop blocks on notifications and forwards them as wakes until the
// context is cancelled.
func (l *Listener) receiveLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		l.connMu.Lock()
		conn := l.conn
		l.connMu.Unlock()
		if conn == nil {
			if !l.reconnect(ctx) {
				return
			}
			continue
		}

		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Error("NOTIFY receive error", "error", err)
			l.dropConn(ctx)
			if !l.reconnect(ctx) {
				return
			}
			continue
		}

		var payload ItemsCollected
		if err := json.Unmarshal([]byte(notification.Payload), &payload); err != nil {
			// Still wake: an undecodable announcement is better delivered
			// empty than dropped.
			l.logger.Warn("Undecodable NOTIFY payload", "error", err)
		}
		select {
		case l.notify <- payload:
		default:
			// A wake is already pending; this one coalesces into it.
		}
	}
}

func (l *Listener) dropConn(ctx context.Context) {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	if l.conn != nil {
		_ = l.conn.Close(ctx)
		l.conn = nil
	}
}

// reconnect re-establishes the LISTEN connection, backing off between
// attempts. Returns false when the context ends first.
func (l *Listener) reconnect(ctx context.Context) bool {
	backoff := reconnectBase
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}

		conn, err := l.connect(ctx)
		if err == nil {
			l.connMu.Lock()
			l.conn = conn
			l.connMu.Unlock()
			l.logger.Info("NOTIFY listener reconnected")
			return true
		}

		l.logger.Error("NOTIFY reconnect failed", "error", err, "backoff", backoff.String())
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}
