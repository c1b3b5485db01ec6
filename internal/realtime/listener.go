package realtime

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/seuros/studybuddy/internal/analytics"
	"github.com/seuros/studybuddy/internal/logging"
)

// ChannelName is the NOTIFY channel shared by every server instance.
const ChannelName = "studybuddy_events"

// HubPublisher feeds analytics writes straight into a hub. It serves the
// single-process local store.
type HubPublisher struct {
	hub *Hub
}

var _ analytics.Listener = (*HubPublisher)(nil)

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) EventRecorded(e analytics.Event) {
	p.publish(EventMessage(e))
}

func (p *HubPublisher) ApplicationSubmitted(a analytics.Application) {
	p.publish(ApplicationMessage(a))
}

func (p *HubPublisher) publish(m Message) {
	data, err := m.encode()
	if err != nil {
		logging.L().Warn("failed to marshal realtime payload", zap.Error(err))
		return
	}
	p.hub.Broadcast(data)
}

// PGNotifier publishes analytics writes with pg_notify so that the listener of
// every instance sees them.
type PGNotifier struct {
	db      *sql.DB
	timeout time.Duration
}

var _ analytics.Listener = (*PGNotifier)(nil)

func NewPGNotifier(db *sql.DB) *PGNotifier {
	return &PGNotifier{db: db, timeout: 2 * time.Second}
}

func (n *PGNotifier) EventRecorded(e analytics.Event) {
	n.notify(EventMessage(e))
}

func (n *PGNotifier) ApplicationSubmitted(a analytics.Application) {
	n.notify(ApplicationMessage(a))
}

func (n *PGNotifier) notify(m Message) {
	data, err := m.encode()
	if err != nil {
		logging.L().Warn("failed to marshal realtime payload", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	if _, err := n.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", ChannelName, string(data)); err != nil {
		logging.L().Warn("failed to send realtime notification", zap.Error(err))
	}
}

// StartListener subscribes to ChannelName and relays notifications to hub until
// ctx is cancelled.
func StartListener(ctx context.Context, databaseURL string, hub *Hub) error {
	listener := pq.NewListener(databaseURL, 5*time.Second, time.Minute, func(event pq.ListenerEventType, err error) {
		if err != nil {
			logging.L().Warn("realtime listener event", zap.Int("event", int(event)), zap.Error(err))
		}
	})

	if err := listener.Listen(ChannelName); err != nil {
		_ = listener.Close()
		return err
	}

	go relay(ctx, listener.Notify, listener.Ping, hub, func() { _ = listener.Close() })
	return nil
}

func relay(ctx context.Context, notify <-chan *pq.Notification, ping func() error, hub *Hub, closeFn func()) {
	defer closeFn()

	keepalive := time.NewTicker(time.Minute)
	defer keepalive.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notify:
			if !ok {
				return
			}
			// nil after a reconnect
			if n == nil {
				continue
			}
			hub.Broadcast([]byte(n.Extra))
		case <-keepalive.C:
			if err := ping(); err != nil {
				logging.L().Warn("realtime listener ping failed", zap.Error(err))
			}
		}
	}
}
