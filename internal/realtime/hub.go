// Package realtime pushes funnel activity to connected admin dashboards.
package realtime

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/v3/websocket"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/seuros/studybuddy/internal/logging"
)

// HubOptions tune a Hub. Zero values take the defaults.
type HubOptions struct {
	// QueueSize bounds the pending broadcasts shared by all dashboards.
	QueueSize int
	// SendBuffer bounds the backlog of one dashboard before it is dropped.
	SendBuffer int
	// PingInterval is how often idle connections are pinged.
	PingInterval time.Duration
}

func (o HubOptions) withDefaults() HubOptions {
	if o.QueueSize <= 0 {
		o.QueueSize = 512
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	return o
}

// Hub fans payloads out to every connected dashboard. The dashboard set is only
// touched by the run goroutine.
type Hub struct {
	opts HubOptions

	join    chan *dashboard
	leave   chan *dashboard
	queue   chan []byte
	countRq chan chan int

	done     chan struct{}
	stopOnce sync.Once
}

// conn is the part of a websocket connection the hub uses.
type conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

type dashboard struct {
	hub  *Hub
	conn conn
	out  chan []byte
	tick <-chan time.Time
	stop func()
}

// NewHub starts a hub with default options. Stop it with Close.
func NewHub() *Hub {
	return NewHubWithOptions(HubOptions{})
}

// NewHubWithOptions starts a hub. Stop it with Close.
func NewHubWithOptions(opts HubOptions) *Hub {
	opts = opts.withDefaults()
	h := &Hub{
		opts:    opts,
		join:    make(chan *dashboard),
		leave:   make(chan *dashboard),
		queue:   make(chan []byte, opts.QueueSize),
		countRq: make(chan chan int),
		done:    make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	dashboards := make(map[*dashboard]struct{})
	for {
		select {
		case d := <-h.join:
			dashboards[d] = struct{}{}
		case d := <-h.leave:
			if _, ok := dashboards[d]; ok {
				delete(dashboards, d)
				close(d.out)
				_ = d.conn.Close()
			}
		case msg := <-h.queue:
			for d := range dashboards {
				select {
				case d.out <- msg:
				default:
					delete(dashboards, d)
					close(d.out)
					logging.L().Debug("dropped slow dashboard")
				}
			}
		case rq := <-h.countRq:
			rq <- len(dashboards)
		case <-h.done:
			for d := range dashboards {
				delete(dashboards, d)
				close(d.out)
			}
			return
		}
	}
}

// Close disconnects every dashboard and stops the hub. It is idempotent.
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast queues msg for every dashboard. It never blocks: a full queue drops
// the payload.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.queue <- msg:
	default:
		logging.L().Warn("dropping realtime payload", zap.Int("queue_size", h.opts.QueueSize))
	}
}

// ClientCount reports the number of connected dashboards.
func (h *Hub) ClientCount() int {
	rq := make(chan int, 1)
	select {
	case h.countRq <- rq:
		return <-rq
	case <-h.done:
		return 0
	}
}

func (h *Hub) newDashboard(c conn) *dashboard {
	ticker := time.NewTicker(h.opts.PingInterval)
	return &dashboard{
		hub:  h,
		conn: c,
		out:  make(chan []byte, h.opts.SendBuffer),
		tick: ticker.C,
		stop: ticker.Stop,
	}
}

// serve registers the dashboard and blocks until its connection ends.
func (h *Hub) serve(d *dashboard) {
	select {
	case h.join <- d:
	case <-h.done:
		d.stop()
		_ = d.conn.Close()
		return
	}
	go d.writeLoop()
	d.readLoop()
}

// Handler upgrades the request and serves the dashboard until it disconnects.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		h.serve(h.newDashboard(c))
	})
}

// readLoop discards client frames; it exists to notice the disconnect.
func (d *dashboard) readLoop() {
	defer func() {
		select {
		case d.hub.leave <- d:
		case <-d.hub.done:
		}
	}()
	for {
		if _, _, err := d.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (d *dashboard) writeLoop() {
	defer func() {
		d.stop()
		_ = d.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-d.out:
			if !ok {
				_ = d.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := d.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-d.tick:
			if err := d.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
