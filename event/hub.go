package event

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/uno-framework/uno/ulog"
)

const (
	pingInterval = time.Second * 30
	writeWait    = time.Second * 10
	pongWait     = time.Second * 75
)

// client is one websocket subscriber with its topic filters.
type client struct {
	id       string
	conn     *websocket.Conn
	patterns []string
	mu       sync.Mutex
}

func (c *client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait))
}

// Hub fans bus messages out to websocket clients. One bus subscription
// backs any number of sockets; each socket sees only topics matching its
// patterns.
type Hub struct {
	bus     *Bus
	clients cmap.ConcurrentMap[string, *client]
	stop    func()
}

func NewHub(bus *Bus) *Hub {
	return &Hub{bus: bus, clients: cmap.New[*client]()}
}

// Run subscribes to every topic and pumps messages until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	messages, stop := h.bus.Subscribe(ctx, "*")
	h.stop = stop
	go h.keepalive(ctx)
	go func() {
		for msg := range messages {
			for item := range h.clients.IterBuffered() {
				c := item.Val
				for _, pattern := range c.patterns {
					if !MatchTopic(pattern, msg.Topic) {
						continue
					}
					if err := c.send(msg); err != nil {
						ulog.Debug().Err(err).Str("client", c.id).Msg("websocket send failed, detaching")
						h.Detach(c.id)
					}
					break
				}
			}
		}
	}()
}

// Attach registers an upgraded connection with its topic patterns and
// starts its read loop (reads are discarded, the loop exists to surface
// closes and pongs).
func (h *Hub) Attach(id string, conn *websocket.Conn, patterns []string) {
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}
	c := &client{id: id, conn: conn, patterns: patterns}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte{}, time.Now().Add(writeWait))
	})
	h.clients.Set(id, c)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.Detach(id)
				return
			}
		}
	}()
}

func (h *Hub) Detach(id string) {
	if c, ok := h.clients.Get(id); ok {
		h.clients.Remove(id)
		c.conn.Close()
	}
}

func (h *Hub) Count() int { return h.clients.Count() }

func (h *Hub) keepalive(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if h.stop != nil {
				h.stop()
			}
			return
		case <-ticker.C:
			for item := range h.clients.IterBuffered() {
				if err := item.Val.ping(); err != nil {
					h.Detach(item.Key)
				}
			}
		}
	}
}
