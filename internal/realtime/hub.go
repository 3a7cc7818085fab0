package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/rsonetv/motoauto-bidding/internal/models"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// Hub fans auction events out to websocket clients subscribed per auction.
// It implements notify.Publisher. Delivery is best-effort: a client whose
// send buffer is full is evicted rather than allowed to block the engine;
// such clients recover by re-reading current state over HTTP.
type Hub struct {
	logger *log.Logger

	mu          sync.Mutex
	subscribers map[string]map[*client]bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// envelope is the wire format pushed to clients.
type envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// NewHub creates an empty Hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		logger:      logger,
		subscribers: make(map[string]map[*client]bool),
	}
}

func (h *Hub) BidAccepted(ev models.BidAcceptedEvent) {
	h.broadcast(ev.AuctionID, envelope{Type: "bid_accepted", Payload: ev})
}

func (h *Hub) AuctionExtended(ev models.AuctionExtendedEvent) {
	h.broadcast(ev.AuctionID, envelope{Type: "auction_extended", Payload: ev})
}

func (h *Hub) AuctionClosed(ev models.AuctionClosedEvent) {
	h.broadcast(ev.AuctionID, envelope{Type: "auction_closed", Payload: ev})
}

// ServeWS upgrades the request and subscribes the client to one auction's
// event stream.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	auctionID := r.PathValue("auctionId")
	if auctionID == "" {
		http.Error(w, "auction id is required", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(auctionID, c)

	go c.writePump()
	go h.readPump(auctionID, c)
}

// SubscriberCount reports how many clients watch an auction.
func (h *Hub) SubscriberCount(auctionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[auctionID])
}

func (h *Hub) broadcast(auctionID string, env envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		h.logger.Printf("marshal %s event: %v", env.Type, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subscribers[auctionID] {
		select {
		case c.send <- msg:
		default:
			// Slow client; evict to keep broadcasting non-blocking.
			h.dropLocked(auctionID, c)
		}
	}
}

func (h *Hub) register(auctionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[auctionID]
	if !ok {
		set = make(map[*client]bool)
		h.subscribers[auctionID] = set
	}
	set[c] = true
}

func (h *Hub) unregister(auctionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(auctionID, c)
}

func (h *Hub) dropLocked(auctionID string, c *client) {
	set := h.subscribers[auctionID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.subscribers, auctionID)
	}
	close(c.send)
}

// readPump discards inbound frames; the stream is one-way. It exists to
// observe pongs and connection teardown.
func (h *Hub) readPump(auctionID string, c *client) {
	defer h.unregister(auctionID, c)

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
