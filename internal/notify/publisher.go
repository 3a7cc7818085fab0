package notify

import (
	"encoding/json"
	"log"

	"github.com/rsonetv/motoauto-bidding/internal/models"

	"github.com/nats-io/nats.go"
)

// Publisher broadcasts auction state changes to observers. Delivery is
// fire-and-forget and at-most-once; callers never treat it as a store.
type Publisher interface {
	BidAccepted(ev models.BidAcceptedEvent)
	AuctionExtended(ev models.AuctionExtendedEvent)
	AuctionClosed(ev models.AuctionClosedEvent)
}

// Noop discards every event.
type Noop struct{}

func (Noop) BidAccepted(models.BidAcceptedEvent)         {}
func (Noop) AuctionExtended(models.AuctionExtendedEvent) {}
func (Noop) AuctionClosed(models.AuctionClosedEvent)     {}

// Multi fans one event out to several publishers.
type Multi []Publisher

func (m Multi) BidAccepted(ev models.BidAcceptedEvent) {
	for _, p := range m {
		p.BidAccepted(ev)
	}
}

func (m Multi) AuctionExtended(ev models.AuctionExtendedEvent) {
	for _, p := range m {
		p.AuctionExtended(ev)
	}
}

func (m Multi) AuctionClosed(ev models.AuctionClosedEvent) {
	for _, p := range m {
		p.AuctionClosed(ev)
	}
}

// NATSPublisher publishes events on per-auction subjects
// (auctions.<id>.bid_accepted and friends) so subscribers can filter.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *log.Logger
}

// NewNATSPublisher connects to the NATS server at the given URL.
func NewNATSPublisher(url string, logger *log.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

func (p *NATSPublisher) BidAccepted(ev models.BidAcceptedEvent) {
	p.publish("auctions."+ev.AuctionID+".bid_accepted", ev)
}

func (p *NATSPublisher) AuctionExtended(ev models.AuctionExtendedEvent) {
	p.publish("auctions."+ev.AuctionID+".auction_extended", ev)
}

func (p *NATSPublisher) AuctionClosed(ev models.AuctionClosedEvent) {
	p.publish("auctions."+ev.AuctionID+".auction_closed", ev)
}

// Close drains the underlying connection.
func (p *NATSPublisher) Close() {
	p.conn.Close()
}

func (p *NATSPublisher) publish(subject string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Printf("failed to marshal event for %s: %v", subject, err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Printf("failed to publish to %s: %v", subject, err)
	}
}
