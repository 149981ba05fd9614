package stream

import (
	"encoding/json"
	"time"

	"github.com/RMahshie/pulsesim/pkg/models"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Connect dials NATS with reconnects enabled
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("pulsesim"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

// natsConn is the subset of *nats.Conn used for publishing
type natsConn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher forwards events to <prefix>.<event name>
type NATSPublisher struct {
	conn   natsConn
	prefix string
}

// NewNATSPublisher creates a publisher on an open connection
func NewNATSPublisher(conn natsConn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject returns the subject an event is published on
func (p *NATSPublisher) Subject(event models.Event) string {
	return p.prefix + "." + event.Event
}

// Publish encodes event and sends it; failures are logged and dropped
func (p *NATSPublisher) Publish(event models.Event) {
	b, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event", event.Event).Msg("Failed to encode event")
		return
	}
	if err := p.conn.Publish(p.Subject(event), b); err != nil {
		log.Warn().Err(err).Str("subject", p.Subject(event)).Msg("NATS publish failed")
	}
}

// Publisher is anything that accepts measurement events
type Publisher interface {
	Publish(event models.Event)
}

// Fanout delivers every event to each publisher in order
type Fanout []Publisher

// Publish forwards event to all publishers
func (f Fanout) Publish(event models.Event) {
	for _, p := range f {
		p.Publish(event)
	}
}
