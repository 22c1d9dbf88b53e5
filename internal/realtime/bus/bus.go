// Package bus bridges realtime broadcasts across backend instances. With a
// bus configured, every instance publishes its messages to the shared
// channel and forwards received messages into its local hub, so WebSocket
// clients see the whole deployment's events no matter which node they hit.
package bus

import (
	"context"

	"github.com/velmark/cybercity-backend/internal/platform/logger"
	"github.com/velmark/cybercity-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}

// Publisher adapts a Bus to the realtime.Broadcaster the engine and
// services expect. On the happy path the message reaches local clients
// through the forwarder loopback, so a Publisher must only be wired in once
// StartForwarder has succeeded. Publish failures are logged and the message
// is delivered straight to this node's own clients.
type Publisher struct {
	bus   Bus
	local realtime.Broadcaster
	log   *logger.Logger
}

func NewPublisher(b Bus, local realtime.Broadcaster, log *logger.Logger) *Publisher {
	return &Publisher{bus: b, local: local, log: log.With("service", "RealtimePublisher")}
}

func (p *Publisher) Broadcast(msg realtime.Message) {
	if err := p.bus.Publish(context.Background(), msg); err != nil {
		p.log.Warn("bus publish failed, delivering locally only", "type", msg.Type, "error", err)
		p.local.Broadcast(msg)
	}
}
