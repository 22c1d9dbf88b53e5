package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/velmark/cybercity-backend/internal/platform/logger"
	"github.com/velmark/cybercity-backend/internal/realtime"
)

type fakeBus struct {
	publishErr error
	published  []realtime.Message
}

func (f *fakeBus) Publish(_ context.Context, msg realtime.Message) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeBus) StartForwarder(context.Context, func(m realtime.Message)) error { return nil }
func (f *fakeBus) Close() error                                                   { return nil }

type localSink struct {
	msgs []realtime.Message
}

func (l *localSink) Broadcast(m realtime.Message) {
	l.msgs = append(l.msgs, m)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestPublisherHappyPathLeavesLocalToForwarder(t *testing.T) {
	fb := &fakeBus{}
	local := &localSink{}
	p := NewPublisher(fb, local, testLogger(t))

	p.Broadcast(realtime.NewAgentUpdate(uuid.New(), 0.5, 80))

	if len(fb.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(fb.published))
	}
	// Local clients get the message back through the forwarder loopback;
	// a direct local delivery here would duplicate it.
	if len(local.msgs) != 0 {
		t.Fatalf("publish success must not also deliver locally, got %d", len(local.msgs))
	}
}

func TestPublisherDeliversLocallyOnPublishFailure(t *testing.T) {
	fb := &fakeBus{publishErr: errors.New("connection reset")}
	local := &localSink{}
	p := NewPublisher(fb, local, testLogger(t))

	msg := realtime.NewAgentUpdate(uuid.New(), 0.4, 60)
	p.Broadcast(msg)

	if len(local.msgs) != 1 {
		t.Fatalf("expected local delivery on publish failure, got %d messages", len(local.msgs))
	}
	if local.msgs[0].Type != realtime.MessageAgentUpdate {
		t.Fatalf("wrong message delivered locally: %s", local.msgs[0].Type)
	}
}
