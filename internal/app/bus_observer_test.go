package app

import (
	"errors"
	"testing"
	"time"

	"github.com/skobkin/probelink/internal/bus"
	"github.com/skobkin/probelink/internal/connectors"
	"github.com/skobkin/probelink/internal/transport"
)

type published struct {
	topic string
	msg   any
}

type recordingBus struct {
	events []published
}

func (b *recordingBus) Publish(topic string, msg any) {
	b.events = append(b.events, published{topic: topic, msg: msg})
}

func (b *recordingBus) Subscribe(...string) bus.Subscription { return make(bus.Subscription) }
func (b *recordingBus) Unsubscribe(bus.Subscription) {}
func (b *recordingBus) Close()                                  {}

func TestBusObserverPublishesLifecycleAndFrames(t *testing.T) {
	b := &recordingBus{}
	fixed := time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)
	obs := NewBusObserver(b)
	obs.now = func() time.Time { return fixed }

	obs.Connected(transport.KindSerial, "/dev/ttyACM0")
	payload := []byte("+#!GA#")
	obs.FrameOut(payload)
	payload[0] = 'X'
	obs.FrameIn([]byte{0x4b, 0x00})
	obs.Disconnected("/dev/ttyACM0", errors.New("gone"))

	if len(b.events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(b.events))
	}

	conn, ok := b.events[0].msg.(connectors.ConnStatus)
	if b.events[0].topic != connectors.TopicConnStatus || !ok {
		t.Fatalf("unexpected first event: %+v", b.events[0])
	}
	if conn.State != connectors.ConnectionStateConnected || conn.TransportName != "serial" || !conn.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected connected status: %+v", conn)
	}

	out, ok := b.events[1].msg.(connectors.RawFrame)
	if b.events[1].topic != connectors.TopicRawFrameOut || !ok {
		t.Fatalf("unexpected second event: %+v", b.events[1])
	}
	if string(out.Data) != "+#!GA#" || out.Len != 6 || out.Target != "/dev/ttyACM0" {
		t.Fatalf("expected frame data to be copied, got %+v", out)
	}

	in, ok := b.events[2].msg.(connectors.RawFrame)
	if b.events[2].topic != connectors.TopicRawFrameIn || !ok || in.Hex != "4b00" || in.Direction != connectors.DirectionIn {
		t.Fatalf("unexpected inbound frame: %+v", b.events[2])
	}

	gone, ok := b.events[3].msg.(connectors.ConnStatus)
	if !ok || gone.State != connectors.ConnectionStateDisconnected || gone.Err != "gone" {
		t.Fatalf("unexpected disconnected status: %+v", b.events[3])
	}
}
