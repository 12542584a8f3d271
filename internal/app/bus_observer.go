package app

import (
	"encoding/hex"
	"time"

	"github.com/skobkin/probelink/internal/bus"
	"github.com/skobkin/probelink/internal/connectors"
	"github.com/skobkin/probelink/internal/transport"
)

// BusObserver republishes session notifications on the message bus.
type BusObserver struct {
	bus    bus.MessageBus
	now    func() time.Time
	target string
}

var _ transport.Observer = (*BusObserver)(nil)

func NewBusObserver(b bus.MessageBus) *BusObserver {
	return &BusObserver{bus: b, now: time.Now}
}

func (o *BusObserver) Connected(kind transport.Kind, target string) {
	o.target = target
	o.bus.Publish(connectors.TopicConnStatus, connectors.ConnStatus{
		State:         connectors.ConnectionStateConnected,
		TransportName: string(kind),
		Target:        target,
		Timestamp:     o.now(),
	})
}

func (o *BusObserver) Disconnected(target string, err error) {
	status := connectors.ConnStatus{
		State:     connectors.ConnectionStateDisconnected,
		Target:    target,
		Timestamp: o.now(),
	}
	if err != nil {
		status.Err = err.Error()
	}
	if o.target == target {
		o.target = ""
	}
	o.bus.Publish(connectors.TopicConnStatus, status)
}

func (o *BusObserver) FrameOut(payload []byte) {
	o.bus.Publish(connectors.TopicRawFrameOut, o.frame(connectors.DirectionOut, payload))
}

func (o *BusObserver) FrameIn(payload []byte) {
	o.bus.Publish(connectors.TopicRawFrameIn, o.frame(connectors.DirectionIn, payload))
}

// frame copies payload since the session reuses caller buffers.
func (o *BusObserver) frame(dir connectors.Direction, payload []byte) connectors.RawFrame {
	data := append([]byte(nil), payload...)

	return connectors.RawFrame{
		Direction: dir,
		Target:    o.target,
		Data:      data,
		Hex:       hex.EncodeToString(data),
		Len:       len(data),
		Timestamp: o.now(),
	}
}
