package connectors

import "time"

// ConnectionState describes the probe link lifecycle.
type ConnectionState string

const (
	ConnectionStateDisconnected ConnectionState = "disconnected"
	ConnectionStateConnected    ConnectionState = "connected"
)

// ConnStatus is a bus event snapshot of the probe link.
type ConnStatus struct {
	State         ConnectionState
	Err           string
	TransportName string
	Target        string
	Timestamp     time.Time
}

// Direction tells whether a frame went to or came from the probe.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// RawFrame carries one message as seen on the wire.
type RawFrame struct {
	Direction Direction
	Target    string
	Data      []byte
	Hex       string
	Len       int
	Timestamp time.Time
}
