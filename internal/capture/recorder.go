package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skobkin/probelink/internal/bus"
	"github.com/skobkin/probelink/internal/connectors"
)

var recorderTopics = []string{
	connectors.TopicConnStatus,
	connectors.TopicRawFrameOut,
	connectors.TopicRawFrameIn,
}

// Recorder turns bus events into capture sessions and frames.
//
// A session starts on every connected status and ends on the following
// disconnected status. Frames seen outside a session are dropped.
type Recorder struct {
	bus    bus.MessageBus
	repo   *Repo
	writer *WriterQueue
	logger *slog.Logger
	newID  func() string

	sub       bus.Subscription
	done      chan struct{}
	sessionID string
}

func NewRecorder(b bus.MessageBus, repo *Repo, writer *WriterQueue, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Recorder{
		bus:    b,
		repo:   repo,
		writer: writer,
		logger: logger.With("component", "capture"),
		newID:  func() string { return uuid.NewString() },
		done:   make(chan struct{}),
	}
}

// Start subscribes to the bus. Events are handled on a dedicated goroutine
// until Stop is called or ctx is done.
func (r *Recorder) Start(ctx context.Context) {
	r.sub = r.bus.Subscribe(recorderTopics...)
	go r.loop(ctx)
}

// Stop unsubscribes, drains events that were already delivered and waits
// for queued writes to finish.
func (r *Recorder) Stop(ctx context.Context) error {
	if r.sub != nil {
		r.bus.Unsubscribe(r.sub)
		select {
		case <-r.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return r.writer.Flush(ctx)
}

// SessionID returns the id of the capture session in progress, if any.
// It is only safe to call after Stop.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

func (r *Recorder) loop(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-r.sub:
			if !ok {
				return
			}
			r.handle(raw)
		}
	}
}

func (r *Recorder) handle(raw any) {
	switch ev := raw.(type) {
	case connectors.ConnStatus:
		r.handleStatus(ev)
	case connectors.RawFrame:
		r.handleFrame(ev)
	default:
		r.logger.Debug("ignoring unexpected event", "type", payloadType(raw))
	}
}

func (r *Recorder) handleStatus(ev connectors.ConnStatus) {
	switch ev.State {
	case connectors.ConnectionStateConnected:
		if r.sessionID != "" {
			r.endSession(ev.Timestamp, "superseded by new connection")
		}
		id := r.newID()
		r.sessionID = id
		sess := Session{
			ID:        id,
			Target:    ev.Target,
			Transport: ev.TransportName,
			StartedAt: timestampOrNow(ev.Timestamp),
		}
		r.logger.Info("capture session started", "session", id, "target", ev.Target)
		r.writer.Enqueue("start session", func(ctx context.Context) error {
			return r.repo.StartSession(ctx, sess)
		})
	case connectors.ConnectionStateDisconnected:
		if r.sessionID == "" {
			return
		}
		r.endSession(ev.Timestamp, ev.Err)
	}
}

func (r *Recorder) endSession(at time.Time, errText string) {
	id := r.sessionID
	r.sessionID = ""
	endedAt := timestampOrNow(at)
	r.logger.Info("capture session ended", "session", id)
	r.writer.Enqueue("end session", func(ctx context.Context) error {
		return r.repo.EndSession(ctx, id, endedAt, errText)
	})
}

func (r *Recorder) handleFrame(ev connectors.RawFrame) {
	if r.sessionID == "" {
		r.logger.Debug("dropping frame outside capture session", "direction", ev.Direction, "len", ev.Len)
		return
	}
	frame := Frame{
		SessionID:  r.sessionID,
		Direction:  string(ev.Direction),
		Payload:    append([]byte(nil), ev.Data...),
		RecordedAt: timestampOrNow(ev.Timestamp),
	}
	r.writer.Enqueue("append frame", func(ctx context.Context) error {
		return r.repo.AppendFrame(ctx, frame)
	})
}

func timestampOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}

	return t
}

func payloadType(v any) string {
	if v == nil {
		return "<nil>"
	}

	return fmt.Sprintf("%T", v)
}
