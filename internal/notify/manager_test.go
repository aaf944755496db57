package notify

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avissapr/nodues/internal/security"
)

func capturedLogger() (*security.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := security.NewLogger()
	logger.SetOutput(log.New(&buf, "", 0))
	return logger, &buf
}

func TestPublishNeverBlocks(t *testing.T) {
	logger, buf := capturedLogger()
	m := NewManager(2, logger)
	// The dispatch loop is intentionally not started: the buffer fills and
	// further events must be dropped, not block the caller.

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			m.Publish(Event{EmployeeID: "E100", Type: EventHODApproved})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full buffer")
	}

	assert.Contains(t, buf.String(), "event dropped")
}

func TestPublishStampsSentAt(t *testing.T) {
	m := NewManager(4, nil)

	before := time.Now()
	m.Publish(Event{EmployeeID: "E100", Type: EventCertificatesReady})

	e := <-m.events
	assert.False(t, e.SentAt.IsZero())
	assert.False(t, e.SentAt.Before(before))
}

func TestPublishKeepsExplicitSentAt(t *testing.T) {
	m := NewManager(4, nil)
	stamp := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	m.Publish(Event{EmployeeID: "E100", Type: EventApplicationRejected, SentAt: stamp})

	e := <-m.events
	assert.Equal(t, stamp, e.SentAt)
}

func TestStartStop(t *testing.T) {
	m := NewManager(4, nil)
	m.Start()

	// Events for employees with no open connection are consumed and dropped.
	m.Publish(Event{EmployeeID: "E100", Type: EventHODApproved})

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestDefaultBufferSize(t *testing.T) {
	m := NewManager(0, nil)
	assert.Equal(t, 64, cap(m.events))
}

func TestDroppedEventNamesItsType(t *testing.T) {
	logger, buf := capturedLogger()
	m := NewManager(1, logger)

	m.Publish(Event{Type: EventHODApproved})
	m.Publish(Event{Type: EventCertificatesReady})

	lines := strings.TrimSpace(buf.String())
	assert.Contains(t, lines, EventCertificatesReady)
}
