// Package notify delivers workflow notifications to employees. Delivery is
// strictly fire-and-forget: publishing can never fail or block the clearance
// transition that triggered it. Connected websocket clients receive events in
// real time; events for absent employees are dropped.
package notify

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/avissapr/nodues/internal/security"
)

// Event types published by the clearance service.
const (
	EventApplicationRejected = "application_rejected"
	EventHODApproved         = "hod_approved"
	EventCertificatesReady   = "certificates_ready"
)

// Event is a structured notification payload.
type Event struct {
	EmployeeID string         `json:"employeeId"`
	CaseID     string         `json:"caseId"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	SentAt     time.Time      `json:"sentAt"`
}

// Publisher is the surface the clearance service sees.
type Publisher interface {
	Publish(Event)
}

// Manager fans events out to websocket subscribers. It is explicitly
// constructed and carries its own lifecycle: Start launches the dispatch
// loop, Stop drains it. No package-level state.
type Manager struct {
	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	mu   sync.RWMutex
	subs map[string]map[*websocket.Conn]struct{}

	logger *security.Logger
}

// NewManager creates a stopped manager with the given event buffer size.
func NewManager(buffer int, logger *security.Logger) *Manager {
	if buffer <= 0 {
		buffer = 64
	}
	return &Manager{
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
		subs:   make(map[string]map[*websocket.Conn]struct{}),
		logger: logger,
	}
}

// Start launches the dispatch loop.
func (m *Manager) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case e := <-m.events:
				m.dispatch(e)
			case <-m.done:
				return
			}
		}
	}()
}

// Stop shuts the dispatch loop down and closes all subscriber connections.
func (m *Manager) Stop() {
	close(m.done)
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conns := range m.subs {
		for conn := range conns {
			conn.Close()
		}
	}
	m.subs = make(map[string]map[*websocket.Conn]struct{})
}

// Publish enqueues an event without blocking. When the buffer is full the
// event is dropped and logged; the triggering transaction is unaffected.
func (m *Manager) Publish(e Event) {
	if e.SentAt.IsZero() {
		e.SentAt = time.Now()
	}
	select {
	case m.events <- e:
	default:
		if m.logger != nil {
			m.logger.Warn("notification buffer full, event dropped: " + e.Type)
		}
	}
}

// HandleWebSocket registers conn for the employee and blocks until the client
// disconnects. Intended to be called from a websocket.New handler with the
// authenticated employee id stored in the connection locals.
func (m *Manager) HandleWebSocket(conn *websocket.Conn) {
	employeeID, _ := conn.Locals("employee_id").(string)
	if employeeID == "" {
		conn.Close()
		return
	}

	m.subscribe(employeeID, conn)
	defer m.unsubscribe(employeeID, conn)

	// Reads are discarded; the channel exists only to detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (m *Manager) subscribe(employeeID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs[employeeID] == nil {
		m.subs[employeeID] = make(map[*websocket.Conn]struct{})
	}
	m.subs[employeeID][conn] = struct{}{}
}

func (m *Manager) unsubscribe(employeeID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs[employeeID], conn)
	if len(m.subs[employeeID]) == 0 {
		delete(m.subs, employeeID)
	}
}

func (m *Manager) dispatch(e Event) {
	m.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(m.subs[e.EmployeeID]))
	for conn := range m.subs[e.EmployeeID] {
		conns = append(conns, conn)
	}
	m.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(e); err != nil && m.logger != nil {
			m.logger.Warn("notification write failed for " + e.EmployeeID)
		}
	}
}
