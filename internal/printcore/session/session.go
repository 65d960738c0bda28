package session

import (
	"context"
	"time"

	"github.com/noah-isme/secure-print-api/internal/printcore/capability"
	"github.com/noah-isme/secure-print-api/internal/printcore/deterrence"
)

// State is the lifecycle position of a print session. Complete and Failed are
// absorbing: nothing moves a session out of them.
type State string

const (
	StateIdle               State = "idle"
	StateLoading            State = "loading"
	StateCapabilityCheck    State = "capability-check"
	StateRendering          State = "rendering"
	StateAwaitingCompletion State = "awaiting-completion"
	StateComplete           State = "complete"
	StateFailed             State = "failed"
)

// Terminal reports whether the state is absorbing.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Request carries everything needed to open a session for one document.
type Request struct {
	FileID        string
	UserID        string
	OwnerName     string
	WatermarkText string
	IPAddress     string
	UserAgent     string
}

// Descriptor is the document metadata resolved before rendering.
type Descriptor struct {
	Filename string
	URL      string
	MimeType string
}

// DescriptorSource resolves file descriptors for sessions.
type DescriptorSource interface {
	Descriptor(ctx context.Context, fileID string) (Descriptor, error)
}

// AuditEntry records one completed print.
type AuditEntry struct {
	FileID    string
	UserID    string
	Filename  string
	IPAddress string
	UserAgent string
	PrintedAt time.Time
}

// AuditSink persists audit entries. Failures are reported, never retried, and
// never change a session outcome.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// Snapshot is a point-in-time copy of a session, safe to hand to callers.
type Snapshot struct {
	ID          string             `json:"id"`
	FileID      string             `json:"file_id"`
	UserID      string             `json:"user_id"`
	Generation  uint64             `json:"generation"`
	State       State              `json:"state"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  *time.Time         `json:"finished_at,omitempty"`
	ErrorCode   string             `json:"error_code,omitempty"`
	Capability  capability.Report  `json:"capability"`
	Available   bool               `json:"available"`
	Deterrence  []deterrence.Event `json:"deterrence,omitempty"`
	OutputBytes int                `json:"output_bytes"`
}

// session is the controller's mutable record of the active attempt.
type session struct {
	id         string
	fileID     string
	userID     string
	ownerName  string
	filename   string
	ipAddress  string
	userAgent  string
	generation uint64
	state      State
	startedAt  time.Time
	finishedAt *time.Time
	errorCode  string
	capability capability.Report
	available  bool
	events     []deterrence.Event
	output     []byte
	timer      *time.Timer
}

func (s *session) snapshot() Snapshot {
	events := make([]deterrence.Event, len(s.events))
	copy(events, s.events)
	return Snapshot{
		ID:          s.id,
		FileID:      s.fileID,
		UserID:      s.userID,
		Generation:  s.generation,
		State:       s.state,
		StartedAt:   s.startedAt,
		FinishedAt:  s.finishedAt,
		ErrorCode:   s.errorCode,
		Capability:  s.capability,
		Available:   s.available,
		Deterrence:  events,
		OutputBytes: len(s.output),
	}
}
