package deterrence

import (
	"context"
	"encoding/json"
	"time"
)

// EventKind names a capture-deterrence observation.
type EventKind string

const (
	KindKeyCombo         EventKind = "key-combo"
	KindVisibilityChange EventKind = "visibility-change"
	KindWindowBlur       EventKind = "window-blur"
	KindDevToolsOpen     EventKind = "devtools-open"
	KindCanvasTamper     EventKind = "canvas-tamper"
	KindStyleTamper      EventKind = "style-tamper"
	KindClipboardAccess  EventKind = "clipboard-access"
	KindMemorySpike      EventKind = "memory-spike"
)

// Confidence grades how strong a heuristic signal is. Most detectors here
// observe side effects, not captures, so low confidence dominates.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Event is one transient deterrence observation. Events are published on the
// bus and counted; they carry no session state of their own.
type Event struct {
	Kind       EventKind  `json:"kind"`
	DetectedAt time.Time  `json:"detected_at"`
	Confidence Confidence `json:"confidence"`
	Detail     string     `json:"detail,omitempty"`
}

// Inspection is a snapshot of the rendering environment the polling detectors
// work from.
type Inspection struct {
	ViewportDelta     int
	CanvasTampered    bool
	StyleTampered     bool
	ClipboardReadable bool
	HeapBytes         uint64
}

// Inspector yields inspections of the active rendering environment.
type Inspector interface {
	Inspect(ctx context.Context) (Inspection, error)
}

// Detector is one polling heuristic. Check returns a nil event when nothing
// was observed this tick.
type Detector interface {
	Kind() EventKind
	Interval() time.Duration
	Check(ctx context.Context, insp Inspection) *Event
}

func marshalEvent(ev Event) json.RawMessage {
	payload, _ := json.Marshal(ev)
	return payload
}
