package deterrence

import (
	"context"
	"fmt"
	"time"
)

const (
	// DevToolsDelta is the outer/inner width gap, in pixels, beyond which an
	// attached inspector pane is assumed.
	DevToolsDelta = 160

	// MemoryGrowthRatio is the heap growth over baseline that counts as a
	// capture-tool spike.
	MemoryGrowthRatio = 0.20
)

// DevToolsDetector flags a docked developer-tools pane from the viewport
// size delta.
type DevToolsDetector struct {
	Every     time.Duration
	Threshold int
}

func (d *DevToolsDetector) Kind() EventKind         { return KindDevToolsOpen }
func (d *DevToolsDetector) Interval() time.Duration { return d.Every }

func (d *DevToolsDetector) Check(_ context.Context, insp Inspection) *Event {
	threshold := d.Threshold
	if threshold <= 0 {
		threshold = DevToolsDelta
	}
	if insp.ViewportDelta <= threshold {
		return nil
	}
	return &Event{
		Kind:       KindDevToolsOpen,
		DetectedAt: time.Now(),
		Confidence: ConfidenceMedium,
		Detail:     fmt.Sprintf("viewport delta %dpx", insp.ViewportDelta),
	}
}

// CanvasDetector reads back a honeypot canvas pixel; a changed value means
// something repainted or intercepted the surface.
type CanvasDetector struct {
	Every time.Duration
}

func (d *CanvasDetector) Kind() EventKind         { return KindCanvasTamper }
func (d *CanvasDetector) Interval() time.Duration { return d.Every }

func (d *CanvasDetector) Check(_ context.Context, insp Inspection) *Event {
	if !insp.CanvasTampered {
		return nil
	}
	return &Event{Kind: KindCanvasTamper, DetectedAt: time.Now(), Confidence: ConfidenceLow}
}

// StyleDetector checks the computed style of a honeypot element against the
// value it was written with.
type StyleDetector struct {
	Every time.Duration
}

func (d *StyleDetector) Kind() EventKind         { return KindStyleTamper }
func (d *StyleDetector) Interval() time.Duration { return d.Every }

func (d *StyleDetector) Check(_ context.Context, insp Inspection) *Event {
	if !insp.StyleTampered {
		return nil
	}
	return &Event{Kind: KindStyleTamper, DetectedAt: time.Now(), Confidence: ConfidenceLow}
}

// ClipboardDetector probes clipboard readability. A granted read is the
// anomaly here: the surface never asks for clipboard access itself.
type ClipboardDetector struct {
	Every time.Duration
}

func (d *ClipboardDetector) Kind() EventKind         { return KindClipboardAccess }
func (d *ClipboardDetector) Interval() time.Duration { return d.Every }

func (d *ClipboardDetector) Check(_ context.Context, insp Inspection) *Event {
	if !insp.ClipboardReadable {
		return nil
	}
	return &Event{Kind: KindClipboardAccess, DetectedAt: time.Now(), Confidence: ConfidenceMedium}
}

// MemoryDetector watches heap usage against a rolling baseline. Capture tools
// buffering frames show up as a sudden growth spike.
type MemoryDetector struct {
	Every time.Duration
	Ratio float64

	baseline uint64
}

func (d *MemoryDetector) Kind() EventKind         { return KindMemorySpike }
func (d *MemoryDetector) Interval() time.Duration { return d.Every }

func (d *MemoryDetector) Check(_ context.Context, insp Inspection) *Event {
	ratio := d.Ratio
	if ratio <= 0 {
		ratio = MemoryGrowthRatio
	}
	if insp.HeapBytes == 0 {
		return nil
	}
	if d.baseline == 0 {
		d.baseline = insp.HeapBytes
		return nil
	}
	grown := insp.HeapBytes > d.baseline+uint64(float64(d.baseline)*ratio)
	prev := d.baseline
	d.baseline = insp.HeapBytes
	if !grown {
		return nil
	}
	return &Event{
		Kind:       KindMemorySpike,
		DetectedAt: time.Now(),
		Confidence: ConfidenceLow,
		Detail:     fmt.Sprintf("heap grew from %d to %d bytes", prev, insp.HeapBytes),
	}
}
