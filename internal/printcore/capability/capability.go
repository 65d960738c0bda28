package capability

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/secure-print-api/internal/printcore/bus"
)

// DefaultTimeout bounds the probe. An environment that cannot answer within
// the bound is treated as having no print facility.
const DefaultTimeout = 2 * time.Second

// Report is the raw self-assessment returned by a rendering environment.
type Report struct {
	PointerFine     bool   `json:"pointer_fine"`
	MaxTouchPoints  int    `json:"max_touch_points"`
	Platform        string `json:"platform"`
	PrintMediaQuery bool   `json:"print_media_query"`
}

// Available applies the desktop heuristic: a fine pointer, at most one touch
// point and a Windows platform string indicate a printable desktop. Everything
// else falls through to whether the environment supports the print media
// query. The answer is heuristic and may be wrong either way; callers must
// treat it as a hint, not a guarantee.
func (r Report) Available() bool {
	if r.PointerFine && r.MaxTouchPoints <= 1 && strings.Contains(r.Platform, "Win") {
		return true
	}
	return r.PrintMediaQuery
}

// Reporter is the slice of a rendering environment the probe needs. The
// session controller mounts a throwaway surface and hands it here.
type Reporter interface {
	Capabilities(ctx context.Context) (Report, error)
}

// Probe asks a Reporter for its capability report under a hard deadline and
// announces the outcome on the bus.
type Probe struct {
	timeout time.Duration
	log     *zap.Logger
}

// New creates a probe. A non-positive timeout falls back to DefaultTimeout.
func New(timeout time.Duration, log *zap.Logger) *Probe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Probe{timeout: timeout, log: log}
}

// Run performs the assessment and publishes probe-available or
// probe-unavailable stamped with generation. A slow or failing reporter
// resolves to unavailable; Run never returns an error because an unanswerable
// probe is an answer.
func (p *Probe) Run(ctx context.Context, reporter Reporter, b *bus.Bus, generation uint64) Report {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type outcome struct {
		report Report
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		report, err := reporter.Capabilities(ctx)
		ch <- outcome{report: report, err: err}
	}()

	var report Report
	available := false
	select {
	case out := <-ch:
		if out.err != nil {
			p.log.Warn("capability probe failed", zap.Error(out.err))
		} else {
			report = out.report
			available = report.Available()
		}
	case <-ctx.Done():
		p.log.Warn("capability probe timed out", zap.Duration("timeout", p.timeout))
	}

	kind := bus.KindProbeUnavailable
	if available {
		kind = bus.KindProbeAvailable
	}
	payload, _ := json.Marshal(report)
	b.Publish(bus.Message{Kind: kind, Generation: generation, Payload: payload})
	return report
}
