package surface

import (
	"context"
	"sync"

	"github.com/noah-isme/secure-print-api/internal/printcore/capability"
	"github.com/noah-isme/secure-print-api/internal/printcore/deterrence"
)

// MemoryEnvironment renders in process memory. It backs the manual strategy,
// where the client performs the print itself, and the capability probe's
// throwaway surface. It has no print facility of its own.
type MemoryEnvironment struct {
	mu         sync.Mutex
	mounted    bool
	doc        Document
	html       string
	report     capability.Report
	inspection deterrence.Inspection
}

// MemoryFactory hands out memory environments seeded with a fixed capability
// report (typically built from configuration).
type MemoryFactory struct {
	Report capability.Report
}

func (f *MemoryFactory) NewEnvironment(context.Context) (Environment, error) {
	return &MemoryEnvironment{report: f.Report}, nil
}

func (e *MemoryEnvironment) Mount(_ context.Context, doc Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mounted = true
	e.doc = doc
	e.html = doc.HTML()
	return nil
}

func (e *MemoryEnvironment) Capabilities(context.Context) (capability.Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.report, nil
}

func (e *MemoryEnvironment) Inspect(context.Context) (deterrence.Inspection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inspection, nil
}

func (e *MemoryEnvironment) PrintToPDF(context.Context) ([]byte, error) {
	return nil, ErrNoPrintFacility
}

func (e *MemoryEnvironment) Unmount(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mounted = false
	e.html = ""
	return nil
}

// HTML returns the rendered page for clients that print on their side.
func (e *MemoryEnvironment) HTML() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.html
}

// Mounted reports whether a document is currently mounted.
func (e *MemoryEnvironment) Mounted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mounted
}

// SetInspection seeds the values Inspect returns. The deterrence detectors
// poll these; the HTTP signal endpoint updates them from client reports.
func (e *MemoryEnvironment) SetInspection(insp deterrence.Inspection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inspection = insp
}
