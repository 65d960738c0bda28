package surface

import (
	"context"
	"errors"

	"github.com/noah-isme/secure-print-api/internal/printcore/watermark"
)

// Result is the outcome of a print trigger. Triggered false with a nil error
// means the environment has no facility and the user prints by hand.
type Result struct {
	Output    []byte
	Triggered bool
}

// Strategy decides how printing is initiated on a mounted environment.
type Strategy interface {
	Name() string
	Trigger(ctx context.Context, env Environment, doc Document) (Result, error)
}

// ChromeStrategy asks the environment's own print facility for the output.
// An environment without one degrades to manual instead of failing.
type ChromeStrategy struct{}

func (ChromeStrategy) Name() string { return "chrome" }

func (ChromeStrategy) Trigger(ctx context.Context, env Environment, _ Document) (Result, error) {
	data, err := env.PrintToPDF(ctx)
	if errors.Is(err, ErrNoPrintFacility) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Output: data, Triggered: true}, nil
}

// PDFStrategy stamps the document server-side, bypassing the environment's
// print facility entirely. Serves clients that cannot print themselves.
type PDFStrategy struct{}

func (PDFStrategy) Name() string { return "pdf" }

func (PDFStrategy) Trigger(_ context.Context, _ Environment, doc Document) (Result, error) {
	data, err := watermark.StampPDF(doc.Watermark, doc.Title, doc.Lines)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: data, Triggered: true}, nil
}

// ManualStrategy never triggers; completion comes from the client.
type ManualStrategy struct{}

func (ManualStrategy) Name() string { return "manual" }

func (ManualStrategy) Trigger(context.Context, Environment, Document) (Result, error) {
	return Result{}, nil
}

// SelectStrategy maps a configured name onto a strategy, defaulting to manual.
func SelectStrategy(name string) Strategy {
	switch name {
	case "chrome":
		return ChromeStrategy{}
	case "pdf":
		return PDFStrategy{}
	default:
		return ManualStrategy{}
	}
}
