package surface

import (
	"context"
	"errors"
	"strings"

	"github.com/noah-isme/secure-print-api/internal/printcore/capability"
	"github.com/noah-isme/secure-print-api/internal/printcore/deterrence"
	"github.com/noah-isme/secure-print-api/internal/printcore/watermark"
)

// ErrNoPrintFacility is returned by environments that cannot trigger printing
// themselves. It is a degradation signal, not a failure.
var ErrNoPrintFacility = errors.New("surface: no print facility available")

// Document is the material mounted into a rendering environment: the body
// markup, a plain-text projection for server-side stamping, and the resolved
// watermark.
type Document struct {
	Title     string
	BodyHTML  string
	Lines     []string
	Watermark watermark.Spec
}

// HTML assembles the complete page: document body wrapped with the watermark
// overlay on top. Selection and drag are disabled on the whole page.
func (d Document) HTML() string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"UTF-8\">")
	if d.Title != "" {
		b.WriteString("<title>" + htmlEscape(d.Title) + "</title>")
	}
	b.WriteString("<style>body{user-select:none;-webkit-user-select:none;}img{-webkit-user-drag:none;}</style>")
	b.WriteString("</head><body>")
	b.WriteString(d.BodyHTML)
	b.WriteString(d.Watermark.OverlayHTML())
	b.WriteString("</body></html>")
	return b.String()
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

// EmbedBody renders the standard document body: a full-height embed of the
// descriptor URL. Attribute values are escaped; a quote in a stored URL must
// not break out of the attribute.
func EmbedBody(url, mimeType string) string {
	return `<embed src="` + htmlEscape(url) + `" type="` + htmlEscape(mimeType) + `" style="width:100%;height:100vh;">`
}

// Environment is one isolated rendering context holding a mounted document.
// Implementations must make Unmount safe to call on every exit path,
// including after a failed Mount.
type Environment interface {
	Mount(ctx context.Context, doc Document) error
	Capabilities(ctx context.Context) (capability.Report, error)
	Inspect(ctx context.Context) (deterrence.Inspection, error)
	PrintToPDF(ctx context.Context) ([]byte, error)
	Unmount(ctx context.Context) error
}

// Factory creates fresh environments. Each session gets its own.
type Factory interface {
	NewEnvironment(ctx context.Context) (Environment, error)
}
