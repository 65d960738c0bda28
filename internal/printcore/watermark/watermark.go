package watermark

import (
	"fmt"
	"html"
	"strings"
	"time"
)

const (
	// DefaultPrimaryText is the diagonal banner used when no custom text is
	// configured.
	DefaultPrimaryText = "CONFIDENTIAL"

	// UnknownOwner labels documents printed without a resolvable identity.
	UnknownOwner = "Unknown User"

	timestampLayout = "2006-01-02 15:04:05 MST"
)

// Spec is the fully resolved watermark for one document. Building it is pure:
// the same inputs always produce the same Spec.
type Spec struct {
	OwnerName   string
	IssuedAt    time.Time
	PrimaryText string
	FooterLeft  string
	FooterRight string
}

// Compose resolves the watermark for a document. An empty identity falls back
// to UnknownOwner and an empty customText to DefaultPrimaryText, so a missing
// user never yields an unmarked page.
func Compose(identity string, issuedAt time.Time, customText string) Spec {
	owner := strings.TrimSpace(identity)
	if owner == "" {
		owner = UnknownOwner
	}
	primary := strings.TrimSpace(customText)
	if primary == "" {
		primary = DefaultPrimaryText
	}
	return Spec{
		OwnerName:   owner,
		IssuedAt:    issuedAt,
		PrimaryText: primary,
		FooterLeft:  "Printed by: " + owner,
		FooterRight: "Printed on: " + issuedAt.Format(timestampLayout),
	}
}

// OverlayHTML renders the spec as the overlay injected into the rendering
// surface. The overlay sits above the document, refuses selection and drag,
// and ignores pointer events so the document below stays readable.
func (s Spec) OverlayHTML() string {
	primary := html.EscapeString(s.PrimaryText)
	left := html.EscapeString(s.FooterLeft)
	right := html.EscapeString(s.FooterRight)

	var b strings.Builder
	b.WriteString(`<div class="wm-overlay" aria-hidden="true" style="` + overlayStyle + `">`)
	b.WriteString(`<div class="wm-diagonal" style="` + diagonalStyle + `">`)
	b.WriteString(primary)
	b.WriteString(`</div>`)
	b.WriteString(`<div class="wm-footer" style="` + footerStyle + `">`)
	fmt.Fprintf(&b, `<span>%s</span><span>%s</span>`, left, right)
	b.WriteString(`</div></div>`)
	return b.String()
}

const (
	overlayStyle = "position:fixed;inset:0;pointer-events:none;user-select:none;" +
		"-webkit-user-select:none;-webkit-user-drag:none;z-index:2147483647;"
	diagonalStyle = "position:absolute;top:50%;left:50%;" +
		"transform:translate(-50%,-50%) rotate(-45deg);" +
		"font-size:72px;font-weight:bold;color:rgba(128,128,128,0.18);" +
		"white-space:nowrap;letter-spacing:0.3em;"
	footerStyle = "position:absolute;bottom:8px;left:0;right:0;" +
		"display:flex;justify-content:space-between;padding:0 16px;" +
		"font-size:10px;color:rgba(64,64,64,0.65);"
)
