package deterrence

import (
	"strings"
	"time"

	"github.com/noah-isme/secure-print-api/internal/printcore/bus"
)

// KeyChord is a key press with its modifier state, as reported by the
// rendering context.
type KeyChord struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
	Meta  bool   `json:"meta"`
}

func (c KeyChord) normalized() KeyChord {
	c.Key = strings.ToLower(c.Key)
	return c
}

// blockedChords covers screenshot, save, copy, paste, print and inspector
// shortcuts across Windows and macOS.
var blockedChords = map[KeyChord]string{
	{Key: "printscreen"}:                        "screen capture key",
	{Key: "p", Ctrl: true}:                      "browser print dialog",
	{Key: "s", Ctrl: true}:                      "save page",
	{Key: "c", Ctrl: true}:                      "copy",
	{Key: "v", Ctrl: true}:                      "paste",
	{Key: "i", Ctrl: true, Shift: true}:         "inspector",
	{Key: "j", Ctrl: true, Shift: true}:         "console",
	{Key: "c", Ctrl: true, Shift: true}:         "element picker",
	{Key: "s", Ctrl: true, Shift: true}:         "capture tool",
	{Key: "f12"}:                                "devtools",
	{Key: "3", Meta: true, Shift: true}:         "macOS full screenshot",
	{Key: "4", Meta: true, Shift: true}:         "macOS area screenshot",
	{Key: "5", Meta: true, Shift: true}:         "macOS capture panel",
}

// KeyInterceptor is the only preventing detector: it runs synchronously on
// key events and tells the surface whether to swallow the press.
type KeyInterceptor struct {
	b          *bus.Bus
	generation uint64
}

// NewKeyInterceptor builds an interceptor publishing under the given session
// generation.
func NewKeyInterceptor(b *bus.Bus, generation uint64) *KeyInterceptor {
	return &KeyInterceptor{b: b, generation: generation}
}

// Intercept reports whether the chord must be blocked, publishing a
// deterrence event for every blocked press.
func (k *KeyInterceptor) Intercept(chord KeyChord) bool {
	detail, blocked := blockedChords[chord.normalized()]
	if !blocked {
		return false
	}
	k.b.Publish(bus.Message{
		Kind:       bus.KindDeterrenceEvent,
		Generation: k.generation,
		Payload: marshalEvent(Event{
			Kind:       KindKeyCombo,
			DetectedAt: time.Now(),
			Confidence: ConfidenceHigh,
			Detail:     detail,
		}),
	})
	return true
}
