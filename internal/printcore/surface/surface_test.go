package surface

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/secure-print-api/internal/printcore/bus"
	"github.com/noah-isme/secure-print-api/internal/printcore/capability"
	"github.com/noah-isme/secure-print-api/internal/printcore/watermark"
)

func testDocument() Document {
	return Document{
		Title:     "Quarterly Report",
		BodyHTML:  "<p>body</p>",
		Lines:     []string{"body"},
		Watermark: watermark.Compose("Jane Roe", time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), ""),
	}
}

func TestDocumentHTMLIncludesOverlay(t *testing.T) {
	html := testDocument().HTML()
	assert.Contains(t, html, "<p>body</p>")
	assert.Contains(t, html, "wm-overlay")
	assert.Contains(t, html, "user-select:none")
	assert.Contains(t, html, "Printed by: Jane Roe")
}

func TestMemoryEnvironmentLifecycle(t *testing.T) {
	f := &MemoryFactory{Report: capability.Report{PointerFine: true, Platform: "Win32"}}
	env, err := f.NewEnvironment(context.Background())
	require.NoError(t, err)

	mem := env.(*MemoryEnvironment)
	require.NoError(t, env.Mount(context.Background(), testDocument()))
	assert.True(t, mem.Mounted())
	assert.NotEmpty(t, mem.HTML())

	report, err := env.Capabilities(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Available())

	_, err = env.PrintToPDF(context.Background())
	assert.ErrorIs(t, err, ErrNoPrintFacility)

	require.NoError(t, env.Unmount(context.Background()))
	assert.False(t, mem.Mounted())
	assert.Empty(t, mem.HTML())
}

func TestManagerMountPublishesStarted(t *testing.T) {
	b := bus.New(4)
	defer b.Close()
	m := NewManager(&MemoryFactory{}, b, nil)

	env, err := m.Mount(context.Background(), 2, testDocument())
	require.NoError(t, err)
	assert.NotNil(t, env)
	assert.Same(t, env, m.Environment())

	msg := <-b.Messages()
	assert.Equal(t, bus.KindPrintStarted, msg.Kind)
	assert.Equal(t, uint64(2), msg.Generation)
}

type failingFactory struct{ err error }

func (f failingFactory) NewEnvironment(context.Context) (Environment, error) { return nil, f.err }

func TestManagerMountFailurePublishesError(t *testing.T) {
	b := bus.New(4)
	defer b.Close()
	m := NewManager(failingFactory{err: errors.New("no browser")}, b, nil)

	_, err := m.Mount(context.Background(), 1, testDocument())
	require.Error(t, err)
	assert.Nil(t, m.Environment())

	msg := <-b.Messages()
	assert.Equal(t, bus.KindPrintError, msg.Kind)
}

func TestManagerTeardownRunsHooksInReverse(t *testing.T) {
	b := bus.New(4)
	defer b.Close()
	m := NewManager(&MemoryFactory{}, b, nil)

	_, err := m.Mount(context.Background(), 1, testDocument())
	require.NoError(t, err)

	var order []string
	m.OnTeardown(func() { order = append(order, "first") })
	m.OnTeardown(func() { order = append(order, "second") })

	require.NoError(t, m.Teardown(context.Background()))
	assert.Equal(t, []string{"second", "first"}, order)
	assert.Nil(t, m.Environment())

	// Idempotent: hooks are consumed, nothing is mounted.
	require.NoError(t, m.Teardown(context.Background()))
	assert.Len(t, order, 2)
}

func TestManagerRemountTearsDownPrevious(t *testing.T) {
	b := bus.New(8)
	defer b.Close()
	m := NewManager(&MemoryFactory{}, b, nil)

	first, err := m.Mount(context.Background(), 1, testDocument())
	require.NoError(t, err)

	second, err := m.Mount(context.Background(), 2, testDocument())
	require.NoError(t, err)

	assert.False(t, first.(*MemoryEnvironment).Mounted())
	assert.True(t, second.(*MemoryEnvironment).Mounted())
}

func TestChromeStrategyDegradesWithoutFacility(t *testing.T) {
	env := &MemoryEnvironment{}
	res, err := ChromeStrategy{}.Trigger(context.Background(), env, testDocument())
	require.NoError(t, err)
	assert.False(t, res.Triggered)
	assert.Empty(t, res.Output)
}

func TestPDFStrategyProducesOutput(t *testing.T) {
	res, err := PDFStrategy{}.Trigger(context.Background(), &MemoryEnvironment{}, testDocument())
	require.NoError(t, err)
	assert.True(t, res.Triggered)
	assert.NotEmpty(t, res.Output)
}

func TestSelectStrategy(t *testing.T) {
	assert.Equal(t, "chrome", SelectStrategy("chrome").Name())
	assert.Equal(t, "pdf", SelectStrategy("pdf").Name())
	assert.Equal(t, "manual", SelectStrategy("manual").Name())
	assert.Equal(t, "manual", SelectStrategy("").Name())
	assert.Equal(t, "manual", SelectStrategy("unknown").Name())
}

func TestEmbedBodyEscapesAttributes(t *testing.T) {
	body := EmbedBody(`/files/a"><script>alert(1)</script>`, "application/pdf")
	assert.NotContains(t, body, `<script>`)
	assert.Contains(t, body, "&quot;&gt;&lt;script&gt;")
	assert.Contains(t, body, `type="application/pdf"`)
}

func TestManagerMountRejectsStaleGeneration(t *testing.T) {
	b := bus.New(8)
	defer b.Close()
	m := NewManager(&MemoryFactory{}, b, nil)

	env, err := m.Mount(context.Background(), 2, testDocument())
	require.NoError(t, err)

	_, err = m.Mount(context.Background(), 1, testDocument())
	assert.ErrorIs(t, err, ErrStaleMount)
	assert.Same(t, env, m.Environment())

	// The newest generation's surface is untouched and no error was announced.
	msg := <-b.Messages()
	assert.Equal(t, bus.KindPrintStarted, msg.Kind)
	select {
	case extra := <-b.Messages():
		t.Fatalf("unexpected bus message %q", extra.Kind)
	default:
	}
}
