package surface

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/noah-isme/secure-print-api/internal/printcore/capability"
	"github.com/noah-isme/secure-print-api/internal/printcore/deterrence"
)

const defaultChromeTimeout = 30 * time.Second

// ChromeConfig configures the headless Chromium factory.
type ChromeConfig struct {
	// RemoteURL points at an already running browser. Empty launches one.
	RemoteURL string
	Headless  bool
	// NoSandbox is required when running as root in a container.
	NoSandbox bool
	Timeout   time.Duration
}

// ChromeFactory owns one browser allocator and hands out an isolated browser
// context per environment.
type ChromeFactory struct {
	cfg         ChromeConfig
	log         *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeFactory creates the allocator. Close releases it.
func NewChromeFactory(cfg ChromeConfig, log *zap.Logger) *ChromeFactory {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultChromeTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	f := &ChromeFactory{cfg: cfg, log: log}

	if cfg.RemoteURL != "" {
		f.allocCtx, f.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return f
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	f.allocCtx, f.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return f
}

func (f *ChromeFactory) NewEnvironment(context.Context) (Environment, error) {
	browserCtx, cancel := chromedp.NewContext(f.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			f.log.Debug(fmt.Sprintf(format, args...))
		}),
	)
	return &ChromeEnvironment{ctx: browserCtx, cancel: cancel, timeout: f.cfg.Timeout}, nil
}

// Close releases the browser allocator.
func (f *ChromeFactory) Close() error {
	if f.allocCancel != nil {
		f.allocCancel()
	}
	return nil
}

// ChromeEnvironment is one browser tab driven over the DevTools protocol.
type ChromeEnvironment struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// honeypotScript plants a 1x1 canvas with a known pixel and a hidden element
// whose computed style the inspection reads back later.
const honeypotScript = `(() => {
	const c = document.createElement('canvas');
	c.width = 1; c.height = 1;
	const g = c.getContext('2d');
	g.fillStyle = '#010203';
	g.fillRect(0, 0, 1, 1);
	const el = document.createElement('div');
	el.style.display = 'none';
	document.body.appendChild(el);
	window.__hp = { canvas: c, canvasData: c.toDataURL(), el: el };
})()`

const inspectScript = `(async () => {
	let clip = false;
	try { await navigator.clipboard.readText(); clip = true; } catch (e) {}
	const hp = window.__hp || {};
	let canvas = false, style = false;
	try { canvas = !!hp.canvas && hp.canvas.toDataURL() !== hp.canvasData; } catch (e) { canvas = true; }
	try { style = !!hp.el && getComputedStyle(hp.el).display !== 'none'; } catch (e) {}
	const mem = (performance.memory && performance.memory.usedJSHeapSize) || 0;
	return {
		viewport_delta: window.outerWidth - window.innerWidth,
		canvas_tampered: canvas,
		style_tampered: style,
		clipboard_readable: clip,
		heap_bytes: mem,
	};
})()`

const capabilityScript = `({
	pointer_fine: matchMedia('(pointer: fine)').matches,
	max_touch_points: navigator.maxTouchPoints || 0,
	platform: navigator.platform || '',
	print_media_query: matchMedia('print').media === 'print',
})`

func (e *ChromeEnvironment) run(ctx context.Context, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(e.ctx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *ChromeEnvironment) Mount(ctx context.Context, doc Document) error {
	html := doc.HTML()
	err := e.run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.Evaluate(honeypotScript, nil),
	)
	if err != nil {
		return fmt.Errorf("mount document: %w", err)
	}
	return nil
}

func (e *ChromeEnvironment) Capabilities(ctx context.Context) (capability.Report, error) {
	var report capability.Report
	if err := e.run(ctx, chromedp.Evaluate(capabilityScript, &report)); err != nil {
		return capability.Report{}, fmt.Errorf("capability script: %w", err)
	}
	return report, nil
}

type chromeInspection struct {
	ViewportDelta     int    `json:"viewport_delta"`
	CanvasTampered    bool   `json:"canvas_tampered"`
	StyleTampered     bool   `json:"style_tampered"`
	ClipboardReadable bool   `json:"clipboard_readable"`
	HeapBytes         uint64 `json:"heap_bytes"`
}

func (e *ChromeEnvironment) Inspect(ctx context.Context) (deterrence.Inspection, error) {
	var out chromeInspection
	err := e.run(ctx, chromedp.Evaluate(inspectScript, &out,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
	if err != nil {
		return deterrence.Inspection{}, fmt.Errorf("inspect script: %w", err)
	}
	return deterrence.Inspection{
		ViewportDelta:     out.ViewportDelta,
		CanvasTampered:    out.CanvasTampered,
		StyleTampered:     out.StyleTampered,
		ClipboardReadable: out.ClipboardReadable,
		HeapBytes:         out.HeapBytes,
	}, nil
}

func (e *ChromeEnvironment) PrintToPDF(ctx context.Context) ([]byte, error) {
	var pdfData []byte
	err := e.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(true).
			WithPaperWidth(8.27).
			WithPaperHeight(11.69).
			WithMarginTop(0.4).
			WithMarginBottom(0.4).
			WithMarginLeft(0.4).
			WithMarginRight(0.4).
			Do(ctx)
		if err != nil {
			return err
		}
		pdfData = data
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("print to pdf: empty document")
	}
	return pdfData, nil
}

func (e *ChromeEnvironment) Unmount(context.Context) error {
	e.cancel()
	return nil
}
