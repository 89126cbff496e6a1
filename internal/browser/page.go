// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/input"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/TechNavii/computer-use-demo/api/schemas"
	"github.com/TechNavii/computer-use-demo/internal/config"
)

// Page is the pixel-level automation surface for one browser tab. The
// executor is the only consumer; all coordinates are viewport pixels.
type Page interface {
	Click(ctx context.Context, x, y int) error
	DoubleClick(ctx context.Context, x, y int) error
	Type(ctx context.Context, text string) error
	KeyPress(ctx context.Context, key string) error
	Scroll(ctx context.Context, x, y, deltaX, deltaY int) error
	Drag(ctx context.Context, fromX, fromY, toX, toY int) error
	Navigate(ctx context.Context, url string) error
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
	ExtractText(ctx context.Context) (string, error)
	ViewportSize(ctx context.Context) (schemas.Viewport, error)
	CurrentURL(ctx context.Context) (string, error)
	// WaitReady blocks until the document load state settles or the
	// configured bound elapses, then applies the fixed settle delay.
	WaitReady(ctx context.Context) error
}

// runFunc executes chromedp actions against the tab. Swappable in tests.
type runFunc func(ctx context.Context, actions ...chromedp.Action) error

// chromePage drives a single chromedp tab.
type chromePage struct {
	tabCtx context.Context
	cfg    config.NetworkConfig
	logger *zap.Logger
	run    runFunc
}

var _ Page = (*chromePage)(nil)

func newChromePage(tabCtx context.Context, cfg config.NetworkConfig, logger *zap.Logger) *chromePage {
	return &chromePage{
		tabCtx: tabCtx,
		cfg:    cfg,
		logger: logger.Named("page"),
		run:    chromedp.Run,
	}
}

// do runs actions on the tab context while honoring the caller's deadline,
// mapping driver faults to the structured error taxonomy.
func (p *chromePage) do(ctx context.Context, op string, actions ...chromedp.Action) error {
	opCtx, cancel := combineContext(p.tabCtx, ctx)
	defer cancel()

	if err := p.run(opCtx, actions...); err != nil {
		return p.classify(ctx, op, err)
	}
	return nil
}

// classify maps a raw chromedp error to the pipeline's error taxonomy.
func (p *chromePage) classify(callerCtx context.Context, op string, err error) error {
	switch {
	case p.tabCtx.Err() != nil:
		// The tab itself died; nothing further can run on this handle.
		return schemas.NewError(schemas.ErrDriverError,
			fmt.Sprintf("browser tab is gone during %s", op), err)
	case callerCtx.Err() == context.DeadlineExceeded:
		return schemas.NewError(schemas.ErrTimeout,
			fmt.Sprintf("%s did not settle in time", op), err)
	case callerCtx.Err() != nil:
		return schemas.NewError(schemas.ErrTimeout,
			fmt.Sprintf("%s cancelled", op), err)
	case strings.Contains(err.Error(), "net::ERR"), strings.Contains(err.Error(), "page load error"):
		return schemas.NewError(schemas.ErrNavigationFailed,
			fmt.Sprintf("%s failed to load", op), err)
	default:
		return schemas.NewError(schemas.ErrDriverError,
			fmt.Sprintf("driver fault during %s", op), err)
	}
}

func (p *chromePage) Click(ctx context.Context, x, y int) error {
	return p.do(ctx, "click",
		chromedp.MouseClickXY(float64(x), float64(y)),
	)
}

func (p *chromePage) DoubleClick(ctx context.Context, x, y int) error {
	return p.do(ctx, "double click",
		chromedp.MouseClickXY(float64(x), float64(y), chromedp.ClickCount(2)),
	)
}

func (p *chromePage) Type(ctx context.Context, text string) error {
	// KeyEvent targets whatever currently holds focus; callers click the
	// target point first.
	return p.do(ctx, "type", chromedp.KeyEvent(text))
}

// namedKeys maps the reasoning service's key names onto the CDP key codes
// understood by the kb package.
var namedKeys = map[string]string{
	"enter":      kb.Enter,
	"return":     kb.Enter,
	"tab":        kb.Tab,
	"backspace":  kb.Backspace,
	"delete":     kb.Delete,
	"escape":     kb.Escape,
	"space":      " ",
	"arrowup":    kb.ArrowUp,
	"arrowdown":  kb.ArrowDown,
	"arrowleft":  kb.ArrowLeft,
	"arrowright": kb.ArrowRight,
	"up":         kb.ArrowUp,
	"down":       kb.ArrowDown,
	"left":       kb.ArrowLeft,
	"right":      kb.ArrowRight,
	"home":       kb.Home,
	"end":        kb.End,
	"pageup":     kb.PageUp,
	"pagedown":   kb.PageDown,
}

var modifierNames = map[string]input.Modifier{
	"control": input.ModifierCtrl,
	"ctrl":    input.ModifierCtrl,
	"alt":     input.ModifierAlt,
	"shift":   input.ModifierShift,
	"meta":    input.ModifierMeta,
	"command": input.ModifierMeta,
	"cmd":     input.ModifierMeta,
}

// KeyPress dispatches a single key or a modifier combination such as
// "Control+a" or "Enter".
func (p *chromePage) KeyPress(ctx context.Context, key string) error {
	parts := strings.Split(key, "+")

	var modifiers input.Modifier
	base := parts[len(parts)-1]
	for _, part := range parts[:len(parts)-1] {
		mod, ok := modifierNames[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return schemas.Errorf(schemas.ErrElementNotInteractable,
				"unknown key modifier %q in combination %q", part, key)
		}
		modifiers |= mod
	}

	keys := base
	if mapped, ok := namedKeys[strings.ToLower(strings.TrimSpace(base))]; ok {
		keys = mapped
	}

	if modifiers == 0 {
		return p.do(ctx, "key press", chromedp.KeyEvent(keys))
	}
	return p.do(ctx, "key press", chromedp.KeyEvent(keys, chromedp.KeyModifiers(modifiers)))
}

func (p *chromePage) Scroll(ctx context.Context, x, y, deltaX, deltaY int) error {
	params := input.DispatchMouseEvent(input.MouseWheel, float64(x), float64(y)).
		WithDeltaX(float64(deltaX)).
		WithDeltaY(float64(deltaY))
	return p.do(ctx, "scroll", params)
}

// dragSteps is the number of intermediate mouse moves in a drag gesture;
// single-jump drags are ignored by many drag libraries.
const dragSteps = 12

func (p *chromePage) Drag(ctx context.Context, fromX, fromY, toX, toY int) error {
	actions := []chromedp.Action{
		input.DispatchMouseEvent(input.MouseMoved, float64(fromX), float64(fromY)),
		input.DispatchMouseEvent(input.MousePressed, float64(fromX), float64(fromY)).
			WithButton(input.Left).WithClickCount(1),
	}
	for i := 1; i <= dragSteps; i++ {
		t := float64(i) / float64(dragSteps)
		x := float64(fromX) + (float64(toX)-float64(fromX))*t
		y := float64(fromY) + (float64(toY)-float64(fromY))*t
		actions = append(actions,
			input.DispatchMouseEvent(input.MouseMoved, x, y).WithButton(input.Left),
			chromedp.Sleep(10*time.Millisecond),
		)
	}
	actions = append(actions,
		input.DispatchMouseEvent(input.MouseReleased, float64(toX), float64(toY)).
			WithButton(input.Left).WithClickCount(1),
	)
	return p.do(ctx, "drag", actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, p.cfg.NavigationTimeout)
	defer cancel()

	if err := p.do(navCtx, "navigation", chromedp.Navigate(url)); err != nil {
		// A timed-out navigation is a navigation failure, not a generic
		// timeout: the policy should pick a different target.
		if schemas.KindOf(err) == schemas.ErrTimeout {
			return schemas.NewError(schemas.ErrNavigationFailed,
				fmt.Sprintf("navigation to %s timed out", url), err)
		}
		return err
	}
	return nil
}

func (p *chromePage) Back(ctx context.Context) error {
	return p.do(ctx, "history back", chromedp.NavigateBack())
}

func (p *chromePage) Forward(ctx context.Context) error {
	return p.do(ctx, "history forward", chromedp.NavigateForward())
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.do(ctx, "screenshot", chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *chromePage) ExtractText(ctx context.Context) (string, error) {
	var text string
	err := p.do(ctx, "text extraction",
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
	)
	if err != nil {
		return "", err
	}
	return text, nil
}

// ViewportSize reads the live CSS visual viewport. Read fresh before each
// coordinate translation: navigation can resize the viewport between turns.
func (p *chromePage) ViewportSize(ctx context.Context) (schemas.Viewport, error) {
	var vp schemas.Viewport
	err := p.do(ctx, "layout metrics", chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, _, _, cssVisualViewport, _, err := cdppage.GetLayoutMetrics().Do(ctx)
		if err != nil {
			return err
		}
		vp = schemas.Viewport{
			Width:  int(cssVisualViewport.ClientWidth),
			Height: int(cssVisualViewport.ClientHeight),
		}
		return nil
	}))
	if err != nil {
		return schemas.Viewport{}, err
	}
	return vp, nil
}

func (p *chromePage) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := p.do(ctx, "location", chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// WaitReady polls document.readyState until the page reports complete, then
// sleeps the configured settle delay so the next screenshot sees a rendered
// frame. A load state that never settles is a recoverable Timeout.
func (p *chromePage) WaitReady(ctx context.Context) error {
	loadCtx, cancel := context.WithTimeout(ctx, p.cfg.LoadStateTimeout)
	defer cancel()

	poll := chromedp.ActionFunc(func(ctx context.Context) error {
		for {
			var state string
			if err := chromedp.Evaluate(`document.readyState`, &state).Do(ctx); err != nil {
				return err
			}
			if state == "complete" {
				return nil
			}
			select {
			case <-time.After(100 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	if err := p.do(loadCtx, "load state", poll); err != nil {
		if schemas.KindOf(err) == schemas.ErrTimeout {
			p.logger.Debug("Load state did not settle within bound.", zap.Duration("bound", p.cfg.LoadStateTimeout))
			return err
		}
		return err
	}

	select {
	case <-time.After(p.cfg.SettleDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
