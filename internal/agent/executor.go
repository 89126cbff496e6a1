// internal/agent/executor.go
package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TechNavii/computer-use-demo/api/schemas"
	"github.com/TechNavii/computer-use-demo/internal/browser"
)

// Executor applies one pixel-space action to the live page and reports the
// outcome. It is the only component that mutates browser state.
type Executor struct {
	page   browser.Page
	logger *zap.Logger
}

func NewExecutor(page browser.Page, logger *zap.Logger) *Executor {
	return &Executor{
		page:   page,
		logger: logger.Named("executor"),
	}
}

// Execute dispatches the action, waits for the page to settle where the
// action can change page state, and attaches a fresh screenshot plus the
// current URL so the service sees the result. Failures are folded into the
// outcome, never raised, except that a dead driver skips the capture.
func (e *Executor) Execute(ctx context.Context, action *schemas.Action) schemas.ExecutionOutcome {
	e.logger.Info("Executing action.",
		zap.String("kind", string(action.Kind)),
		zap.String("call", action.CallName),
	)

	outcome := schemas.ExecutionOutcome{Status: schemas.OutcomeOK}

	if action.Kind == schemas.ActionTaskComplete {
		outcome.Summary = action.Summary
		return outcome
	}

	if err := e.dispatch(ctx, action, &outcome); err != nil {
		outcome.Status = schemas.OutcomeFailed
		outcome.ErrorKind = schemas.KindOf(err)
		outcome.Detail = err.Error()
		if outcome.ErrorKind == schemas.ErrDriverError {
			// The tab is gone; a capture attempt would only fail again.
			return outcome
		}
	}

	e.capture(ctx, &outcome)
	return outcome
}

func (e *Executor) dispatch(ctx context.Context, action *schemas.Action, outcome *schemas.ExecutionOutcome) error {
	switch action.Kind {
	case schemas.ActionClick:
		if err := e.page.Click(ctx, int(action.X), int(action.Y)); err != nil {
			return err
		}
		return e.settle(ctx)

	case schemas.ActionDoubleClick:
		if err := e.page.DoubleClick(ctx, int(action.X), int(action.Y)); err != nil {
			return err
		}
		return e.settle(ctx)

	case schemas.ActionType:
		return e.typeTextAt(ctx, action)

	case schemas.ActionKeyPress:
		if err := e.page.KeyPress(ctx, action.Key); err != nil {
			return err
		}
		return e.settle(ctx)

	case schemas.ActionScroll:
		if err := e.page.Scroll(ctx, int(action.X), int(action.Y),
			int(action.DeltaX), int(action.DeltaY)); err != nil {
			return err
		}
		return e.settle(ctx)

	case schemas.ActionDrag:
		if err := e.page.Drag(ctx, int(action.X), int(action.Y),
			int(action.ToX), int(action.ToY)); err != nil {
			return err
		}
		return e.settle(ctx)

	case schemas.ActionWait:
		return e.wait(ctx, action.Seconds)

	case schemas.ActionNavigate:
		if err := e.page.Navigate(ctx, action.URL); err != nil {
			return err
		}
		return e.settle(ctx)

	case schemas.ActionBack:
		if err := e.page.Back(ctx); err != nil {
			return err
		}
		return e.settle(ctx)

	case schemas.ActionForward:
		if err := e.page.Forward(ctx); err != nil {
			return err
		}
		return e.settle(ctx)

	case schemas.ActionScreenshot:
		// Observe only; the shared capture below does the work.
		return nil

	case schemas.ActionExtractText:
		text, err := e.page.ExtractText(ctx)
		if err != nil {
			return err
		}
		outcome.Text = text
		return nil

	default:
		return schemas.Errorf(schemas.ErrMalformedAction,
			"no dispatch for action kind %q", action.Kind)
	}
}

// typeTextAt focuses the target point, clears the field, types the payload
// and optionally submits with Enter.
func (e *Executor) typeTextAt(ctx context.Context, action *schemas.Action) error {
	if err := e.page.Click(ctx, int(action.X), int(action.Y)); err != nil {
		return err
	}
	if err := e.page.KeyPress(ctx, "Control+a"); err != nil {
		return err
	}
	if err := e.page.KeyPress(ctx, "Backspace"); err != nil {
		return err
	}
	if err := e.page.Type(ctx, action.Text); err != nil {
		return err
	}
	if action.PressEnter {
		if err := e.page.KeyPress(ctx, "Enter"); err != nil {
			return err
		}
	}
	return e.settle(ctx)
}

func (e *Executor) wait(ctx context.Context, seconds float64) error {
	d := time.Duration(seconds * float64(time.Second))
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return schemas.NewError(schemas.ErrTimeout,
			fmt.Sprintf("wait of %s interrupted", d), ctx.Err())
	}
}

// settle waits for the load state to quiesce. A page that never settles is
// reported to the service as a recoverable timeout, not swallowed.
func (e *Executor) settle(ctx context.Context) error {
	return e.page.WaitReady(ctx)
}

// capture attaches the post-action screenshot, URL and, for text
// extraction, the page text. Capture failures downgrade the outcome but
// keep whatever context was gathered.
func (e *Executor) capture(ctx context.Context, outcome *schemas.ExecutionOutcome) {
	if url, err := e.page.CurrentURL(ctx); err == nil {
		outcome.URL = url
	} else {
		e.logger.Warn("Could not read current URL.", zap.Error(err))
	}

	shot, err := e.page.Screenshot(ctx)
	if err != nil {
		e.logger.Warn("Could not capture screenshot.", zap.Error(err))
		if outcome.Status == schemas.OutcomeOK {
			outcome.Status = schemas.OutcomeFailed
			outcome.ErrorKind = schemas.KindOf(err)
			outcome.Detail = fmt.Sprintf("post-action screenshot failed: %v", err)
		}
	} else {
		outcome.Screenshot = shot
	}
}
