// internal/browser/context.go
package browser

import "context"

// combineContext derives from tabCtx so chromedp keeps its target values,
// and cancels when either the tab or the caller's context is done.
func combineContext(tabCtx, callerCtx context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(tabCtx)

	go func() {
		select {
		case <-callerCtx.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}
