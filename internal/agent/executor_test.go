// internal/agent/executor_test.go
package agent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/TechNavii/computer-use-demo/api/schemas"
	"github.com/TechNavii/computer-use-demo/internal/agent"
)

func TestExecutorClick(t *testing.T) {
	page := newFakePage()
	exec := agent.NewExecutor(page, zaptest.NewLogger(t))

	outcome := exec.Execute(context.Background(), &schemas.Action{
		Kind: schemas.ActionClick, X: 720, Y: 450,
	})

	require.Equal(t, schemas.OutcomeOK, outcome.Status)
	assert.Equal(t, []string{"Click(720,450)", "WaitReady", "CurrentURL", "Screenshot"}, page.recorded())
	assert.Equal(t, "https://example.com/", outcome.URL)
	assert.Equal(t, []byte("png-bytes"), outcome.Screenshot)
}

func TestExecutorTypeTextAt(t *testing.T) {
	page := newFakePage()
	exec := agent.NewExecutor(page, zaptest.NewLogger(t))

	outcome := exec.Execute(context.Background(), &schemas.Action{
		Kind: schemas.ActionType, X: 100, Y: 160,
		Text: "golang", PressEnter: true,
	})

	require.Equal(t, schemas.OutcomeOK, outcome.Status)
	assert.Equal(t, []string{
		"Click(100,160)",
		"KeyPress(Control+a)",
		"KeyPress(Backspace)",
		"Type(golang)",
		"KeyPress(Enter)",
		"WaitReady",
		"CurrentURL",
		"Screenshot",
	}, page.recorded())
}

func TestExecutorTypeWithoutEnter(t *testing.T) {
	page := newFakePage()
	exec := agent.NewExecutor(page, zaptest.NewLogger(t))

	outcome := exec.Execute(context.Background(), &schemas.Action{
		Kind: schemas.ActionType, X: 100, Y: 160, Text: "golang",
	})

	require.Equal(t, schemas.OutcomeOK, outcome.Status)
	assert.NotContains(t, page.recorded(), "KeyPress(Enter)")
}

func TestExecutorTaskCompleteIsNoOp(t *testing.T) {
	page := newFakePage()
	exec := agent.NewExecutor(page, zaptest.NewLogger(t))

	outcome := exec.Execute(context.Background(), &schemas.Action{
		Kind: schemas.ActionTaskComplete, Summary: "done",
	})

	require.Equal(t, schemas.OutcomeOK, outcome.Status)
	assert.Equal(t, "done", outcome.Summary)
	assert.Empty(t, page.recorded(), "terminal action must not touch the page")
}

func TestExecutorScreenshotAction(t *testing.T) {
	page := newFakePage()
	exec := agent.NewExecutor(page, zaptest.NewLogger(t))

	outcome := exec.Execute(context.Background(), &schemas.Action{Kind: schemas.ActionScreenshot})

	require.Equal(t, schemas.OutcomeOK, outcome.Status)
	assert.Equal(t, []string{"CurrentURL", "Screenshot"}, page.recorded())
}

func TestExecutorExtractText(t *testing.T) {
	page := newFakePage()
	page.text = "Breaking: markets are up"
	exec := agent.NewExecutor(page, zaptest.NewLogger(t))

	outcome := exec.Execute(context.Background(), &schemas.Action{Kind: schemas.ActionExtractText})

	require.Equal(t, schemas.OutcomeOK, outcome.Status)
	assert.Equal(t, "Breaking: markets are up", outcome.Text)
	assert.Equal(t, []byte("png-bytes"), outcome.Screenshot)
}

func TestExecutorRecoverableFailureStillCaptures(t *testing.T) {
	page := newFakePage()
	page.failures["Navigate"] = schemas.Errorf(schemas.ErrNavigationFailed, "net::ERR_NAME_NOT_RESOLVED")
	exec := agent.NewExecutor(page, zaptest.NewLogger(t))

	outcome := exec.Execute(context.Background(), &schemas.Action{
		Kind: schemas.ActionNavigate, URL: "https://does-not-exist.example/",
	})

	require.Equal(t, schemas.OutcomeFailed, outcome.Status)
	assert.Equal(t, schemas.ErrNavigationFailed, outcome.ErrorKind)
	// The service still gets visual context for the failed turn.
	assert.Equal(t, []byte("png-bytes"), outcome.Screenshot)
	assert.Equal(t, "https://example.com/", outcome.URL)
}

func TestExecutorDriverErrorSkipsCapture(t *testing.T) {
	page := newFakePage()
	page.failures["Click"] = schemas.Errorf(schemas.ErrDriverError, "tab is gone")
	exec := agent.NewExecutor(page, zaptest.NewLogger(t))

	outcome := exec.Execute(context.Background(), &schemas.Action{
		Kind: schemas.ActionClick, X: 1, Y: 1,
	})

	require.Equal(t, schemas.OutcomeFailed, outcome.Status)
	assert.Equal(t, schemas.ErrDriverError, outcome.ErrorKind)
	assert.Nil(t, outcome.Screenshot)
	assert.Equal(t, []string{"Click(1,1)"}, page.recorded())
}

func TestExecutorWaitHonorsCancellation(t *testing.T) {
	page := newFakePage()
	exec := agent.NewExecutor(page, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := exec.Execute(ctx, &schemas.Action{Kind: schemas.ActionWait, Seconds: 30})

	require.Equal(t, schemas.OutcomeFailed, outcome.Status)
	assert.Equal(t, schemas.ErrTimeout, outcome.ErrorKind)
}
