// internal/agent/loop.go
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TechNavii/computer-use-demo/api/schemas"
	"github.com/TechNavii/computer-use-demo/internal/browser"
	"github.com/TechNavii/computer-use-demo/internal/config"
	"github.com/TechNavii/computer-use-demo/internal/coords"
)

// TurnGenerator produces the next model turn for the accumulated history.
type TurnGenerator interface {
	GenerateTurn(ctx context.Context, history []schemas.TurnRecord) (*schemas.ModelTurn, error)
}

// loopState tracks where the loop is between service calls.
type loopState int

const (
	stateAwaitingModel loopState = iota
	stateExecuting
	stateDone
	stateFailed
)

func (s loopState) String() string {
	switch s {
	case stateAwaitingModel:
		return "AWAITING_MODEL"
	case stateExecuting:
		return "EXECUTING"
	case stateDone:
		return "DONE"
	case stateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Loop runs the observe, reason, act cycle for one task. All collaborators
// are injected; the loop holds no global state.
type Loop struct {
	client   TurnGenerator
	page     browser.Page
	parser   *Parser
	executor *Executor
	cfg      config.AgentConfig
	logger   *zap.Logger
}

func NewLoop(client TurnGenerator, page browser.Page, cfg config.AgentConfig, logger *zap.Logger) *Loop {
	return &Loop{
		client:   client,
		page:     page,
		parser:   NewParser(cfg),
		executor: NewExecutor(page, logger),
		cfg:      cfg,
		logger:   logger.Named("loop"),
	}
}

// Run drives the task to completion or failure. Recoverable action failures
// are fed back to the service as turn outcomes; only a dead driver, a
// persistently unreachable service, or an exhausted turn budget terminate
// the task.
func (l *Loop) Run(ctx context.Context, instruction string) (*schemas.TaskResult, error) {
	taskID := uuid.NewString()
	logger := l.logger.With(zap.String("task_id", taskID))
	logger.Info("Starting task.", zap.String("instruction", instruction))

	seed, err := l.seed(ctx, instruction)
	if err != nil {
		return l.failure(taskID, 0, nil, err), nil
	}

	history := []schemas.TurnRecord{*seed}
	state := stateAwaitingModel

	transition := func(next loopState, turn int) {
		logger.Debug("State transition.",
			zap.Stringer("from", state),
			zap.Stringer("to", next),
			zap.Int("turn", turn),
		)
		state = next
	}

	for turn := 1; ; turn++ {
		if err := ctx.Err(); err != nil {
			return l.failure(taskID, turn-1, history,
				schemas.NewError(schemas.ErrTimeout, "task cancelled between turns", err)), nil
		}
		if turn > l.cfg.MaxTurns {
			return l.failure(taskID, turn-1, history,
				schemas.Errorf(schemas.ErrBudgetExhausted,
					"no terminal state after %d turns", l.cfg.MaxTurns)), nil
		}

		transition(stateAwaitingModel, turn)
		modelTurn, err := l.generate(ctx, history)
		if err != nil {
			return l.failure(taskID, turn, history, err), nil
		}

		record := schemas.TurnRecord{
			ID:        uuid.NewString(),
			Response:  modelTurn,
			Timestamp: time.Now().UTC(),
		}

		transition(stateExecuting, turn)
		action, parseErr := l.parser.ParseTurn(modelTurn)
		if parseErr != nil {
			// The service sent something outside its own contract. Report
			// it back as the turn outcome and let it try again.
			logger.Warn("Model turn did not parse.", zap.Error(parseErr), zap.Int("turn", turn))
			record.Outcome = l.rejectionOutcome(ctx, parseErr)
			history = l.prune(append(history, record))
			continue
		}
		record.Action = action

		if action.Kind == schemas.ActionTaskComplete {
			transition(stateDone, turn)
			logger.Info("Task completed.", zap.Int("turns", turn), zap.String("summary", action.Summary))
			return &schemas.TaskResult{
				TaskID:    taskID,
				Status:    schemas.TaskCompleted,
				Summary:   action.Summary,
				Turns:     turn,
				LastTurns: tail(history, l.cfg.HistoryTail),
			}, nil
		}

		outcome, err := l.execute(ctx, action)
		if err != nil {
			return l.failure(taskID, turn, history, err), nil
		}
		record.Outcome = outcome
		history = l.prune(append(history, record))

		if outcome.Failed() {
			if !outcome.ErrorKind.Recoverable() {
				transition(stateFailed, turn)
				return l.failure(taskID, turn, history,
					schemas.Errorf(outcome.ErrorKind, "%s", outcome.Detail)), nil
			}
			logger.Warn("Action failed; reporting to service.",
				zap.Int("turn", turn),
				zap.String("error_kind", string(outcome.ErrorKind)),
				zap.String("detail", outcome.Detail),
			)
		}
	}
}

// seed navigates to the start URL and builds the first history record:
// the user's instruction plus the initial screenshot.
func (l *Loop) seed(ctx context.Context, instruction string) (*schemas.TurnRecord, error) {
	if l.cfg.StartURL != "" && l.cfg.StartURL != "about:blank" {
		if err := l.page.Navigate(ctx, l.cfg.StartURL); err != nil {
			return nil, err
		}
		if err := l.page.WaitReady(ctx); err != nil && schemas.KindOf(err) != schemas.ErrTimeout {
			return nil, err
		}
	}

	shot, err := l.page.Screenshot(ctx)
	if err != nil {
		return nil, err
	}

	return &schemas.TurnRecord{
		ID:          uuid.NewString(),
		Instruction: instruction,
		Screenshot:  shot,
		Timestamp:   time.Now().UTC(),
	}, nil
}

// generate calls the reasoning service under the per-turn deadline.
func (l *Loop) generate(ctx context.Context, history []schemas.TurnRecord) (*schemas.ModelTurn, error) {
	turnCtx, cancel := context.WithTimeout(ctx, l.cfg.TurnTimeout)
	defer cancel()
	return l.client.GenerateTurn(turnCtx, history)
}

// execute translates the action into pixel space against the live viewport
// and applies it. Geometry faults are fed back to the service like any
// other recoverable failure.
func (l *Loop) execute(ctx context.Context, action *schemas.Action) (*schemas.ExecutionOutcome, error) {
	if action.HasCoordinates() {
		viewport, err := l.page.ViewportSize(ctx)
		if err != nil {
			return nil, err
		}
		pixelAction, err := coords.TranslateAction(*action, viewport)
		if err != nil {
			outcome := l.rejectionOutcome(ctx, err)
			return outcome, nil
		}
		action = &pixelAction
	}

	outcome := l.executor.Execute(ctx, action)
	return &outcome, nil
}

// rejectionOutcome wraps a contract violation as a failed outcome with a
// fresh screenshot so the service can see the unchanged page.
func (l *Loop) rejectionOutcome(ctx context.Context, cause error) *schemas.ExecutionOutcome {
	outcome := &schemas.ExecutionOutcome{
		Status:    schemas.OutcomeFailed,
		ErrorKind: schemas.KindOf(cause),
		Detail:    cause.Error(),
	}
	if shot, err := l.page.Screenshot(ctx); err == nil {
		outcome.Screenshot = shot
	}
	if url, err := l.page.CurrentURL(ctx); err == nil {
		outcome.URL = url
	}
	return outcome
}

// prune bounds history size: the seed record always survives, then the most
// recent HistoryTail records; screenshots are kept only on the most recent
// ScreenshotTail records to bound request payloads.
func (l *Loop) prune(history []schemas.TurnRecord) []schemas.TurnRecord {
	if len(history) == 0 {
		return history
	}

	pruned := history
	if keep := l.cfg.HistoryTail; keep > 0 && len(history) > keep+1 {
		pruned = make([]schemas.TurnRecord, 0, keep+1)
		pruned = append(pruned, history[0])
		pruned = append(pruned, history[len(history)-keep:]...)
	}

	if keep := l.cfg.ScreenshotTail; keep > 0 {
		for i := 1; i < len(pruned)-keep; i++ {
			if pruned[i].Outcome != nil {
				pruned[i].Outcome.Screenshot = nil
			}
		}
	}
	return pruned
}

func (l *Loop) failure(taskID string, turns int, history []schemas.TurnRecord, cause error) *schemas.TaskResult {
	kind := schemas.KindOf(cause)
	l.logger.Error("Task failed.",
		zap.String("task_id", taskID),
		zap.Int("turns", turns),
		zap.String("error_kind", string(kind)),
		zap.Error(cause),
	)

	failure, ok := cause.(*schemas.Error)
	if !ok {
		failure = schemas.NewError(kind, fmt.Sprintf("task failed after %d turns", turns), cause)
	}

	return &schemas.TaskResult{
		TaskID:    taskID,
		Status:    schemas.TaskFailed,
		Failure:   failure,
		Turns:     turns,
		LastTurns: tail(history, l.cfg.HistoryTail),
	}
}

func tail(history []schemas.TurnRecord, n int) []schemas.TurnRecord {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
