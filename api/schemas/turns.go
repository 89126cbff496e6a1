package schemas

import (
	"encoding/json"
	"time"
)

// -- Turn Schemas --

// Viewport holds the pixel dimensions of the visible browser page area.
// It is read fresh before each coordinate translation because navigation may
// resize the viewport between turns.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FunctionCall is one structured action proposal extracted from a reasoning
// service response. Args is kept raw; the parser owns validation.
type FunctionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// ModelTurn is the decoded payload of a single reasoning service response:
// optional free text plus zero or more function calls, in response order.
type ModelTurn struct {
	Text  string         `json:"text,omitempty"`
	Calls []FunctionCall `json:"calls,omitempty"`
	// Raw preserves the candidate content for history round-tripping.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// OutcomeStatus classifies the result of executing one action.
type OutcomeStatus string

const (
	OutcomeOK     OutcomeStatus = "ok"
	OutcomeFailed OutcomeStatus = "failed"
)

// ExecutionOutcome is what one executed action produced: a fresh screenshot
// and page URL on success (and on recoverable failure, so the next reasoning
// turn can observe the page), or an error kind plus detail.
type ExecutionOutcome struct {
	Status     OutcomeStatus `json:"status"`
	Screenshot []byte        `json:"-"`
	URL        string        `json:"url,omitempty"`
	Text       string        `json:"text,omitempty"`
	Summary    string        `json:"summary,omitempty"`
	ErrorKind  ErrorKind     `json:"error_kind,omitempty"`
	Detail     string        `json:"detail,omitempty"`
}

// Failed reports whether the outcome describes a failure.
func (o ExecutionOutcome) Failed() bool { return o.Status == OutcomeFailed }

// TurnRecord is one completed exchange with the reasoning service. History
// is an ordered, append-only sequence of these; insertion order forms the
// service's context window.
type TurnRecord struct {
	// ID is unique per record within one task.
	ID string `json:"id"`
	// Instruction is set only on the seed record.
	Instruction string `json:"instruction,omitempty"`
	// Screenshot is the page image attached to this record. Pruning may
	// clear it on older records while keeping the rest of the exchange.
	Screenshot []byte `json:"-"`
	// Response is the reasoning service's turn, nil on the seed record.
	Response *ModelTurn `json:"response,omitempty"`
	// Outcome is the execution result fed back for this turn.
	Outcome *ExecutionOutcome `json:"outcome,omitempty"`
	// Action is the validated descriptor executed this turn, if any.
	Action *Action `json:"action,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// TaskStatus is the terminal state of one task run.
type TaskStatus string

const (
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
)

// TaskResult is the caller-facing outcome of a full task run.
type TaskResult struct {
	TaskID  string     `json:"task_id"`
	Status  TaskStatus `json:"status"`
	Summary string     `json:"summary,omitempty"`
	// Failure is set when Status is TaskFailed.
	Failure *Error `json:"failure,omitempty"`
	Turns   int    `json:"turns"`
	// LastTurns holds the tail of the history for diagnosis, screenshots
	// stripped.
	LastTurns []TurnRecord `json:"last_turns,omitempty"`
}
