package schemas

// -- Action Schemas --

// ActionKind identifies the browser operation an action descriptor requests.
type ActionKind string

const (
	ActionClick        ActionKind = "CLICK"
	ActionDoubleClick  ActionKind = "DOUBLE_CLICK"
	ActionType         ActionKind = "TYPE"
	ActionKeyPress     ActionKind = "KEY_PRESS"
	ActionScroll       ActionKind = "SCROLL"
	ActionDrag         ActionKind = "DRAG"
	ActionWait         ActionKind = "WAIT"
	ActionNavigate     ActionKind = "NAVIGATE"
	ActionBack         ActionKind = "HISTORY_BACK"
	ActionForward      ActionKind = "HISTORY_FORWARD"
	ActionScreenshot   ActionKind = "SCREENSHOT"
	ActionExtractText  ActionKind = "EXTRACT_TEXT"
	ActionTaskComplete ActionKind = "TASK_COMPLETE"
)

// Action is a validated descriptor for exactly one proposed browser
// operation. It is a flat tagged struct: Kind selects the variant and only
// the fields belonging to that variant are meaningful.
//
// Coordinate-bearing fields (X, Y, ToX, ToY, DeltaX, DeltaY) hold values in
// one space at a time: the parser produces them in the reasoning service's
// normalized space (0..1000 per axis), and coords.TranslateAction rewrites
// them to integral pixel values before execution.
type Action struct {
	Kind ActionKind `json:"kind"`

	// Click / DoubleClick / Type / Scroll origin / Drag origin.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	// Drag destination.
	ToX float64 `json:"to_x,omitempty"`
	ToY float64 `json:"to_y,omitempty"`

	// Scroll displacement. Positive DeltaY scrolls the document down.
	DeltaX float64 `json:"delta_x,omitempty"`
	DeltaY float64 `json:"delta_y,omitempty"`

	// Type payload, already sanitized by the parser.
	Text string `json:"text,omitempty"`
	// PressEnter appends an Enter key press after typing.
	PressEnter bool `json:"press_enter,omitempty"`

	// KeyPress key or key combination (e.g. "Enter", "Control+a").
	Key string `json:"key,omitempty"`

	// Wait duration in seconds, clamped by the parser.
	Seconds float64 `json:"seconds,omitempty"`

	// Navigate target.
	URL string `json:"url,omitempty"`

	// TaskComplete summary text.
	Summary string `json:"summary,omitempty"`

	// CallName records the reasoning service's function name that produced
	// this descriptor, echoed back in the function response.
	CallName string `json:"call_name,omitempty"`
}

// HasCoordinates reports whether the action kind carries a target point that
// must be translated between coordinate spaces.
func (a Action) HasCoordinates() bool {
	switch a.Kind {
	case ActionClick, ActionDoubleClick, ActionDrag, ActionScroll, ActionType:
		return true
	default:
		return false
	}
}
