// internal/agent/parser.go
package agent

import (
	encodingjson "encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/TechNavii/computer-use-demo/api/schemas"
	"github.com/TechNavii/computer-use-demo/internal/config"
)

// Parser decodes one model turn into a single validated action descriptor in
// normalized coordinate space. The call-name surface is a versioned external
// contract, so unknown names and malformed arguments are reported as
// MalformedAction outcomes rather than dropped.
type Parser struct {
	maxWait         time.Duration
	maxTypableChars int
}

func NewParser(cfg config.AgentConfig) *Parser {
	return &Parser{
		maxWait:         cfg.MaxWait,
		maxTypableChars: cfg.MaxTypableChars,
	}
}

// defaultScrollMagnitude is the normalized-space displacement used when the
// service omits a scroll magnitude. Roughly one viewport.
const defaultScrollMagnitude = 800.0

// ParseTurn turns a model response into exactly one action. A response with
// no function calls and non-empty text is the service signalling the task is
// finished; its text becomes the summary.
func (p *Parser) ParseTurn(turn *schemas.ModelTurn) (*schemas.Action, error) {
	if turn == nil {
		return nil, schemas.Errorf(schemas.ErrMalformedAction, "empty model turn")
	}

	if len(turn.Calls) == 0 {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			return nil, schemas.Errorf(schemas.ErrMalformedAction,
				"model turn carried neither a function call nor text")
		}
		return &schemas.Action{Kind: schemas.ActionTaskComplete, Summary: text}, nil
	}

	if len(turn.Calls) > 1 {
		return nil, schemas.Errorf(schemas.ErrMalformedAction,
			"model turn carried %d function calls, expected exactly one", len(turn.Calls))
	}

	return p.parseCall(turn.Calls[0])
}

func (p *Parser) parseCall(call schemas.FunctionCall) (*schemas.Action, error) {
	args := argReader{name: call.Name, args: call.Args}

	action := &schemas.Action{CallName: call.Name}

	switch call.Name {
	case "open_web_browser":
		// The browser is already running; treated as an observe action so
		// the service still receives a fresh screenshot.
		action.Kind = schemas.ActionScreenshot

	case "take_screenshot":
		action.Kind = schemas.ActionScreenshot

	case "extract_text":
		action.Kind = schemas.ActionExtractText

	case "click_at":
		action.Kind = schemas.ActionClick
		action.X = args.float("x")
		action.Y = args.float("y")

	case "double_click_at":
		action.Kind = schemas.ActionDoubleClick
		action.X = args.float("x")
		action.Y = args.float("y")

	case "type_text_at":
		action.Kind = schemas.ActionType
		action.X = args.float("x")
		action.Y = args.float("y")
		action.Text = p.sanitizeText(args.str("text"))
		action.PressEnter = args.optBool("press_enter")

	case "key_combination":
		action.Kind = schemas.ActionKeyPress
		action.Key = args.str("keys")

	case "scroll_document":
		action.Kind = schemas.ActionScroll
		action.X, action.Y = 500, 500
		dx, dy, err := scrollDeltas(args.str("direction"), defaultScrollMagnitude)
		if err != nil {
			return nil, err
		}
		action.DeltaX, action.DeltaY = dx, dy

	case "scroll_at":
		action.Kind = schemas.ActionScroll
		action.X = args.float("x")
		action.Y = args.float("y")
		magnitude := args.optFloat("magnitude", defaultScrollMagnitude)
		dx, dy, err := scrollDeltas(args.str("direction"), magnitude)
		if err != nil {
			return nil, err
		}
		action.DeltaX, action.DeltaY = dx, dy

	case "drag_and_drop":
		action.Kind = schemas.ActionDrag
		action.X = args.float("x")
		action.Y = args.float("y")
		action.ToX = args.float("destination_x")
		action.ToY = args.float("destination_y")

	case "wait_5_seconds":
		action.Kind = schemas.ActionWait
		action.Seconds = 5

	case "wait":
		action.Kind = schemas.ActionWait
		action.Seconds = p.clampWait(args.optFloat("seconds", 1))

	case "navigate":
		action.Kind = schemas.ActionNavigate
		target, err := validateURL(args.str("url"))
		if err != nil {
			return nil, err
		}
		action.URL = target

	case "go_back":
		action.Kind = schemas.ActionBack

	case "go_forward":
		action.Kind = schemas.ActionForward

	default:
		return nil, schemas.Errorf(schemas.ErrMalformedAction,
			"unsupported function %q", call.Name)
	}

	if args.err != nil {
		return nil, args.err
	}
	return action, nil
}

// sanitizeText keeps printable runes plus tab and line breaks, and caps the
// payload so a runaway generation cannot flood the keyboard.
func (p *Parser) sanitizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	count := 0
	for _, r := range text {
		if count >= p.maxTypableChars {
			break
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(r)
			count++
		}
	}
	return b.String()
}

func (p *Parser) clampWait(seconds float64) float64 {
	if seconds < 0 {
		return 0
	}
	if max := p.maxWait.Seconds(); seconds > max {
		return max
	}
	return seconds
}

func scrollDeltas(direction string, magnitude float64) (dx, dy float64, err error) {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "up":
		return 0, -magnitude, nil
	case "down":
		return 0, magnitude, nil
	case "left":
		return -magnitude, 0, nil
	case "right":
		return magnitude, 0, nil
	default:
		return 0, 0, schemas.Errorf(schemas.ErrMalformedAction,
			"unknown scroll direction %q", direction)
	}
}

func validateURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", schemas.NewError(schemas.ErrMalformedAction,
			fmt.Sprintf("navigation target %q does not parse", raw), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", schemas.Errorf(schemas.ErrMalformedAction,
			"navigation target %q must use http or https", raw)
	}
	if parsed.Host == "" {
		return "", schemas.Errorf(schemas.ErrMalformedAction,
			"navigation target %q has no host", raw)
	}
	return parsed.String(), nil
}

// argReader pulls typed values out of a decoded argument map, recording the
// first failure so call sites stay flat.
type argReader struct {
	name string
	args map[string]interface{}
	err  error
}

func (r *argReader) float(key string) float64 {
	if r.err != nil {
		return 0
	}
	raw, ok := r.args[key]
	if !ok {
		r.err = schemas.Errorf(schemas.ErrMalformedAction,
			"%s is missing required argument %q", r.name, key)
		return 0
	}
	v, ok := toFloat(raw)
	if !ok {
		r.err = schemas.Errorf(schemas.ErrMalformedAction,
			"%s argument %q is %T, expected a number", r.name, key, raw)
		return 0
	}
	return v
}

func (r *argReader) optFloat(key string, fallback float64) float64 {
	if r.err != nil {
		return fallback
	}
	raw, ok := r.args[key]
	if !ok {
		return fallback
	}
	v, ok := toFloat(raw)
	if !ok {
		r.err = schemas.Errorf(schemas.ErrMalformedAction,
			"%s argument %q is %T, expected a number", r.name, key, raw)
		return fallback
	}
	return v
}

func (r *argReader) str(key string) string {
	if r.err != nil {
		return ""
	}
	raw, ok := r.args[key]
	if !ok {
		r.err = schemas.Errorf(schemas.ErrMalformedAction,
			"%s is missing required argument %q", r.name, key)
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		r.err = schemas.Errorf(schemas.ErrMalformedAction,
			"%s argument %q is %T, expected a string", r.name, key, raw)
		return ""
	}
	return s
}

func (r *argReader) optBool(key string) bool {
	if r.err != nil {
		return false
	}
	raw, ok := r.args[key]
	if !ok {
		return false
	}
	b, ok := raw.(bool)
	if !ok {
		r.err = schemas.Errorf(schemas.ErrMalformedAction,
			"%s argument %q is %T, expected a boolean", r.name, key, raw)
		return false
	}
	return b
}

// toFloat accepts the numeric shapes JSON decoding produces.
func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case encodingjson.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
