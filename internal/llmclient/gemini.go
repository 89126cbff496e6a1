// internal/llmclient/gemini.go
package llmclient

import (
	"bytes"
	"context"
	encodingjson "encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/TechNavii/computer-use-demo/api/schemas"
	"github.com/TechNavii/computer-use-demo/internal/config"
)

// GeminiClient talks to the Gemini generateContent API with the Computer Use
// tool enabled. It is the only component aware of the service's wire format;
// the rest of the pipeline deals in schemas.ModelTurn and schemas.TurnRecord.
type GeminiClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	limiter    *rate.Limiter
	cfg        config.AgentConfig
}

// -- Gemini API Request/Response Structures (internal to this package) --

type geminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"` // base64 on the wire
}

type geminiFunctionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

type geminiFunctionResponsePart struct {
	InlineData *geminiBlob `json:"inlineData,omitempty"`
}

type geminiFunctionResponse struct {
	Name     string                       `json:"name"`
	Response map[string]interface{}       `json:"response"`
	Parts    []geminiFunctionResponsePart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	InlineData       *geminiBlob             `json:"inlineData,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiComputerUse struct {
	Environment string `json:"environment"`
}

type geminiTool struct {
	ComputerUse *geminiComputerUse `json:"computerUse,omitempty"`
}

type geminiRequestPayload struct {
	Contents []geminiContent `json:"contents"`
	Tools    []geminiTool    `json:"tools,omitempty"`
}

type geminiResponsePayload struct {
	Candidates []struct {
		Content      encodingjson.RawMessage `json:"content"`
		FinishReason string                  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// environmentBrowser is the Computer Use environment for web pages.
const environmentBrowser = "ENVIRONMENT_BROWSER"

// NewGeminiClient initializes the client.
func NewGeminiClient(cfg config.AgentConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required (set GEMINI_API_KEY)")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), 1)
	}

	return &GeminiClient{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		cfg:      cfg,
		limiter:  limiter,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		logger: logger.Named("llm_client.gemini"),
	}, nil
}

// GenerateTurn sends the accumulated history to the service and decodes the
// next proposed turn. Transport faults and retry exhaustion surface as a
// schemas.Error with kind ServiceUnavailable.
func (c *GeminiClient) GenerateTurn(ctx context.Context, history []schemas.TurnRecord) (*schemas.ModelTurn, error) {
	payload, err := c.buildRequestPayload(history)
	if err != nil {
		return nil, fmt.Errorf("failed to build request payload: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	b.MaxInterval = 30 * time.Second

	var turn *schemas.ModelTurn

	operation := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

		startTime := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		duration := time.Since(startTime)

		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Warn("Network error during reasoning request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return c.handleAPIError(resp.StatusCode, respBody)
		}

		decoded, err := decodeTurn(respBody)
		if err != nil {
			return backoff.Permanent(err)
		}

		var usage geminiResponsePayload
		_ = json.Unmarshal(respBody, &usage)
		c.logger.Info("Reasoning turn complete",
			zap.Duration("duration", duration),
			zap.Int("prompt_tokens", usage.UsageMetadata.PromptTokenCount),
			zap.Int("completion_tokens", usage.UsageMetadata.CandidatesTokenCount),
			zap.Int("total_tokens", usage.UsageMetadata.TotalTokenCount),
		)

		turn = decoded
		return nil
	}

	if err = backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, schemas.NewError(schemas.ErrServiceUnavailable, "reasoning service request failed", err)
	}

	return turn, nil
}

// buildRequestPayload converts the pruned turn history into wire contents.
// The seed record becomes a user content with instruction text and the
// initial screenshot; every later record contributes the model's own turn
// (echoed verbatim) followed by a function response carrying the execution
// outcome and post-action screenshot.
func (c *GeminiClient) buildRequestPayload(history []schemas.TurnRecord) (*geminiRequestPayload, error) {
	contents := make([]geminiContent, 0, len(history)*2)

	for _, rec := range history {
		if rec.Response == nil {
			// Seed record.
			parts := []geminiPart{{Text: rec.Instruction}}
			if len(rec.Screenshot) > 0 {
				parts = append(parts, geminiPart{InlineData: &geminiBlob{
					MimeType: "image/png",
					Data:     rec.Screenshot,
				}})
			}
			contents = append(contents, geminiContent{Role: "user", Parts: parts})
			continue
		}

		model, err := echoModelContent(rec.Response)
		if err != nil {
			return nil, err
		}
		contents = append(contents, model)

		if rec.Outcome != nil {
			contents = append(contents, functionResponseContent(rec))
		}
	}

	return &geminiRequestPayload{
		Contents: contents,
		Tools: []geminiTool{
			{ComputerUse: &geminiComputerUse{Environment: environmentBrowser}},
		},
	}, nil
}

// echoModelContent reconstructs the model's content entry for the context
// window, preferring the raw candidate content when available.
func echoModelContent(turn *schemas.ModelTurn) (geminiContent, error) {
	if len(turn.Raw) > 0 {
		var content geminiContent
		if err := json.Unmarshal(turn.Raw, &content); err != nil {
			return geminiContent{}, fmt.Errorf("failed to re-parse stored model content: %w", err)
		}
		return content, nil
	}

	parts := make([]geminiPart, 0, len(turn.Calls)+1)
	if turn.Text != "" {
		parts = append(parts, geminiPart{Text: turn.Text})
	}
	for _, call := range turn.Calls {
		parts = append(parts, geminiPart{FunctionCall: &geminiFunctionCall{
			Name: call.Name,
			Args: call.Args,
		}})
	}
	return geminiContent{Role: "model", Parts: parts}, nil
}

// functionResponseContent builds the user content reporting one executed
// action back to the service: status or error kind plus detail, the page
// URL, and the post-action screenshot when the record still carries one.
func functionResponseContent(rec schemas.TurnRecord) geminiContent {
	outcome := rec.Outcome

	response := map[string]interface{}{
		"url": outcome.URL,
	}
	if outcome.Failed() {
		response["error"] = string(outcome.ErrorKind)
		if outcome.Detail != "" {
			response["detail"] = outcome.Detail
		}
	} else {
		response["status"] = string(outcome.Status)
		if outcome.Text != "" {
			response["text"] = outcome.Text
		}
	}

	name := "unknown"
	if rec.Action != nil && rec.Action.CallName != "" {
		name = rec.Action.CallName
	}

	fr := &geminiFunctionResponse{
		Name:     name,
		Response: response,
	}
	if len(outcome.Screenshot) > 0 {
		fr.Parts = []geminiFunctionResponsePart{{
			InlineData: &geminiBlob{MimeType: "image/png", Data: outcome.Screenshot},
		}}
	}

	return geminiContent{
		Role:  "user",
		Parts: []geminiPart{{FunctionResponse: fr}},
	}
}

// decodeTurn extracts the first candidate's text and function calls into the
// neutral ModelTurn structure used by the parser.
func decodeTurn(respBody []byte) (*schemas.ModelTurn, error) {
	var payload geminiResponsePayload
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response payload: %w", err)
	}
	if len(payload.Candidates) == 0 {
		return nil, fmt.Errorf("reasoning service returned no candidates")
	}

	candidate := payload.Candidates[0]

	var content geminiContent
	if err := json.Unmarshal(candidate.Content, &content); err != nil {
		return nil, fmt.Errorf("failed to decode candidate content: %w", err)
	}
	if len(content.Parts) == 0 {
		return nil, fmt.Errorf("reasoning service returned empty content parts (reason: %s)", candidate.FinishReason)
	}

	turn := &schemas.ModelTurn{Raw: []byte(candidate.Content)}
	for _, part := range content.Parts {
		if part.FunctionCall != nil {
			turn.Calls = append(turn.Calls, schemas.FunctionCall{
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
		if part.Text != "" {
			if turn.Text != "" {
				turn.Text += " "
			}
			turn.Text += part.Text
		}
	}
	return turn, nil
}

// handleAPIError distinguishes transient statuses (retried) from permanent
// ones.
func (c *GeminiClient) handleAPIError(statusCode int, body []byte) error {
	c.logger.Error("Gemini API returned error status", zap.Int("status", statusCode), zap.String("response", string(body)))
	err := fmt.Errorf("gemini API error: status %d, body: %s", statusCode, string(body))

	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
		return err // Transient, retry.
	default:
		return backoff.Permanent(err)
	}
}
