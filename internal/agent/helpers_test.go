// internal/agent/helpers_test.go
package agent_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/TechNavii/computer-use-demo/api/schemas"
	"github.com/TechNavii/computer-use-demo/internal/browser"
)

// fakePage records every call in order and returns scripted failures.
type fakePage struct {
	mu    sync.Mutex
	calls []string

	viewport   schemas.Viewport
	url        string
	text       string
	screenshot []byte

	// failures maps a method name to the error its next call returns.
	failures map[string]error
}

var _ browser.Page = (*fakePage)(nil)

func newFakePage() *fakePage {
	return &fakePage{
		viewport:   schemas.Viewport{Width: 1000, Height: 800},
		url:        "https://example.com/",
		screenshot: []byte("png-bytes"),
		failures:   map[string]error{},
	}
}

func (p *fakePage) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	if err, ok := p.failures[callName(call)]; ok {
		return err
	}
	return nil
}

// callName strips the argument suffix from a recorded call.
func callName(call string) string {
	for i, r := range call {
		if r == '(' {
			return call[:i]
		}
	}
	return call
}

func (p *fakePage) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *fakePage) Click(ctx context.Context, x, y int) error {
	return p.record(fmt.Sprintf("Click(%d,%d)", x, y))
}

func (p *fakePage) DoubleClick(ctx context.Context, x, y int) error {
	return p.record(fmt.Sprintf("DoubleClick(%d,%d)", x, y))
}

func (p *fakePage) Type(ctx context.Context, text string) error {
	return p.record(fmt.Sprintf("Type(%s)", text))
}

func (p *fakePage) KeyPress(ctx context.Context, key string) error {
	return p.record(fmt.Sprintf("KeyPress(%s)", key))
}

func (p *fakePage) Scroll(ctx context.Context, x, y, deltaX, deltaY int) error {
	return p.record(fmt.Sprintf("Scroll(%d,%d,%d,%d)", x, y, deltaX, deltaY))
}

func (p *fakePage) Drag(ctx context.Context, fromX, fromY, toX, toY int) error {
	return p.record(fmt.Sprintf("Drag(%d,%d,%d,%d)", fromX, fromY, toX, toY))
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	return p.record(fmt.Sprintf("Navigate(%s)", url))
}

func (p *fakePage) Back(ctx context.Context) error {
	return p.record("Back")
}

func (p *fakePage) Forward(ctx context.Context) error {
	return p.record("Forward")
}

func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	if err := p.record("Screenshot"); err != nil {
		return nil, err
	}
	return p.screenshot, nil
}

func (p *fakePage) ExtractText(ctx context.Context) (string, error) {
	if err := p.record("ExtractText"); err != nil {
		return "", err
	}
	return p.text, nil
}

func (p *fakePage) ViewportSize(ctx context.Context) (schemas.Viewport, error) {
	if err := p.record("ViewportSize"); err != nil {
		return schemas.Viewport{}, err
	}
	return p.viewport, nil
}

func (p *fakePage) CurrentURL(ctx context.Context) (string, error) {
	if err := p.record("CurrentURL"); err != nil {
		return "", err
	}
	return p.url, nil
}

func (p *fakePage) WaitReady(ctx context.Context) error {
	return p.record("WaitReady")
}

// scriptedClient replays a fixed sequence of model turns.
type scriptedClient struct {
	mu       sync.Mutex
	turns    []*schemas.ModelTurn
	errs     []error
	requests [][]schemas.TurnRecord
}

func (c *scriptedClient) GenerateTurn(ctx context.Context, history []schemas.TurnRecord) (*schemas.ModelTurn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make([]schemas.TurnRecord, len(history))
	copy(snapshot, history)
	c.requests = append(c.requests, snapshot)

	i := len(c.requests) - 1
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if i < len(c.turns) {
		return c.turns[i], nil
	}
	return nil, fmt.Errorf("scripted client exhausted after %d turns", len(c.turns))
}
