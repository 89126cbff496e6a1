// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/TechNavii/computer-use-demo/internal/config"
	"github.com/TechNavii/computer-use-demo/internal/observability"
)

// Manager owns the Chrome process and the single automation tab. It is the
// only component that allocates or tears down browser resources.
type Manager struct {
	cfg    config.Config
	logger *zap.Logger

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	page        *chromePage
	started     bool
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: observability.GetLogger().Named("browser"),
	}
}

// Start launches Chrome, opens the tab and pins the emulated viewport so
// screenshots match the configured geometry exactly.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}

	bcfg := m.cfg.Browser
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", bcfg.Headless),
		chromedp.WindowSize(bcfg.ViewportWidth, bcfg.ViewportHeight),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	for _, arg := range bcfg.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			m.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	launch := []chromedp.Action{
		chromedp.EmulateViewport(int64(bcfg.ViewportWidth), int64(bcfg.ViewportHeight)),
	}
	if err := chromedp.Run(tabCtx, launch...); err != nil {
		tabCancel()
		allocCancel()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	m.allocCtx = allocCtx
	m.allocCancel = allocCancel
	m.tabCtx = tabCtx
	m.tabCancel = tabCancel
	m.page = newChromePage(tabCtx, m.cfg.Network, m.logger)
	m.started = true

	m.logger.Info("Browser launched.",
		zap.Bool("headless", bcfg.Headless),
		zap.Int("viewport_width", bcfg.ViewportWidth),
		zap.Int("viewport_height", bcfg.ViewportHeight),
	)
	return nil
}

// Page returns the live tab handle. Start must have succeeded first.
func (m *Manager) Page() (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started || m.page == nil {
		return nil, fmt.Errorf("browser is not running")
	}
	return m.page, nil
}

// Shutdown tears the tab and the Chrome process down. Safe to call more
// than once.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return
	}

	m.logger.Info("Shutting down browser.")
	if m.tabCancel != nil {
		m.tabCancel()
	}
	if m.allocCancel != nil {
		m.allocCancel()
	}
	m.page = nil
	m.started = false
}
