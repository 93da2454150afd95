package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// Options configures the browser process. Headless/windowed mode and
// the user agent are upstream configuration concerns; nothing else
// about the process leaks past this package.
type Options struct {
	Headless  bool
	UserAgent string
}

// Session owns one browser process and hands out page handles.
type Session struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewSession launches a browser process.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", opts.Headless),
		// Exposes window.gc so heap relief can ask for a real collection.
		chromedp.Flag("js-flags", "--expose-gc"),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Force the browser process to start so launch failures surface
	// here instead of on the first iteration.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	return &Session{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      browserCancel,
	}, nil
}

// NewPage opens a tab and returns its page handle.
func (s *Session) NewPage(ctx context.Context) (Page, error) {
	if s.ctx.Err() != nil {
		return nil, ErrSessionClosed
	}
	return newTabPage(s.ctx)
}

// Close tears down the browser process.
func (s *Session) Close() error {
	s.cancel()
	s.allocCancel()
	return nil
}
