package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// countScript reports how many elements match a structural query; an
// unparsable query counts as zero matches.
const countScript = `(function(sel) {
	try {
		return document.querySelectorAll(sel).length;
	} catch (e) {
		return 0;
	}
})(%s)`

// findTextScript locates visible elements whose text equals or contains
// the needle, tags the first match, and returns a selector for it. An
// element that already carries a tag keeps it, so repeated lookups on
// an unchanged page address the same node.
const findTextScript = `(function(base, needle, attr) {
	const scope = base && base.trim() !== '' ? base : '*';
	let nodes;
	try {
		nodes = document.querySelectorAll(scope);
	} catch (e) {
		return {count: 0, selector: ''};
	}
	const matches = [];
	for (const el of nodes) {
		const text = (el.textContent || '').trim();
		if (text === '') continue;
		if (text !== needle && !text.includes(needle)) continue;
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		if (rect.width <= 0 || rect.height <= 0) continue;
		if (style.display === 'none' || style.visibility === 'hidden') continue;
		matches.push(el);
	}
	if (matches.length === 0) return {count: 0, selector: ''};
	const el = matches[0];
	let token = el.getAttribute(attr);
	if (!token) {
		token = 'ws-' + Date.now() + '-' + Math.random().toString(36).slice(2, 8);
		el.setAttribute(attr, token);
	}
	return {count: matches.length, selector: '[' + attr + '="' + token + '"]'};
})(%s, %s, %s)`

// targetAttribute tags elements located by text search so they can be
// re-addressed through a plain attribute selector.
const targetAttribute = "data-webstress-target"

type tabPage struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	consoleFns []func(ConsoleEvent)
	networkFns []func(NetworkEvent)
	requests   map[network.RequestID]string
}

func newTabPage(browserCtx context.Context) (*tabPage, error) {
	tabCtx, cancel := chromedp.NewContext(browserCtx)

	p := &tabPage{
		ctx:      tabCtx,
		cancel:   cancel,
		requests: make(map[network.RequestID]string),
	}

	chromedp.ListenTarget(tabCtx, p.dispatch)

	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return p, nil
}

func (p *tabPage) dispatch(ev interface{}) {
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		p.emitConsole(ConsoleEvent{
			Level:     consoleLevel(ev.Type),
			Text:      consoleText(ev.Args),
			Timestamp: nowSeconds(),
		})
	case *runtime.EventExceptionThrown:
		p.emitConsole(ConsoleEvent{
			Level:     "error",
			Text:      exceptionText(ev.ExceptionDetails),
			Timestamp: nowSeconds(),
		})
	case *network.EventRequestWillBeSent:
		p.mu.Lock()
		p.requests[ev.RequestID] = ev.Request.URL
		p.mu.Unlock()
	case *network.EventResponseReceived:
		p.mu.Lock()
		delete(p.requests, ev.RequestID)
		p.mu.Unlock()
		p.emitNetwork(NetworkEvent{
			URL:       ev.Response.URL,
			Status:    int(ev.Response.Status),
			Failed:    ev.Response.Status >= 400,
			Timestamp: nowSeconds(),
		})
	case *network.EventLoadingFailed:
		p.mu.Lock()
		url := p.requests[ev.RequestID]
		delete(p.requests, ev.RequestID)
		p.mu.Unlock()
		if url == "" {
			return
		}
		p.emitNetwork(NetworkEvent{
			URL:       url,
			Failed:    true,
			Timestamp: nowSeconds(),
		})
	}
}

func (p *tabPage) emitConsole(ev ConsoleEvent) {
	p.mu.Lock()
	fns := append([]func(ConsoleEvent){}, p.consoleFns...)
	p.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (p *tabPage) emitNetwork(ev NetworkEvent) {
	p.mu.Lock()
	fns := append([]func(NetworkEvent){}, p.networkFns...)
	p.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (p *tabPage) OnConsole(fn func(ConsoleEvent)) {
	p.mu.Lock()
	p.consoleFns = append(p.consoleFns, fn)
	p.mu.Unlock()
}

func (p *tabPage) OnNetwork(fn func(NetworkEvent)) {
	p.mu.Lock()
	p.networkFns = append(p.networkFns, fn)
	p.mu.Unlock()
}

// run executes chromedp actions against the tab, honouring the
// caller's deadline while keeping the tab's CDP values.
func (p *tabPage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := p.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(p.ctx, deadline)
		defer cancel()
	}

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if p.ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrSessionClosed, err)
		}
		return err
	}
	return nil
}

func (p *tabPage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *tabPage) WaitReady(ctx context.Context) error {
	return p.run(ctx, chromedp.WaitReady("body", chromedp.ByQuery))
}

func (p *tabPage) WaitVisible(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *tabPage) Click(ctx context.Context, selector string) error {
	return p.run(ctx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

func (p *tabPage) Count(ctx context.Context, selector string) (int, error) {
	var count int
	script := fmt.Sprintf(countScript, jsonEncode(selector))
	if err := p.Evaluate(ctx, script, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (p *tabPage) FindByText(ctx context.Context, base, value string) (string, int, error) {
	var result struct {
		Count    int    `json:"count"`
		Selector string `json:"selector"`
	}
	script := fmt.Sprintf(findTextScript, jsonEncode(base), jsonEncode(value), jsonEncode(targetAttribute))
	if err := p.Evaluate(ctx, script, &result); err != nil {
		return "", 0, err
	}
	return result.Selector, result.Count, nil
}

func (p *tabPage) Evaluate(ctx context.Context, expr string, out any) error {
	return p.run(ctx, chromedp.Evaluate(expr, out, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithReturnByValue(true).WithSilent(true)
	}))
}

func (p *tabPage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func consoleLevel(t runtime.APIType) string {
	switch t {
	case runtime.APITypeError, runtime.APITypeAssert:
		return "error"
	case runtime.APITypeWarning:
		return "warning"
	default:
		return "info"
	}
}

func consoleText(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		if len(arg.Value) > 0 {
			var s string
			if err := json.Unmarshal(arg.Value, &s); err == nil {
				parts = append(parts, s)
			} else {
				parts = append(parts, string(arg.Value))
			}
			continue
		}
		if arg.Description != "" {
			parts = append(parts, arg.Description)
		}
	}
	return strings.Join(parts, " ")
}

func exceptionText(details *runtime.ExceptionDetails) string {
	if details == nil {
		return "uncaught exception"
	}
	text := details.Text
	if details.Exception != nil && details.Exception.Description != "" {
		if text != "" {
			text += ": "
		}
		text += details.Exception.Description
	}
	return text
}

func jsonEncode(v string) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
