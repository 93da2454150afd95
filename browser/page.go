// Package browser owns the browser-session collaborator: process
// lifecycle, tab creation, and a narrow page handle the engine drives.
package browser

import (
	"context"
	"errors"
)

// ErrSessionClosed indicates the underlying page or browser process is
// no longer usable. The aggregator treats it as a fatal session fault.
var ErrSessionClosed = errors.New("browser session closed")

// ConsoleEvent is one console message emitted by the page.
type ConsoleEvent struct {
	Level     string
	Text      string
	Timestamp float64
}

// NetworkEvent is one network response or transport failure.
type NetworkEvent struct {
	URL       string
	Status    int
	Failed    bool
	Timestamp float64
}

// Page is a live, navigable document handle. It supports element
// lookup, click, text query, and script evaluation; everything above
// it (resolution strategy, step sequencing, telemetry classification)
// lives in the engine and telemetry packages.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitReady(ctx context.Context) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error

	// Count reports how many elements match a structural query.
	// A query the document cannot parse counts as zero matches.
	Count(ctx context.Context, selector string) (int, error)

	// FindByText locates visible elements within base (whole document
	// when base is empty) whose text equals or contains value, tags the
	// first match with a stable attribute, and returns a selector
	// addressing it plus the total match count. Re-finding an already
	// tagged element returns the same selector.
	FindByText(ctx context.Context, base, value string) (selector string, matches int, err error)

	Evaluate(ctx context.Context, expr string, out any) error
	Screenshot(ctx context.Context) ([]byte, error)

	OnConsole(fn func(ConsoleEvent))
	OnNetwork(fn func(NetworkEvent))
}

// Factory hands out page handles. The campaign aggregator asks for
// exactly one page and reuses it across every iteration.
type Factory interface {
	NewPage(ctx context.Context) (Page, error)
}
