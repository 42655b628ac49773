package render

import (
	"context"
	"errors"
)

// ErrRendererNotStarted is returned by Render before Start or after Close
var ErrRendererNotStarted = errors.New("renderer not started")

// Renderer turns a page URL into Markdown.
// Start is called once before the first Render and Close once after the last;
// Render must be safe for concurrent use between the two.
type Renderer interface {
	Start(ctx context.Context) error
	Render(ctx context.Context, pageURL string) (markdown string, err error)
	Close() error
}
