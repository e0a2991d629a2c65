package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/v0xg/teamscrape/internal/locator"
	"github.com/v0xg/teamscrape/internal/page"
)

// Page is the rod-backed page.Page
type Page struct {
	page *rod.Page
	log  *zap.Logger
}

var _ page.Page = (*Page)(nil)

func (p *Page) Title(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.title`)
	if err != nil {
		return "", fmt.Errorf("read title: %w", err)
	}
	return res.Value.String(), nil
}

// WaitVisible polls for the element, then for it to become visible, both
// within the same timeout.
func (p *Page) WaitVisible(ctx context.Context, loc locator.Locator, timeout time.Duration) (page.Element, error) {
	css, err := loc.CSS()
	if err != nil {
		return nil, err
	}
	timed := p.page.Context(ctx).Timeout(timeout)
	el, err := timed.Element(css)
	if err != nil {
		return nil, p.waitErr(ctx, loc, err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, p.waitErr(ctx, loc, err)
	}
	// Detach from the expiring timeout context before handing it out.
	return &Element{el: el.Context(ctx)}, nil
}

func (p *Page) WaitPresent(ctx context.Context, loc locator.Locator, timeout time.Duration) (page.Element, error) {
	css, err := loc.CSS()
	if err != nil {
		return nil, err
	}
	el, err := p.page.Context(ctx).Timeout(timeout).Element(css)
	if err != nil {
		return nil, p.waitErr(ctx, loc, err)
	}
	return &Element{el: el.Context(ctx)}, nil
}

func (p *Page) Find(ctx context.Context, loc locator.Locator) (page.Element, error) {
	css, err := loc.CSS()
	if err != nil {
		return nil, err
	}
	els, err := p.page.Context(ctx).Elements(css)
	if err != nil {
		return nil, err
	}
	if els.Empty() {
		return nil, fmt.Errorf("%w: %s", page.ErrNotFound, loc)
	}
	return &Element{el: els.First()}, nil
}

func (p *Page) FindAll(ctx context.Context, loc locator.Locator) ([]page.Element, error) {
	css, err := loc.CSS()
	if err != nil {
		return nil, err
	}
	els, err := p.page.Context(ctx).Elements(css)
	if err != nil {
		return nil, err
	}
	return wrap(els), nil
}

// Screenshot captures the viewport as PNG
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (p *Page) waitErr(ctx context.Context, loc locator.Locator, err error) error {
	err = timeoutErr(ctx, loc.String(), err)
	if errors.Is(err, page.ErrTimeout) {
		p.log.Debug("Wait timed out", zap.Stringer("locator", loc))
	}
	return err
}

// timeoutErr maps rod's expired-deadline error to page.ErrTimeout. A
// cancelled parent ctx is returned as is so interrupts are not reported as
// timeouts. ctx is the caller's context, not the one carrying the deadline.
func timeoutErr(ctx context.Context, target string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", page.ErrTimeout, target)
	}
	return err
}

// Element is the rod-backed page.Element
type Element struct {
	el *rod.Element
}

var _ page.Element = (*Element)(nil)

func (e *Element) Text() (string, error) {
	return e.el.Text()
}

func (e *Element) Attribute(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *Element) Find(loc locator.Locator) (page.Element, error) {
	css, err := loc.CSS()
	if err != nil {
		return nil, err
	}
	els, err := e.el.Elements(css)
	if err != nil {
		return nil, err
	}
	if els.Empty() {
		return nil, fmt.Errorf("%w: %s", page.ErrNotFound, loc)
	}
	return &Element{el: els.First()}, nil
}

func (e *Element) FindAll(loc locator.Locator) ([]page.Element, error) {
	css, err := loc.CSS()
	if err != nil {
		return nil, err
	}
	els, err := e.el.Elements(css)
	if err != nil {
		return nil, err
	}
	return wrap(els), nil
}

// Input waits for the element to be writable, bounded by ctx
func (e *Element) Input(ctx context.Context, text string) error {
	return actionErr(ctx, "input", e.el.Context(ctx).Input(text))
}

// Click scrolls the element into view and waits until it is interactable,
// bounded by ctx. A covered or disabled control fails when ctx expires.
func (e *Element) Click(ctx context.Context) error {
	return actionErr(ctx, "click", e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
}

// actionErr classifies an interaction failure. ctx is the bounded action
// context itself, so only an expired deadline counts as a timeout.
func actionErr(ctx context.Context, action string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", page.ErrTimeout, action)
	}
	return err
}

func wrap(els rod.Elements) []page.Element {
	out := make([]page.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &Element{el: el})
	}
	return out
}
