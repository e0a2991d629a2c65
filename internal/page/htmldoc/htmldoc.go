// Package htmldoc is an in-memory page backend over a parsed HTML document.
// It serves saved page snapshots and DOM fixtures: the document only changes
// when Load is called, typically from a click handler, so waits resolve
// immediately instead of polling.
package htmldoc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/v0xg/teamscrape/internal/locator"
	"github.com/v0xg/teamscrape/internal/page"
)

// ClickFunc runs when an element matching its registration is clicked
type ClickFunc func(d *Document) error

type clickHandler struct {
	css string
	fn  ClickFunc
}

// Keystroke records text typed into an element
type Keystroke struct {
	ID   string
	Text string
}

// Document is a mutable page.Page over goquery
type Document struct {
	mu       sync.Mutex
	doc      *goquery.Document
	handlers []clickHandler
	typed    []Keystroke
	clicks   []string
}

// New parses html into a Document
func New(html string) (*Document, error) {
	d := &Document{}
	if err := d.Load(html); err != nil {
		return nil, err
	}
	return d, nil
}

// Load replaces the document content, keeping click handlers and history
func (d *Document) Load(html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	d.mu.Lock()
	d.doc = doc
	d.mu.Unlock()
	return nil
}

// OnClick registers fn to run when an element matching loc is clicked
func (d *Document) OnClick(loc locator.Locator, fn ClickFunc) error {
	css, err := loc.CSS()
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.handlers = append(d.handlers, clickHandler{css: css, fn: fn})
	d.mu.Unlock()
	return nil
}

// Typed returns every Input call in order
func (d *Document) Typed() []Keystroke {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Keystroke(nil), d.typed...)
}

// Clicks returns the ids (or tag names) of clicked elements in order
func (d *Document) Clicks() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.clicks...)
}

// HTML renders the current document
func (d *Document) HTML() (string, error) {
	return d.current().Html()
}

func (d *Document) current() *goquery.Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc
}

func (d *Document) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(d.current().Find("title").First().Text()), nil
}

func (d *Document) WaitVisible(ctx context.Context, loc locator.Locator, timeout time.Duration) (page.Element, error) {
	return d.wait(ctx, loc, true)
}

func (d *Document) WaitPresent(ctx context.Context, loc locator.Locator, timeout time.Duration) (page.Element, error) {
	return d.wait(ctx, loc, false)
}

func (d *Document) wait(ctx context.Context, loc locator.Locator, visible bool) (page.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	css, err := loc.CSS()
	if err != nil {
		return nil, err
	}
	var found *goquery.Selection
	d.current().Find(css).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if visible && !isVisible(s) {
			return true
		}
		found = s
		return false
	})
	if found == nil {
		return nil, fmt.Errorf("%w: %s", page.ErrTimeout, loc)
	}
	return &element{doc: d, sel: found}, nil
}

func (d *Document) Find(ctx context.Context, loc locator.Locator) (page.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return find(d, d.current().Selection, loc)
}

func (d *Document) FindAll(ctx context.Context, loc locator.Locator) ([]page.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return findAll(d, d.current().Selection, loc)
}

type element struct {
	doc *Document
	sel *goquery.Selection
}

func (e *element) Text() (string, error) {
	var b strings.Builder
	writeText(&b, e.sel)
	return b.String(), nil
}

func (e *element) Attribute(name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *element) Find(loc locator.Locator) (page.Element, error) {
	return find(e.doc, e.sel, loc)
}

func (e *element) FindAll(loc locator.Locator) ([]page.Element, error) {
	return findAll(e.doc, e.sel, loc)
}

func (e *element) Input(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value := e.sel.AttrOr("value", "") + text
	e.sel.SetAttr("value", value)

	e.doc.mu.Lock()
	e.doc.typed = append(e.doc.typed, Keystroke{ID: e.sel.AttrOr("id", ""), Text: text})
	e.doc.mu.Unlock()
	return nil
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.doc.mu.Lock()
	name := e.sel.AttrOr("id", goquery.NodeName(e.sel))
	e.doc.clicks = append(e.doc.clicks, name)
	handlers := append([]clickHandler(nil), e.doc.handlers...)
	e.doc.mu.Unlock()

	// Handlers may call Load, so they run without the lock held.
	for _, h := range handlers {
		if e.sel.Is(h.css) {
			if err := h.fn(e.doc); err != nil {
				return err
			}
		}
	}
	return nil
}

func find(d *Document, root *goquery.Selection, loc locator.Locator) (page.Element, error) {
	css, err := loc.CSS()
	if err != nil {
		return nil, err
	}
	match := root.Find(css).First()
	if match.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", page.ErrNotFound, loc)
	}
	return &element{doc: d, sel: match}, nil
}

func findAll(d *Document, root *goquery.Selection, loc locator.Locator) ([]page.Element, error) {
	css, err := loc.CSS()
	if err != nil {
		return nil, err
	}
	var out []page.Element
	root.Find(css).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{doc: d, sel: s})
	})
	return out, nil
}

// isVisible approximates rendering: the node and its ancestors must not be
// hidden by attribute or inline style.
func isVisible(s *goquery.Selection) bool {
	hidden := func(n *goquery.Selection) bool {
		if _, ok := n.Attr("hidden"); ok {
			return true
		}
		style := strings.ReplaceAll(strings.ToLower(n.AttrOr("style", "")), " ", "")
		return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
	}
	if hidden(s) {
		return false
	}
	visible := true
	s.Parents().EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if hidden(p) {
			visible = false
		}
		return visible
	})
	return visible
}

// writeText collects text content, rendering <br> as a line break the way
// innerText does.
func writeText(b *strings.Builder, s *goquery.Selection) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			b.WriteString(c.Text())
		case "br":
			b.WriteString("\n")
		case "script", "style":
		default:
			writeText(b, c)
		}
	})
}
