// Package page defines the DOM query surface the login and scraping logic run
// against. Backends are the live rod page (internal/browser) and an in-memory
// HTML document (internal/page/htmldoc).
package page

import (
	"context"
	"errors"
	"time"

	"github.com/v0xg/teamscrape/internal/locator"
)

var (
	// ErrNotFound is returned by immediate lookups that match nothing
	ErrNotFound = errors.New("element not found")
	// ErrTimeout is returned when a bounded wait elapses before its condition holds
	ErrTimeout = errors.New("timed out waiting for element")
)

// Page is a queryable view of the current document
type Page interface {
	// Title returns the document title
	Title(ctx context.Context) (string, error)

	// WaitVisible blocks until an element matching loc is rendered and visible,
	// or timeout elapses (ErrTimeout).
	WaitVisible(ctx context.Context, loc locator.Locator, timeout time.Duration) (Element, error)

	// WaitPresent blocks until an element matching loc is attached to the
	// document, visible or not, or timeout elapses (ErrTimeout).
	WaitPresent(ctx context.Context, loc locator.Locator, timeout time.Duration) (Element, error)

	// Find returns the first match without waiting (ErrNotFound)
	Find(ctx context.Context, loc locator.Locator) (Element, error)

	// FindAll returns every match in document order without waiting
	FindAll(ctx context.Context, loc locator.Locator) ([]Element, error)
}

// Element is a single located node
type Element interface {
	// Text returns the rendered text content
	Text() (string, error)

	// Attribute returns the named attribute and whether it is set
	Attribute(name string) (string, bool, error)

	// Find returns the first descendant matching loc (ErrNotFound)
	Find(loc locator.Locator) (Element, error)

	// FindAll returns matching descendants in document order
	FindAll(loc locator.Locator) ([]Element, error)

	// Input types text into the element. It waits for the element to become
	// writable until ctx ends.
	Input(ctx context.Context, text string) error

	// Click activates the element. It waits for the element to become
	// interactable until ctx ends.
	Click(ctx context.Context) error
}
