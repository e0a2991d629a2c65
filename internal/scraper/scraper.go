package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/teamscrape/internal/locator"
	"github.com/v0xg/teamscrape/internal/page"
	"github.com/v0xg/teamscrape/internal/transcript"
)

// ErrContainerNotFound means the message list never appeared
var ErrContainerNotFound = errors.New("chat message container not found")

// errFieldUnresolvable marks a message group lacking a required child
var errFieldUnresolvable = errors.New("message field unresolvable")

// Options configures a scrape
type Options struct {
	ContainerTimeout time.Duration
	OutputDir        string
	Now              func() time.Time
	Logger           *zap.Logger
}

// Result describes one scrape invocation
type Result struct {
	Count   int    // valid messages written
	Path    string // artifact path, empty when nothing was written
	Title   string // page title at capture time
	Groups  int    // message groups found
	Skipped int    // groups without author, timestamp and body
}

// Scraper extracts the open conversation into a transcript file
type Scraper struct {
	page     page.Page
	locators locator.Set
	opts     Options
	log      *zap.Logger
}

// New creates a Scraper. Every scrape role must resolve in locators.
func New(p page.Page, locators locator.Set, opts Options) (*Scraper, error) {
	if err := locators.Validate(locator.ScrapeRoles...); err != nil {
		return nil, err
	}
	if opts.ContainerTimeout == 0 {
		opts.ContainerTimeout = 10 * time.Second
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Scraper{page: p, locators: locators, opts: opts, log: log.Named("scraper")}, nil
}

// Scrape reads every rendered message of the open chat in document order and
// writes them to a new artifact. Groups missing a field are skipped; only a
// missing container fails the scrape.
func (s *Scraper) Scrape(ctx context.Context) (*Result, error) {
	container, err := s.page.WaitPresent(ctx, s.locators[locator.MessagesContainer], s.opts.ContainerTimeout)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrContainerNotFound, err)
	}

	groups, err := container.FindAll(s.locators[locator.MessageGroup])
	if err != nil {
		return nil, fmt.Errorf("list message groups: %w", err)
	}

	title, err := s.page.Title(ctx)
	if err != nil {
		s.log.Warn("Could not read page title", zap.Error(err))
	}

	result := &Result{Title: title, Groups: len(groups)}
	if len(groups) == 0 {
		s.log.Info("No message groups in the current chat")
		return result, nil
	}

	messages := make([]transcript.Message, 0, len(groups))
	for i, group := range groups {
		msg, err := s.extract(group)
		if err != nil {
			// System notices ("X joined the chat") carry no author or body.
			result.Skipped++
			s.log.Debug("Skipping message group", zap.Int("index", i), zap.Error(err))
			continue
		}
		messages = append(messages, msg)
	}

	capturedAt := s.opts.Now()
	path := filepath.Join(s.opts.OutputDir, transcript.Filename(capturedAt))
	if err := writeArtifact(path, transcript.Header{Title: title, CapturedAt: capturedAt}, messages); err != nil {
		return nil, err
	}

	result.Count = len(messages)
	result.Path = path
	s.log.Info("Transcript written",
		zap.String("path", path),
		zap.Int("messages", result.Count),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// extract resolves author, timestamp and body relative to group
func (s *Scraper) extract(group page.Element) (transcript.Message, error) {
	author, err := s.childText(group, locator.MessageAuthor)
	if err != nil {
		return transcript.Message{}, err
	}
	timestamp, err := s.timestamp(group)
	if err != nil {
		return transcript.Message{}, err
	}
	body, err := s.childText(group, locator.MessageBody)
	if err != nil {
		return transcript.Message{}, err
	}
	return transcript.Message{Author: author, Timestamp: timestamp, Body: body}, nil
}

func (s *Scraper) child(group page.Element, role locator.Role) (page.Element, error) {
	el, err := group.Find(s.locators[role])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errFieldUnresolvable, role, err)
	}
	return el, nil
}

func (s *Scraper) childText(group page.Element, role locator.Role) (string, error) {
	el, err := s.child(group, role)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", errFieldUnresolvable, role, err)
	}
	return strings.TrimSpace(text), nil
}

// timestamp prefers the title attribute, which carries the full date, over
// the abbreviated display text.
func (s *Scraper) timestamp(group page.Element) (string, error) {
	el, err := s.child(group, locator.MessageTimestamp)
	if err != nil {
		return "", err
	}
	if title, ok, err := el.Attribute("title"); err == nil && ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title), nil
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", errFieldUnresolvable, locator.MessageTimestamp, err)
	}
	return strings.TrimSpace(text), nil
}

// writeArtifact creates path exclusively so an existing transcript is never
// overwritten.
func writeArtifact(path string, h transcript.Header, messages []transcript.Message) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close transcript: %w", cerr)
		}
	}()

	if err := transcript.Write(f, h, messages); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
