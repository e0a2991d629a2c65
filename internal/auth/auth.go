package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/v0xg/teamscrape/internal/config"
	"github.com/v0xg/teamscrape/internal/locator"
	"github.com/v0xg/teamscrape/internal/page"
)

// ErrStepTimeout means a required login element never appeared
var ErrStepTimeout = errors.New("login step timed out")

// StepError reports which step of the login failed and on which element
type StepError struct {
	State State
	Role  locator.Role
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("login %s: %s: %v", e.State, e.Role, e.Err)
}

func (e *StepError) Unwrap() []error {
	if errors.Is(e.Err, page.ErrTimeout) {
		return []error{ErrStepTimeout, e.Err}
	}
	return []error{e.Err}
}

// Options configures the login flow
type Options struct {
	StepTimeout       time.Duration // wait for each required element
	ImplicitWait      time.Duration // wait for the "next" control, and bound on each input or click
	StaySignedIn      StaySignedInPolicy
	StaySignedInProbe time.Duration // prompt wait under StaySignedInOptional
	Logger            *zap.Logger
}

// Result is the outcome of one login attempt.
//
// The chat pane wait runs in AwaitingStaySignedInPrompt, so a FailedAt of
// that state covers both the prompt and the main interface check. Use
// StepError.Role to tell them apart: no_button for the prompt, chat_pane for
// the main interface.
type Result struct {
	State    State   // Authenticated or Failed
	FailedAt State   // step that failed; meaningful only when State is Failed
	Prompt   Prompt  // whether "Stay signed in?" was seen
	Trace    []State // every state entered, in order
	Err      error
}

// OK reports whether the session reached the main interface
func (r *Result) OK() bool {
	return r != nil && r.State == Authenticated
}

// Authenticator drives the login flow on a page already at the app URL
type Authenticator struct {
	page     page.Page
	creds    config.Credentials
	locators locator.Set
	opts     Options
	log      *zap.Logger
}

// New creates an Authenticator. Every login role must resolve in locators.
func New(p page.Page, creds config.Credentials, locators locator.Set, opts Options) (*Authenticator, error) {
	if err := locators.Validate(locator.LoginRoles...); err != nil {
		return nil, err
	}
	if opts.StepTimeout == 0 {
		opts.StepTimeout = 20 * time.Second
	}
	if opts.ImplicitWait == 0 {
		opts.ImplicitWait = 5 * time.Second
	}
	if opts.StaySignedInProbe == 0 {
		opts.StaySignedInProbe = 5 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{
		page:     p,
		creds:    creds,
		locators: locators,
		opts:     opts,
		log:      log.Named("auth"),
	}, nil
}

// Run walks the flow once: email, password, the "Stay signed in?" prompt,
// then the main chat pane. It never retries and never goes back a step;
// input already sent to the page is not rolled back on failure. Running it
// on a session that is already signed in fails at the email step.
func (a *Authenticator) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	enter := func(s State) {
		res.State = s
		res.Trace = append(res.Trace, s)
		a.log.Debug("Login state", zap.Stringer("state", s))
	}
	fail := func(err error) (*Result, error) {
		res.FailedAt = res.State
		res.Err = err
		enter(Failed)
		a.log.Warn("Login failed", zap.Stringer("step", res.FailedAt), zap.Error(err))
		return res, err
	}

	enter(AwaitingEmail)
	if err := a.submit(ctx, AwaitingEmail, locator.EmailField, a.creds.Email); err != nil {
		return fail(err)
	}
	a.log.Info("Email submitted")

	enter(AwaitingPassword)
	if err := a.submit(ctx, AwaitingPassword, locator.PasswordField, a.creds.Password); err != nil {
		return fail(err)
	}
	a.log.Info("Password submitted")

	enter(AwaitingStaySignedInPrompt)
	prompt, err := a.dismissStaySignedIn(ctx)
	res.Prompt = prompt
	if err != nil {
		return fail(err)
	}

	if _, err := a.waitVisible(ctx, AwaitingStaySignedInPrompt, locator.ChatPane, a.opts.StepTimeout); err != nil {
		return fail(err)
	}
	enter(Authenticated)
	a.log.Info("Login successful", zap.Stringer("stay_signed_in", prompt))
	return res, nil
}

// submit fills the field for role and presses the "next" control
func (a *Authenticator) submit(ctx context.Context, state State, role locator.Role, value string) error {
	field, err := a.waitVisible(ctx, state, role, a.opts.StepTimeout)
	if err != nil {
		return err
	}
	if err := a.interact(ctx, state, role, func(ctx context.Context) error {
		return field.Input(ctx, value)
	}); err != nil {
		return err
	}

	next, err := a.page.WaitPresent(ctx, a.locators[locator.NextButton], a.opts.ImplicitWait)
	if err != nil {
		return &StepError{State: state, Role: locator.NextButton, Err: err}
	}
	return a.interact(ctx, state, locator.NextButton, next.Click)
}

// dismissStaySignedIn answers "No" to the "Stay signed in?" prompt. Some
// identity-provider configurations never show it; under the optional policy
// its absence after a short probe is not an error.
func (a *Authenticator) dismissStaySignedIn(ctx context.Context) (Prompt, error) {
	timeout := a.opts.StepTimeout
	if a.opts.StaySignedIn == StaySignedInOptional {
		timeout = a.opts.StaySignedInProbe
	}

	button, err := a.waitVisible(ctx, AwaitingStaySignedInPrompt, locator.NoButton, timeout)
	if err != nil {
		if ctx.Err() != nil {
			return PromptUnknown, err
		}
		if a.opts.StaySignedIn == StaySignedInOptional && errors.Is(err, ErrStepTimeout) {
			a.log.Info("No 'Stay signed in?' prompt, continuing", zap.Duration("probe", timeout))
			return PromptAbsent, nil
		}
		return PromptAbsent, err
	}
	if err := a.interact(ctx, AwaitingStaySignedInPrompt, locator.NoButton, button.Click); err != nil {
		return PromptPresent, err
	}
	a.log.Info("Handled 'Stay signed in?' prompt")
	return PromptPresent, nil
}

func (a *Authenticator) waitVisible(ctx context.Context, state State, role locator.Role, timeout time.Duration) (page.Element, error) {
	el, err := a.page.WaitVisible(ctx, a.locators[role], timeout)
	if err != nil {
		return nil, &StepError{State: state, Role: role, Err: err}
	}
	return el, nil
}

// interact runs one input or click within ImplicitWait. An element that never
// becomes interactable fails the step with ErrStepTimeout.
func (a *Authenticator) interact(ctx context.Context, state State, role locator.Role, fn func(context.Context) error) error {
	actCtx, cancel := context.WithTimeout(ctx, a.opts.ImplicitWait)
	defer cancel()

	err := fn(actCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(actCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, page.ErrTimeout) {
		err = fmt.Errorf("%w: %v", page.ErrTimeout, err)
	}
	return &StepError{State: state, Role: role, Err: err}
}
