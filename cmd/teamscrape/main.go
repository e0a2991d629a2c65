package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/v0xg/teamscrape/internal/auth"
	"github.com/v0xg/teamscrape/internal/browser"
	"github.com/v0xg/teamscrape/internal/config"
	"github.com/v0xg/teamscrape/internal/diagnostics"
	"github.com/v0xg/teamscrape/internal/observability"
	"github.com/v0xg/teamscrape/internal/scraper"
	"github.com/v0xg/teamscrape/internal/trigger"
)

// Exit codes
const (
	exitOK = iota
	exitSetup
	exitAuth
	exitScrape
)

var connect bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "teamscrape",
		Short: "Save a Microsoft Teams chat transcript to a text file",
		Long: `teamscrape signs in to Microsoft Teams in a browser, waits for you to open
a chat, then writes the visible messages to teams_chat_<timestamp>.txt.

Credentials are read from TEAMS_EMAIL and TEAMS_PASSWORD (a .env file is
loaded when present). With --connect, an already running browser started
with --remote-debugging-port=9222 is used and the login is skipped.

Example:
  teamscrape --connect`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	rootCmd.Flags().BoolVar(&connect, "connect", false, "Attach to a browser already running at 127.0.0.1:9222 instead of launching one")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// phaseError tags an error with the exit code of the phase that produced it
type phaseError struct {
	code int
	err  error
}

func (e *phaseError) Error() string { return e.err.Error() }
func (e *phaseError) Unwrap() error { return e.err }

func fail(code int, err error) error {
	return &phaseError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var pe *phaseError
	if errors.As(err, &pe) {
		return pe.code
	}
	switch {
	case errors.Is(err, browser.ErrSessionAcquisition):
		return exitSetup
	case errors.Is(err, auth.ErrStepTimeout):
		return exitAuth
	case errors.Is(err, scraper.ErrContainerNotFound):
		return exitScrape
	}
	return exitSetup
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fail(exitSetup, err)
	}

	log := observability.NewLogger(cfg.Log, nil)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Fail before opening a browser that would only sit at the login page.
	if !connect {
		if err := cfg.RequireCredentials(); err != nil {
			return fail(exitSetup, err)
		}
	}

	b, err := acquire(ctx, cfg, log)
	if err != nil {
		return fail(exitSetup, err)
	}
	if product := b.Product(); product != "" {
		log.Debug("Browser session ready", zap.String("product", product), zap.Bool("attached", b.Attached()))
	}

	if !b.Attached() {
		if err := login(ctx, cfg, b, log); err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Println("Browser is ready. Navigate to the desired chat.")
	fmt.Print("Press ENTER here once the chat is open to save its messages...")
	if err := trigger.NewKeyPress(nil).Wait(ctx); err != nil {
		fmt.Println()
		return fail(exitScrape, fmt.Errorf("waiting for operator: %w", err))
	}
	fmt.Println()

	fmt.Print("→ Scraping chat messages... ")
	s, err := scraper.New(b.Page(), cfg.LocatorSet(), scraper.Options{
		ContainerTimeout: cfg.Scrape.ContainerTimeout,
		OutputDir:        cfg.Scrape.OutputDir,
		Logger:           log,
	})
	if err != nil {
		fmt.Println("failed")
		return fail(exitSetup, err)
	}
	res, err := s.Scrape(ctx)
	if err != nil {
		fmt.Println("failed")
		return fail(exitScrape, fmt.Errorf("scrape failed: %w", err))
	}
	if res.Path == "" {
		fmt.Println("done")
		fmt.Println("No messages found in the open chat; nothing was saved.")
	} else {
		fmt.Printf("done (%d messages)\n", res.Count)
		fmt.Printf("✓ Saved to %s\n", res.Path)
	}

	fmt.Println("Script finished. Browser will remain open.")
	return nil
}

func acquire(ctx context.Context, cfg *config.Config, log *zap.Logger) (*browser.Browser, error) {
	opts := browser.Options{
		Bin:             cfg.Browser.Bin,
		Headless:        cfg.Browser.Headless,
		UserDataDir:     cfg.Browser.UserDataDir,
		DebuggerAddress: cfg.DebuggerAddress,
		Logger:          log,
	}

	if connect {
		fmt.Printf("→ Attaching to browser at %s... ", cfg.DebuggerAddress)
		b, err := browser.Connect(ctx, opts)
		if err != nil {
			fmt.Println("failed")
			return nil, err
		}
		fmt.Println("done")
		return b, nil
	}

	fmt.Print("→ Launching browser... ")
	b, err := browser.Launch(ctx, opts)
	if err != nil {
		fmt.Println("failed")
		return nil, err
	}
	fmt.Println("done")
	return b, nil
}

func login(ctx context.Context, cfg *config.Config, b *browser.Browser, log *zap.Logger) error {
	fmt.Printf("→ Opening %s... ", cfg.URL)
	if err := b.Navigate(ctx, cfg.URL, cfg.Login.StepTimeout); err != nil {
		fmt.Println("failed")
		return fail(exitSetup, err)
	}
	fmt.Println("done")

	policy := auth.StaySignedInRequired
	if cfg.Login.StaySignedInOptional {
		policy = auth.StaySignedInOptional
	}
	a, err := auth.New(b.Page(), cfg.Credentials(), cfg.LocatorSet(), auth.Options{
		StepTimeout:       cfg.Login.StepTimeout,
		ImplicitWait:      cfg.Login.ImplicitWait,
		StaySignedIn:      policy,
		StaySignedInProbe: cfg.Login.StaySignedInProbe,
		Logger:            log,
	})
	if err != nil {
		return fail(exitSetup, err)
	}

	fmt.Print("→ Signing in... ")
	res, err := a.Run(ctx)
	if err != nil {
		fmt.Println("failed")
		if cfg.Login.FailureScreenshot && ctx.Err() == nil {
			saveFailureScreenshot(ctx, cfg, b, log)
		}
		log.Debug("Login trace", zap.Stringers("states", res.Trace))
		return fail(exitAuth, err)
	}
	fmt.Printf("done (stay-signed-in prompt %s)\n", res.Prompt)
	return nil
}

func saveFailureScreenshot(ctx context.Context, cfg *config.Config, b *browser.Browser, log *zap.Logger) {
	shotCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	path, err := diagnostics.SaveFailureScreenshot(shotCtx, b.Page(), cfg.Scrape.OutputDir, "login_failure", time.Now())
	if err != nil {
		log.Warn("Failed to save login failure screenshot", zap.Error(err))
		return
	}
	fmt.Printf("  screenshot saved to %s\n", path)
}
