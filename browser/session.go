// Package browser owns the Chrome instance driven over the DevTools
// protocol and tracks which tab the scenario is currently working in.
package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"cp-tickets/models"
	"cp-tickets/utils"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options controls how Chrome is launched.
type Options struct {
	ChromeBin    string
	Headless     bool
	WindowWidth  int
	WindowHeight int
}

// Session is a single browser with one active tab. Page objects share a
// pointer to it, so switching tabs is visible to all of them.
type Session struct {
	logger *utils.Logger

	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc

	mu         sync.Mutex
	active     context.Context
	tabCancels []context.CancelFunc
	console    []models.ConsoleEntry
}

// Start launches Chrome and opens the first tab.
func Start(parent context.Context, opts Options, logger *utils.Logger) (*Session, error) {
	chromeBin := opts.ChromeBin
	if chromeBin == "" {
		chromeBin = FindChromeBinary()
	}
	logger.Info("[browser] Using browser binary: %s", orDefault(chromeBin, "<chromedp default>"))

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(userAgent),
	)
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("browser: launch: %w", err)
	}

	s := &Session{
		logger:        logger,
		cancelAlloc:   cancelAlloc,
		cancelBrowser: cancelBrowser,
		active:        browserCtx,
	}
	s.listen(browserCtx)
	return s, nil
}

// Context returns the chromedp context of the active tab.
func (s *Session) Context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// FollowNewTab runs trigger and, if it opens a new page target within wait,
// makes that tab the active one. It reports whether a switch happened.
func (s *Session) FollowNewTab(trigger func() error, wait time.Duration) (bool, error) {
	current := s.Context()
	ch := chromedp.WaitNewTarget(current, func(info *target.Info) bool {
		return info.Type == "page"
	})

	if err := trigger(); err != nil {
		return false, err
	}

	select {
	case id := <-ch:
		tabCtx, cancel := chromedp.NewContext(current, chromedp.WithTargetID(id))
		if err := chromedp.Run(tabCtx); err != nil {
			cancel()
			return false, fmt.Errorf("browser: attach new tab: %w", err)
		}
		s.listen(tabCtx)

		s.mu.Lock()
		s.active = tabCtx
		s.tabCancels = append(s.tabCancels, cancel)
		s.mu.Unlock()

		s.logger.Info("[browser] Switched to new tab %s", id)
		return true, nil
	case <-time.After(wait):
		return false, nil
	case <-current.Done():
		return false, current.Err()
	}
}

// Console returns a copy of the console messages seen so far.
func (s *Session) Console() []models.ConsoleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ConsoleEntry, len(s.console))
	copy(out, s.console)
	return out
}

// Close shuts down every tab and the browser process.
func (s *Session) Close() {
	s.mu.Lock()
	cancels := s.tabCancels
	s.tabCancels = nil
	s.mu.Unlock()

	for i := len(cancels) - 1; i >= 0; i-- {
		cancels[i]()
	}
	s.cancelBrowser()
	s.cancelAlloc()
	s.logger.Info("[browser] Driver closed")
}

func (s *Session) listen(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			args := make([]string, 0, len(ev.Args))
			for _, arg := range ev.Args {
				if len(arg.Value) > 0 {
					args = append(args, string(arg.Value))
				} else {
					args = append(args, arg.Description)
				}
			}
			s.record(string(ev.Type), strings.Join(args, " "))
		case *runtime.EventExceptionThrown:
			if ev.ExceptionDetails == nil {
				return
			}
			text := ev.ExceptionDetails.Text
			if ev.ExceptionDetails.Exception != nil && ev.ExceptionDetails.Exception.Description != "" {
				text = ev.ExceptionDetails.Exception.Description
			}
			s.record("exception", text)
		}
	})
}

func (s *Session) record(level, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.console = append(s.console, models.ConsoleEntry{Level: level, Text: text, At: time.Now()})
}

// FindChromeBinary locates Chrome/Chromium binary.
func FindChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
