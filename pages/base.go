// Package pages holds the page objects for the CP ticket purchase flow.
// Each page wraps the shared browser tab and exposes the steps a person
// would take on that page; locators stay private to the page that owns them.
package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"cp-tickets/artifacts"
	"cp-tickets/models"
	"cp-tickets/utils"
)

const (
	navigationTimeout = 60 * time.Second
	captureTimeout    = 10 * time.Second
	scrollBlock       = "center"

	overlaySelector = ".overlay, .spinner, [aria-busy='true'], " +
		"[data-testid='loading'], .loading, [class*='loading']"
)

// Tab is the browser tab the pages act on.
type Tab interface {
	Context() context.Context
	FollowNewTab(trigger func() error, wait time.Duration) (bool, error)
	Console() []models.ConsoleEntry
}

// Options tunes the waits shared by all pages.
type Options struct {
	Timeout        time.Duration
	SpinnerTimeout time.Duration
	PollInterval   time.Duration
}

// BasePage offers waits, clicks, typing and artifact capture on top of a Tab.
type BasePage struct {
	tab    Tab
	store  *artifacts.Store
	logger *utils.Logger

	timeout        time.Duration
	spinnerTimeout time.Duration
	pollInterval   time.Duration
}

// NewBasePage creates the helper shared by every page object. store may be
// nil, in which case SaveArtifacts reports an error.
func NewBasePage(tab Tab, store *artifacts.Store, logger *utils.Logger, opts Options) *BasePage {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.SpinnerTimeout <= 0 {
		opts.SpinnerTimeout = 6 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	return &BasePage{
		tab:            tab,
		store:          store,
		logger:         logger,
		timeout:        opts.Timeout,
		spinnerTimeout: opts.SpinnerTimeout,
		pollInterval:   opts.PollInterval,
	}
}

// run executes actions on the active tab bounded by timeout.
func (b *BasePage) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(b.tab.Context(), timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

type waitCondition func(sel interface{}, opts ...chromedp.QueryOption) chromedp.QueryAction

func (b *BasePage) waitNode(loc Locator, timeout time.Duration, conds ...waitCondition) (*cdp.Node, error) {
	var nodes []*cdp.Node
	actions := make([]chromedp.Action, 0, len(conds)+1)
	for _, cond := range conds {
		actions = append(actions, cond(loc.Query, loc.by()))
	}
	actions = append(actions, chromedp.Nodes(loc.Query, &nodes, loc.by()))

	if err := b.run(timeout, actions...); err != nil {
		return nil, waitFailure(loc.Name, loc.Query, timeout, err)
	}
	if len(nodes) == 0 {
		return nil, &WaitError{Target: loc.Name, Query: loc.Query, Timeout: timeout}
	}
	return nodes[0], nil
}

// WaitFor blocks until the element is present in the DOM.
func (b *BasePage) WaitFor(loc Locator) (*cdp.Node, error) {
	return b.waitNode(loc, b.timeout, chromedp.WaitReady)
}

// WaitVisible blocks until the element is present and visible.
func (b *BasePage) WaitVisible(loc Locator) (*cdp.Node, error) {
	return b.waitNode(loc, b.timeout, chromedp.WaitVisible)
}

// WaitClickable blocks until the element is visible and enabled.
func (b *BasePage) WaitClickable(loc Locator) (*cdp.Node, error) {
	return b.waitClickableWithin(loc, b.timeout)
}

func (b *BasePage) waitClickableWithin(loc Locator, timeout time.Duration) (*cdp.Node, error) {
	return b.waitNode(loc, timeout, chromedp.WaitVisible, chromedp.WaitEnabled)
}

// Exists reports whether the element is in the DOM right now, without waiting.
func (b *BasePage) Exists(loc Locator) (bool, error) {
	var nodes []*cdp.Node
	err := b.run(b.timeout, chromedp.Nodes(loc.Query, &nodes, loc.by(), chromedp.AtLeast(0)))
	if err != nil {
		return false, fmt.Errorf("query %s: %w", loc.Name, err)
	}
	return len(nodes) > 0, nil
}

// Click waits for the element to be clickable and clicks it.
func (b *BasePage) Click(loc Locator) error {
	node, err := b.WaitClickable(loc)
	if err != nil {
		return err
	}
	if err := b.run(b.timeout, chromedp.MouseClickNode(node)); err != nil {
		return waitFailure(loc.Name, loc.Query, b.timeout, err)
	}
	return nil
}

// SafeClick clicks with fallbacks: native click, scroll into view and
// click, then a JavaScript click. It returns the strategy that worked.
func (b *BasePage) SafeClick(loc Locator) (string, error) {
	node, err := b.WaitFor(loc)
	if err != nil {
		return "", err
	}

	return utils.Fallback("click "+loc.Name, b.logger,
		utils.Strategy{Name: "native", Run: func() error {
			return b.Click(loc)
		}},
		utils.Strategy{Name: "scroll-and-click", Run: func() error {
			if err := b.scrollNodeIntoView(node); err != nil {
				return err
			}
			time.Sleep(100 * time.Millisecond)
			return b.run(b.timeout, chromedp.MouseClickNode(node))
		}},
		utils.Strategy{Name: "js-click", Run: func() error {
			return b.callOnNode(node, `function() { this.click(); }`, nil)
		}},
	)
}

// Type writes text into an input field and returns the field's value.
func (b *BasePage) Type(loc Locator, text string, clearFirst bool) (string, error) {
	if _, err := b.WaitVisible(loc); err != nil {
		return "", err
	}

	actions := make([]chromedp.Action, 0, 3)
	if clearFirst {
		actions = append(actions, chromedp.Clear(loc.Query, loc.by()))
	}
	var value string
	actions = append(actions,
		chromedp.SendKeys(loc.Query, text, loc.by()),
		chromedp.Value(loc.Query, &value, loc.by()),
	)
	if err := b.run(b.timeout, actions...); err != nil {
		return "", waitFailure(loc.Name, loc.Query, b.timeout, err)
	}
	return value, nil
}

// Value reads the current value of an input field.
func (b *BasePage) Value(loc Locator) (string, error) {
	var value string
	if err := b.run(b.timeout, chromedp.Value(loc.Query, &value, loc.by())); err != nil {
		return "", waitFailure(loc.Name, loc.Query, b.timeout, err)
	}
	return value, nil
}

// Text reads the visible text of an element.
func (b *BasePage) Text(loc Locator) (string, error) {
	var text string
	if err := b.run(b.timeout, chromedp.Text(loc.Query, &text, loc.by())); err != nil {
		return "", waitFailure(loc.Name, loc.Query, b.timeout, err)
	}
	return strings.TrimSpace(text), nil
}

// ScrollBy scrolls the window vertically by px pixels.
func (b *BasePage) ScrollBy(px int) error {
	return b.run(b.timeout, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", px), nil))
}

// ScrollIntoView centres the element in the viewport.
func (b *BasePage) ScrollIntoView(loc Locator) error {
	node, err := b.WaitFor(loc)
	if err != nil {
		return err
	}
	return b.scrollNodeIntoView(node)
}

func (b *BasePage) scrollNodeIntoView(node *cdp.Node) error {
	return b.callOnNode(node, `function(block) { this.scrollIntoView({block: block}); }`, nil, scrollBlock)
}

// callOnNode runs fn with `this` bound to node.
func (b *BasePage) callOnNode(node *cdp.Node, fn string, res interface{}, args ...interface{}) error {
	return b.run(b.timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(node.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node: %w", err)
		}
		onObject := func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		}
		return chromedp.CallFunctionOn(fn, res, onObject, args...).Do(ctx)
	}))
}

// Evaluate runs a JavaScript expression on the active tab.
func (b *BasePage) Evaluate(expression string, res interface{}) error {
	return b.run(b.timeout, chromedp.Evaluate(expression, res))
}

// onElement runs body with `el` bound to the element matched by loc
// (possibly null) and stores the result in res.
func (b *BasePage) onElement(loc Locator, body string, res interface{}) error {
	js := fmt.Sprintf("(function(el) { %s })(%s)", body, loc.jsElement())
	return b.Evaluate(js, res)
}

// poll calls cond every poll interval until it returns true or timeout
// elapses. Each call gets a page whose own waits are capped by the time
// left, so a hung tab cannot stretch the poll past its bound by more than
// one poll interval. The last error from cond is kept for the timeout
// message.
func (b *BasePage) poll(timeout time.Duration, cond func(step *BasePage) (bool, error)) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		ok, err := cond(b.within(time.Until(deadline)))
		if err == nil && ok {
			return nil
		}
		lastErr = err

		ctx := b.tab.Context()
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			if lastErr != nil {
				return fmt.Errorf("%w: %w", context.DeadlineExceeded, lastErr)
			}
			return context.DeadlineExceeded
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.pollInterval):
		}
	}
}

// within returns a copy of b whose waits last at most remaining, and never
// less than one poll interval.
func (b *BasePage) within(remaining time.Duration) *BasePage {
	step := *b
	step.timeout = min(b.timeout, max(remaining, b.pollInterval))
	step.spinnerTimeout = min(b.spinnerTimeout, step.timeout)
	return &step
}

// WaitReady blocks until document.readyState is "complete".
func (b *BasePage) WaitReady() error {
	err := b.poll(b.timeout, func(step *BasePage) (bool, error) {
		var state string
		if err := step.run(step.timeout, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
			return false, err
		}
		return state == "complete", nil
	})
	return waitFailure("document ready", "document.readyState", b.timeout, err)
}

// WaitSpinnerGone waits for loaders and overlays to disappear. Overlays
// that never show up, or never go away, are not an error.
func (b *BasePage) WaitSpinnerGone() bool {
	js := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).filter(function(el) {
		var s = window.getComputedStyle(el);
		return el.offsetParent !== null && s.visibility !== 'hidden' && s.display !== 'none';
	}).length`, overlaySelector)

	err := b.poll(b.spinnerTimeout, func(step *BasePage) (bool, error) {
		var visible int
		if err := step.run(step.timeout, chromedp.Evaluate(js, &visible)); err != nil {
			return false, err
		}
		return visible == 0, nil
	})
	if err != nil {
		b.logger.Debug("[page] Overlays still visible after %v: %v", b.spinnerTimeout, err)
		return false
	}
	return true
}

// CurrentURL returns the active tab's location.
func (b *BasePage) CurrentURL() (string, error) {
	var u string
	if err := b.run(b.timeout, chromedp.Location(&u)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return u, nil
}

// HTML returns the serialised document.
func (b *BasePage) HTML() (string, error) {
	var html string
	if err := b.run(b.timeout, chromedp.Evaluate(`document.documentElement.outerHTML`, &html)); err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

// SaveArtifacts captures screenshot, HTML, console log and a summary under
// tag. Each part is captured independently so one failure does not lose
// the others.
func (b *BasePage) SaveArtifacts(tag string) (*models.ArtifactSet, error) {
	if b.store == nil {
		return nil, errors.New("artifacts: no store configured")
	}

	var snap artifacts.Snapshot
	if err := b.run(captureTimeout, chromedp.Location(&snap.URL)); err != nil {
		snap.CaptureErrors = append(snap.CaptureErrors, "url: "+err.Error())
	}
	if err := b.run(captureTimeout, chromedp.Evaluate(`document.documentElement.outerHTML`, &snap.HTML)); err != nil {
		snap.CaptureErrors = append(snap.CaptureErrors, "html: "+err.Error())
	}
	if err := b.run(captureTimeout, chromedp.FullScreenshot(&snap.PNG, 90)); err != nil {
		snap.CaptureErrors = append(snap.CaptureErrors, "screenshot: "+err.Error())
	}
	snap.Console = b.tab.Console()

	set, err := b.store.Save(tag, snap)
	if set != nil {
		b.logger.Info("[artifacts] %s -> %s | %s | %s | %s",
			tag, set.PNGPath, set.HTMLPath, set.ConsolePath, set.TextPath)
	}
	return set, err
}
