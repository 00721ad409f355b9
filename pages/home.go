package pages

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
)

var (
	cookieAcceptButton = XPath("cookie banner button", `//button[normalize-space()='Accept all cookies']`)
	buyTicketsLink     = XPath("buy tickets link", `//a[contains(@class,'btn-nav') and contains(@href,'/buy-tickets')]`)
)

// HomePage is the CP passenger landing page.
type HomePage struct {
	*BasePage
	url string
}

// NewHomePage creates the landing page object for url.
func NewHomePage(base *BasePage, url string) *HomePage {
	return &HomePage{BasePage: base, url: url}
}

// Open navigates to the landing page.
func (p *HomePage) Open() error {
	if err := p.run(navigationTimeout, chromedp.Navigate(p.url)); err != nil {
		return waitFailure("home page", p.url, navigationTimeout, err)
	}
	if err := p.WaitReady(); err != nil {
		return err
	}
	p.logger.Info("[home] Home page opened: %s", p.url)
	return nil
}

// AcceptCookies dismisses the cookie banner if it shows up within the
// spinner timeout. A missing banner is fine.
func (p *HomePage) AcceptCookies() bool {
	node, err := p.waitClickableWithin(cookieAcceptButton, p.spinnerTimeout)
	if err != nil {
		p.logger.Info("[home] Cookie banner not shown, skipping")
		return false
	}
	if err := p.run(p.timeout, chromedp.MouseClickNode(node)); err != nil {
		p.logger.Warn("[home] Cookie banner click failed: %v", err)
		return false
	}
	p.logger.Info("[home] Cookies accepted")
	return true
}

// GoToBuyTickets follows the Buy Tickets link and returns the new URL.
func (p *HomePage) GoToBuyTickets() (string, error) {
	if _, err := p.SafeClick(buyTicketsLink); err != nil {
		return "", fmt.Errorf("home: open buy tickets: %w", err)
	}

	var current string
	err := p.poll(p.timeout, func(step *BasePage) (bool, error) {
		u, err := step.CurrentURL()
		if err != nil {
			return false, err
		}
		current = u
		return strings.Contains(u, "/buy-tickets"), nil
	})
	if err != nil {
		return "", waitFailure("buy tickets page", "/buy-tickets", p.timeout, err)
	}
	if err := p.WaitReady(); err != nil {
		return "", err
	}

	p.logger.Info("[home] Buy tickets page: %s", current)
	return current, nil
}
