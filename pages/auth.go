package pages

import (
	"context"
	"errors"
	"time"

	"cp-tickets/models"
)

// AuthPage is CP's login screen, the point where the scenario stops.
type AuthPage struct {
	*BasePage
}

// NewAuthPage creates the login screen page object.
func NewAuthPage(base *BasePage) *AuthPage {
	return &AuthPage{BasePage: base}
}

// IsHere checks the current URL and document for the login wall.
func (p *AuthPage) IsHere() (bool, error) {
	return loginWallShown(p.BasePage)
}

func loginWallShown(b *BasePage) (bool, error) {
	u, err := b.CurrentURL()
	if err != nil {
		return false, err
	}
	html, err := b.HTML()
	if err != nil {
		return false, err
	}
	return LooksLikeLoginWall(u, html), nil
}

// WaitUntilHere polls for the login wall. Running out of time is reported
// as false, not as an error.
func (p *AuthPage) WaitUntilHere(timeout time.Duration) (bool, error) {
	err := p.poll(timeout, loginWallShown)
	switch {
	case err == nil:
		p.logger.Info("[auth] Login wall reached")
		return true, nil
	case errors.Is(err, context.DeadlineExceeded) && p.tab.Context().Err() == nil:
		p.logger.Warn("[auth] Login wall not detected within %v", timeout)
		return false, nil
	default:
		return false, err
	}
}

// Capture saves the login wall artifacts.
func (p *AuthPage) Capture() (*models.ArtifactSet, error) {
	return p.SaveArtifacts("auth_gate_login")
}
