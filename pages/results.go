package pages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"cp-tickets/models"
	"cp-tickets/utils"
)

const termsErrorWait = 5 * time.Second

var (
	termsCheckbox = CSS("terms checkbox", `#travelTerms`)
	termsLabel    = CSS("terms label", `label[for='travelTerms']`)
	termsError    = CSS("terms error", `#travelTerms-error`)
	nextButton    = CSS("continue button", `#buttonNext`)
)

// transitionWaits bounds each continue strategy's wait for the next step.
var transitionWaits = map[string]time.Duration{
	"native":        10 * time.Second,
	"js-click":      8 * time.Second,
	"enter":         6 * time.Second,
	"form-submit":   10 * time.Second,
	"force-enabled": 8 * time.Second,
}

// ResultsPage is the timetable shown after a search.
type ResultsPage struct {
	*BasePage

	radio *Locator
}

// NewResultsPage creates the timetable page object.
func NewResultsPage(base *BasePage) *ResultsPage {
	return &ResultsPage{BasePage: base}
}

// SelectTrain finds the row for sel and ticks its GO radio. It fails with a
// timeout wrapping ErrNoMatchingRow if no row matches within the wait.
func (p *ResultsPage) SelectTrain(sel models.TrainSelection) (*models.TrainRow, error) {
	var row *models.TrainRow
	err := p.poll(p.timeout, func(step *BasePage) (bool, error) {
		html, err := step.HTML()
		if err != nil {
			return false, err
		}
		r, err := FindTrainRow(html, sel)
		if err != nil {
			return false, err
		}
		row = r
		return true, nil
	})
	if err != nil {
		return nil, rowSearchFailure(sel, p.timeout, err)
	}

	radio := rowRadio(row)
	p.radio = &radio
	p.logger.Info("[results] Found %s in row %d", sel, row.Index)

	if err := p.ScrollIntoView(radio); err != nil {
		p.logger.Debug("[results] Could not scroll row into view: %v", err)
	}

	_, err = utils.Fallback("select "+sel.String(), p.logger,
		utils.Strategy{Name: "native", Run: func() error { return p.Click(radio) }},
		utils.Strategy{Name: "js-click", Run: func() error {
			return p.onElement(radio, `if (!el) throw new Error('radio missing'); el.click();`, nil)
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("results: select %s: %w", sel, err)
	}

	err = p.poll(p.timeout, func(step *BasePage) (bool, error) { return isChecked(step, radio) })
	if err != nil {
		return nil, fmt.Errorf("results: confirm %s: %w", sel, waitFailure("selected radio", radio.Query, p.timeout, err))
	}

	p.logger.Info("[results] Selected %s", sel)
	return row, nil
}

// rowSearchFailure maps a failed row poll to the error SelectTrain reports.
// Running out of time while rows still did not match is a timeout wrapping
// ErrNoMatchingRow.
func rowSearchFailure(sel models.TrainSelection, timeout time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && errors.Is(err, ErrNoMatchingRow) {
		return &WaitError{Target: "train row " + sel.String(), Timeout: timeout, Err: ErrNoMatchingRow}
	}
	return fmt.Errorf("results: find %s: %w", sel, waitFailure("train row", sel.String(), timeout, err))
}

func rowRadio(row *models.TrainRow) Locator {
	if row.RadioSelector != "" {
		return CSS("train radio", row.RadioSelector)
	}
	return XPath("train radio", fmt.Sprintf(
		"(//tr)[%d]//input[@type='radio' and @name='GO']", row.Index+1))
}

func isChecked(b *BasePage, loc Locator) (bool, error) {
	var checked bool
	err := b.onElement(loc,
		`return !!el && (el.checked || el.getAttribute('checked') === 'checked' || el.getAttribute('checked') === 'true');`,
		&checked)
	return checked, err
}

// AcceptTerms ticks the travel terms checkbox and reports whether it ended
// up checked.
func (p *ResultsPage) AcceptTerms() (bool, error) {
	if _, err := p.WaitFor(termsCheckbox); err != nil {
		return false, fmt.Errorf("results: accept terms: %w", err)
	}
	if err := p.ScrollIntoView(termsLabel); err != nil {
		p.logger.Debug("[results] Terms label not scrollable: %v", err)
	}

	if _, err := p.SafeClick(termsCheckbox); err != nil {
		if _, err := p.SafeClick(termsLabel); err != nil {
			p.logger.Debug("[results] Terms clicks failed: %v", err)
		}
	}

	checked, err := isChecked(p.BasePage, termsCheckbox)
	if err != nil {
		return false, fmt.Errorf("results: accept terms: %w", err)
	}
	if !checked {
		p.logger.Debug("[results] Terms still unchecked, setting via script")
		err := p.onElement(termsCheckbox, `if (!el) return;
			el.checked = true;
			el.setAttribute('checked', 'checked');
			el.dispatchEvent(new Event('input', { bubbles: true }));
			el.dispatchEvent(new Event('change', { bubbles: true }));`, nil)
		if err != nil {
			return false, fmt.Errorf("results: accept terms: %w", err)
		}
	}

	p.waitTermsErrorGone()

	checked, err = isChecked(p.BasePage, termsCheckbox)
	if err != nil {
		return false, fmt.Errorf("results: accept terms: %w", err)
	}
	p.logger.Info("[results] Terms accepted: %v", checked)
	return checked, nil
}

func (p *ResultsPage) waitTermsErrorGone() {
	err := p.poll(termsErrorWait, func(step *BasePage) (bool, error) {
		var visible bool
		err := step.onElement(termsError, `if (!el) return false;
			var s = window.getComputedStyle(el);
			return s.display !== 'none' && s.visibility !== 'hidden';`, &visible)
		return !visible, err
	})
	if err != nil {
		p.logger.Debug("[results] Terms validation error still shown: %v", err)
	}
}

// Continue presses the continue button and waits for the flow to move on.
// Each click strategy is tried in turn; if none moves the page, the form is
// forced valid and the chain runs once more.
func (p *ResultsPage) Continue() error {
	p.WaitSpinnerGone()
	p.ForceValid()

	before, err := p.CurrentURL()
	if err != nil {
		return fmt.Errorf("results: continue: %w", err)
	}
	if _, err := p.WaitFor(nextButton); err != nil {
		return fmt.Errorf("results: continue: %w", err)
	}
	if err := p.ScrollIntoView(nextButton); err != nil {
		p.logger.Debug("[results] Continue button not scrollable: %v", err)
	}

	p.FormState("before_continue")
	used, err := utils.Fallback("continue", p.logger, p.continueStrategies(before)...)
	if err != nil {
		p.ForceValid()
		p.FormState("after_force_valid")
		used, err = utils.Fallback("continue (forced valid)", p.logger, p.continueStrategies(before)...)
	}
	if err != nil {
		if _, saveErr := p.SaveArtifacts("auth_gate"); saveErr != nil {
			p.logger.Warn("[results] Could not save artifacts: %v", saveErr)
		}
		return fmt.Errorf("results: continue: %w: %w", ErrNoTransition, err)
	}

	p.logger.Info("[results] Continued via %s", used)
	return nil
}

func (p *ResultsPage) continueStrategies(before string) []utils.Strategy {
	then := func(name string, act func() error) utils.Strategy {
		return utils.Strategy{Name: name, Run: func() error {
			if err := act(); err != nil {
				return err
			}
			return p.waitTransition(before, transitionWaits[name])
		}}
	}

	return []utils.Strategy{
		then("native", func() error { return p.Click(nextButton) }),
		then("js-click", func() error {
			return p.onElement(nextButton, `if (!el) throw new Error('continue button missing'); el.click();`, nil)
		}),
		then("enter", func() error {
			return p.run(p.timeout, chromedp.SendKeys(nextButton.Query, kb.Enter, nextButton.by()))
		}),
		then("form-submit", func() error {
			return p.onElement(nextButton, `if (!el) throw new Error('continue button missing');
				var f = el.form || el.closest('form');
				if (!f) throw new Error('no form around continue button');
				HTMLFormElement.prototype.submit.call(f);`, nil)
		}),
		then("force-enabled", func() error {
			if err := p.onElement(nextButton, `if (!el) throw new Error('continue button missing');
				el.removeAttribute('disabled');
				el.removeAttribute('aria-disabled');`, nil); err != nil {
				return err
			}
			p.ForceValid()
			return p.onElement(nextButton, `el.click();`, nil)
		}),
	}
}

// waitTransition succeeds once the URL changes or the login wall shows up.
func (p *ResultsPage) waitTransition(before string, timeout time.Duration) error {
	err := p.poll(timeout, func(step *BasePage) (bool, error) {
		u, err := step.CurrentURL()
		if err != nil {
			return false, err
		}
		if u != before {
			return true, nil
		}
		html, err := step.HTML()
		if err != nil {
			return false, err
		}
		return LooksLikeLoginWall(u, html), nil
	})
	if err != nil {
		return waitFailure("next step", "", timeout, err)
	}
	return nil
}

// ForceValid re-ticks the selected train radio and every terms-like
// checkbox, then asks the form to report its validity.
func (p *ResultsPage) ForceValid() {
	if p.radio != nil {
		err := p.onElement(*p.radio, `if (!el || el.checked) return;
			el.checked = true;
			el.setAttribute('checked', 'checked');
			el.dispatchEvent(new Event('change', { bubbles: true }));`, nil)
		if err != nil {
			p.logger.Debug("[results] Force radio failed: %v", err)
		}
	}

	err := p.Evaluate(`(function() {
		var boxes = document.querySelectorAll("input[type='checkbox']");
		boxes.forEach(function(c) {
			var key = ((c.name || '') + ' ' + (c.id || '')).toLowerCase();
			if (key.indexOf('terms') < 0 || c.checked) return;
			c.checked = true;
			c.setAttribute('checked', 'checked');
			c.dispatchEvent(new Event('input', { bubbles: true }));
			c.dispatchEvent(new Event('change', { bubbles: true }));
		});
		if (document.activeElement && document.activeElement.blur) document.activeElement.blur();
		var btn = document.getElementById('buttonNext');
		if (btn && btn.form && btn.form.reportValidity) btn.form.reportValidity();
		return true;
	})()`, nil)
	if err != nil {
		p.logger.Debug("[results] Force valid failed: %v", err)
	}
}

// FormState is a diagnostic view of the continue form.
type FormState struct {
	URL          string   `json:"url"`
	HasForm      bool     `json:"hasForm"`
	NextExists   bool     `json:"nextExists"`
	NextDisabled bool     `json:"nextDisabled"`
	TermsChecked bool     `json:"termsChecked"`
	RadioChecked bool     `json:"radioChecked"`
	Invalid      []string `json:"invalid"`
}

// FormState logs the continue form's state at debug level.
func (p *ResultsPage) FormState(tag string) *FormState {
	var state FormState
	err := p.Evaluate(`(function() {
		var btn = document.getElementById('buttonNext');
		var form = (btn && (btn.form || btn.closest('form'))) || document.querySelector('form');
		var terms = document.getElementById('travelTerms');
		var out = {
			url: location.href,
			hasForm: !!form,
			nextExists: !!btn,
			nextDisabled: !!btn && (btn.disabled || btn.getAttribute('aria-disabled') === 'true'),
			termsChecked: !!terms && terms.checked,
			radioChecked: !!document.querySelector("input[name='GO']:checked"),
			invalid: []
		};
		if (form) {
			Array.prototype.forEach.call(form.querySelectorAll('input,select,textarea'), function(el) {
				if (el.willValidate && !el.checkValidity()) out.invalid.push(el.id || el.name || el.type);
			});
		}
		return out;
	})()`, &state)
	if err != nil {
		p.logger.Debug("[results] form state %s unavailable: %v", tag, err)
		return nil
	}
	p.logger.Debug("[results] form state %s: %+v", tag, state)
	return &state
}
