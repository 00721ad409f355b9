package pages

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	maxCalendarMonths  = 12
	maxScrollAttempts  = 8
	scrollStep         = 600
	maxPassengers      = 9
	newTabWait         = 800 * time.Millisecond
	firstResultWait    = 5 * time.Second
	scrolledResultWait = 2 * time.Second
)

var (
	fromInput          = CSS("origin station", `input[name='textBoxPartida']`)
	toInput            = CSS("destination station", `input[name='textBoxChegada']`)
	dateInput          = CSS("travel date", `input[name='departDate'], input[placeholder*='Date']`)
	calendarPanel      = CSS("calendar", `.picker--opened .picker__holder, .picker--opened .picker__frame`)
	calendarMonth      = CSS("calendar month", `.picker--opened .picker__month`)
	calendarYear       = CSS("calendar year", `.picker--opened .picker__year`)
	calendarNext       = CSS("calendar next month", `.picker--opened .picker__nav--next`)
	passengersDropdown = CSS("passengers dropdown", `button[data-id='nr_passageiros']`)
	classDropdown      = CSS("class dropdown", `button[data-id='classe']`)
	submitButton       = CSS("search button", `input[type='submit'][value*='Submit']`)
	resultRows         = CSS("result rows", `[data-testid='solution-row'], .solution-row, .journey-row, table.timetable`)
)

// BuyPage is the ticket search form.
type BuyPage struct {
	*BasePage
}

// NewBuyPage creates the ticket search form page object.
func NewBuyPage(base *BasePage) *BuyPage {
	return &BuyPage{BasePage: base}
}

// SetFrom types the departure station and picks it from the suggestions.
func (p *BuyPage) SetFrom(station string) (string, error) {
	return p.setStation(fromInput, station)
}

// SetTo types the arrival station and picks it from the suggestions.
func (p *BuyPage) SetTo(station string) (string, error) {
	return p.setStation(toInput, station)
}

func (p *BuyPage) setStation(input Locator, station string) (string, error) {
	if _, err := p.Type(input, station, true); err != nil {
		return "", fmt.Errorf("buy: %s: %w", input.Name, err)
	}
	if err := p.Click(stationOption(station)); err != nil {
		return "", fmt.Errorf("buy: %s: %w", input.Name, err)
	}
	value, err := p.Value(input)
	if err != nil {
		return "", fmt.Errorf("buy: %s: %w", input.Name, err)
	}
	p.logger.Info("[buy] %s: %s", input.Name, value)
	return value, nil
}

func stationOption(station string) Locator {
	return XPath("station suggestion "+station, fmt.Sprintf("//li//a[%s]", containsAllWords(station)))
}

// OpenCalendar opens the date picker.
func (p *BuyPage) OpenCalendar() error {
	if err := p.ScrollIntoView(dateInput); err != nil {
		return fmt.Errorf("buy: open calendar: %w", err)
	}
	if _, err := p.SafeClick(dateInput); err != nil {
		return fmt.Errorf("buy: open calendar: %w", err)
	}
	if _, err := p.WaitVisible(calendarPanel); err != nil {
		return fmt.Errorf("buy: open calendar: %w", err)
	}
	return nil
}

// PickDate pages the calendar forward to month/year and clicks day.
// It returns the date field's value.
func (p *BuyPage) PickDate(day int, month time.Month, year int) (string, error) {
	if err := p.OpenCalendar(); err != nil {
		return "", err
	}

	wantMonth, wantYear := month.String(), strconv.Itoa(year)
	found := false
	for i := 0; i < maxCalendarMonths; i++ {
		shownMonth, err := p.Text(calendarMonth)
		if err != nil {
			return "", fmt.Errorf("buy: read calendar month: %w", err)
		}
		shownYear, err := p.Text(calendarYear)
		if err != nil {
			return "", fmt.Errorf("buy: read calendar year: %w", err)
		}
		if shownMonth == wantMonth && shownYear == wantYear {
			found = true
			break
		}
		if err := p.Click(calendarNext); err != nil {
			return "", fmt.Errorf("buy: next month: %w", err)
		}
	}
	if !found {
		return "", fmt.Errorf("buy: month %s %s not reachable within %d months", wantMonth, wantYear, maxCalendarMonths)
	}

	if err := p.Click(calendarDay(day)); err != nil {
		return "", fmt.Errorf("buy: pick day %d: %w", day, err)
	}

	value, err := p.Value(dateInput)
	if err != nil {
		return "", fmt.Errorf("buy: read date: %w", err)
	}
	p.logger.Info("[buy] Date selected: %s", value)
	return value, nil
}

func calendarDay(day int) Locator {
	return XPath(fmt.Sprintf("calendar day %d", day), fmt.Sprintf(
		"//div[contains(@class,'picker--opened')]//div[contains(@class,'picker__day') "+
			"and not(contains(@class,'disabled')) and not(contains(@class,'outfocus')) "+
			"and normalize-space()='%d']", day))
}

// SetPassengers picks the passenger total (adults + children) from the
// dropdown and returns the dropdown's label.
func (p *BuyPage) SetPassengers(adults, children int) (string, error) {
	total := adults + children
	if adults < 0 || children < 0 || total < 1 || total > maxPassengers {
		return "", fmt.Errorf("buy: passengers: %d adults + %d children outside 1..%d", adults, children, maxPassengers)
	}

	if err := p.Click(passengersDropdown); err != nil {
		return "", fmt.Errorf("buy: passengers: %w", err)
	}
	if err := p.Click(dropdownOption("passenger option", passengerLabel(total))); err != nil {
		return "", fmt.Errorf("buy: passengers: %w", err)
	}

	label, err := p.Text(passengersDropdown)
	if err != nil {
		return "", fmt.Errorf("buy: passengers: %w", err)
	}
	p.logger.Info("[buy] Passengers: %s (%d adults, %d children)", label, adults, children)
	return label, nil
}

func passengerLabel(n int) string {
	if n == 1 {
		return "1 Passenger"
	}
	return fmt.Sprintf("%d Passengers", n)
}

func dropdownOption(name, text string) Locator {
	return XPath(name+" "+text, fmt.Sprintf(
		"//*[contains(@class,'dropdown-menu')]//span[contains(normalize-space(.), %s)]", xpathLiteral(text)))
}

// SetClass picks the fare class. When the form has no class control the
// site applies its default and an empty label is returned; a control that
// exists but never becomes clickable is an error.
func (p *BuyPage) SetClass(class string) (string, error) {
	if _, err := p.waitClickableWithin(classDropdown, p.spinnerTimeout); err != nil {
		if !IsTimeout(err) {
			return "", fmt.Errorf("buy: class: %w", err)
		}
		present, existsErr := p.Exists(classDropdown)
		if existsErr != nil {
			return "", fmt.Errorf("buy: class: %w", existsErr)
		}
		if present {
			return "", fmt.Errorf("buy: class: control present but not clickable: %w", err)
		}
		p.logger.Warn("[buy] No class selector on the form, keeping the site default")
		return "", nil
	}

	if err := p.Click(classDropdown); err != nil {
		return "", fmt.Errorf("buy: class: %w", err)
	}
	if err := p.Click(dropdownOption("class option", class)); err != nil {
		return "", fmt.Errorf("buy: class: %w", err)
	}

	label, err := p.Text(classDropdown)
	if err != nil {
		return "", fmt.Errorf("buy: class: %w", err)
	}
	p.logger.Info("[buy] Class: %s", label)
	return label, nil
}

// Search submits the form, follows a new tab if one opens, and waits for
// the results to render. It returns the results page URL.
func (p *BuyPage) Search() (string, error) {
	_, err := p.tab.FollowNewTab(func() error {
		if _, err := p.SafeClick(submitButton); err != nil {
			return fmt.Errorf("buy: submit: %w", err)
		}
		return nil
	}, newTabWait)
	if err != nil {
		return "", err
	}

	if err := p.WaitReady(); err != nil {
		return "", fmt.Errorf("buy: results load: %w", err)
	}
	p.WaitSpinnerGone()

	if err := p.waitResults(); err != nil {
		return "", err
	}

	url, err := p.CurrentURL()
	if err != nil {
		return "", fmt.Errorf("buy: %w", err)
	}
	p.logger.Info("[buy] Search submitted, results at %s", url)
	return url, nil
}

// waitResults waits for result rows, scrolling to wake virtualised lists.
func (p *BuyPage) waitResults() error {
	if err := p.waitPresentWithin(resultRows, firstResultWait); err == nil {
		p.centerFirstResult()
		return nil
	}

	p.logger.Info("[buy] Results not rendered yet, scrolling to reveal them")
	var lastErr error
	for i := 0; i < maxScrollAttempts; i++ {
		if err := p.ScrollBy(scrollStep); err != nil {
			return fmt.Errorf("buy: scroll results: %w", err)
		}
		lastErr = p.waitPresentWithin(resultRows, scrolledResultWait)
		if lastErr == nil {
			p.centerFirstResult()
			return nil
		}
		if !IsTimeout(lastErr) {
			break
		}
	}
	return fmt.Errorf("buy: results: %w", lastErr)
}

func (p *BuyPage) waitPresentWithin(loc Locator, timeout time.Duration) error {
	_, err := p.waitNode(loc, timeout, chromedp.WaitReady)
	return err
}

func (p *BuyPage) centerFirstResult() {
	if err := p.ScrollIntoView(resultRows); err != nil && !errors.Is(err, ErrTimeout) {
		p.logger.Debug("[buy] Could not scroll first result into view: %v", err)
	}
}
