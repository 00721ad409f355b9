// Package scenario drives the CP ticket purchase flow from the home page up
// to the login wall, one page object at a time.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cp-tickets/models"
	"cp-tickets/utils"
)

// ErrLoginWallNotReached means the flow continued past the results page but
// the login screen never showed up.
var ErrLoginWallNotReached = errors.New("login wall not reached")

// Home is the landing page.
type Home interface {
	Open() error
	AcceptCookies() bool
	GoToBuyTickets() (string, error)
}

// SearchForm is the buy-tickets form.
type SearchForm interface {
	SetFrom(station string) (string, error)
	SetTo(station string) (string, error)
	PickDate(day int, month time.Month, year int) (string, error)
	SetPassengers(adults, children int) (string, error)
	SetClass(class string) (string, error)
	Search() (string, error)
}

// Results is the timetable page.
type Results interface {
	SelectTrain(sel models.TrainSelection) (*models.TrainRow, error)
	AcceptTerms() (bool, error)
	Continue() error
}

// LoginWall is the authentication screen the scenario stops at.
type LoginWall interface {
	WaitUntilHere(timeout time.Duration) (bool, error)
	Capture() (*models.ArtifactSet, error)
}

// Diagnostics captures the page when a step fails.
type Diagnostics interface {
	SaveArtifacts(tag string) (*models.ArtifactSet, error)
	CurrentURL() (string, error)
}

// JourneyRecorder stores the chosen train for later reference.
type JourneyRecorder interface {
	WriteJourney(criteria models.SearchCriteria, row *models.TrainRow) (string, error)
}

// Pages groups the page objects the runner walks through.
type Pages struct {
	Home    Home
	Buy     SearchForm
	Results Results
	Auth    LoginWall
}

// Options configures a Runner. Diagnostics, Journey and Logger are optional.
type Options struct {
	Criteria  models.SearchCriteria
	Selection models.TrainSelection

	// StepPause is slept between form sections so the site can settle.
	StepPause time.Duration
	// LoginWait bounds the wait for the login wall after continuing.
	LoginWait time.Duration

	Diagnostics Diagnostics
	Journey     JourneyRecorder
	Logger      *utils.Logger

	RunID       string
	ArtifactDir string
	Now         func() time.Time
}

// Runner executes the scenario once.
type Runner struct {
	pages Pages
	opts  Options
	log   *utils.Logger

	report *models.RunReport
}

func NewRunner(pages Pages, opts Options) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LoginWait <= 0 {
		opts.LoginWait = 10 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = utils.NewLogger()
		log.SetDebug(false)
	}
	return &Runner{pages: pages, opts: opts, log: log}
}

// Run walks search → select-result → awaiting-login → done. The returned
// report is never nil; on failure it records the failed step and the error
// is returned as well.
func (r *Runner) Run(ctx context.Context) (*models.RunReport, error) {
	r.report = &models.RunReport{
		RunID:       r.opts.RunID,
		StartedAt:   r.opts.Now(),
		Criteria:    r.opts.Criteria,
		Selection:   r.opts.Selection,
		ArtifactDir: r.opts.ArtifactDir,
	}

	steps := []struct {
		state models.State
		run   func(context.Context) error
	}{
		{models.StateSearch, r.search},
		{models.StateSelectResult, r.selectResult},
		{models.StateAwaitingLogin, r.awaitLogin},
	}

	for _, step := range steps {
		r.enter(step.state)
		if err := ctx.Err(); err != nil {
			return r.fail(step.state, err)
		}
		if err := step.run(ctx); err != nil {
			return r.fail(step.state, err)
		}
	}

	r.enter(models.StateDone)
	r.finish()
	r.log.Info("[scenario] Login wall reached in %v, stopping here", r.report.Duration().Round(time.Millisecond))
	return r.report, nil
}

func (r *Runner) search(ctx context.Context) error {
	c := r.opts.Criteria
	home, buy := r.pages.Home, r.pages.Buy

	if err := home.Open(); err != nil {
		return err
	}
	home.AcceptCookies()
	if _, err := home.GoToBuyTickets(); err != nil {
		return err
	}
	if err := r.pause(ctx); err != nil {
		return err
	}

	if _, err := buy.SetFrom(c.Origin); err != nil {
		return err
	}
	if _, err := buy.SetTo(c.Destination); err != nil {
		return err
	}
	if err := r.pause(ctx); err != nil {
		return err
	}

	if _, err := buy.PickDate(c.Day, c.Month, c.Year); err != nil {
		return err
	}
	if _, err := buy.SetPassengers(c.Adults, c.Children); err != nil {
		return err
	}
	if _, err := buy.SetClass(c.FareClass); err != nil {
		return err
	}
	if err := r.pause(ctx); err != nil {
		return err
	}

	url, err := buy.Search()
	if err != nil {
		return err
	}
	r.log.Info("[scenario] Searched %s, results at %s", c, url)
	return nil
}

func (r *Runner) selectResult(ctx context.Context) error {
	results := r.pages.Results

	row, err := results.SelectTrain(r.opts.Selection)
	if err != nil {
		return err
	}
	r.report.MatchedRow = row

	if r.opts.Journey != nil {
		path, err := r.opts.Journey.WriteJourney(r.opts.Criteria, row)
		if err != nil {
			r.log.Warn("[scenario] Journey not recorded: %v", err)
		} else {
			r.log.Debug("[scenario] Journey written to %s", path)
		}
	}

	accepted, err := results.AcceptTerms()
	if err != nil {
		return err
	}
	if !accepted {
		r.log.Warn("[scenario] Terms checkbox did not stay checked, continuing anyway")
	}
	if err := r.pause(ctx); err != nil {
		return err
	}

	return results.Continue()
}

func (r *Runner) awaitLogin(_ context.Context) error {
	here, err := r.pages.Auth.WaitUntilHere(r.opts.LoginWait)
	if err != nil {
		return err
	}
	if !here {
		return fmt.Errorf("%w within %v", ErrLoginWallNotReached, r.opts.LoginWait)
	}

	set, err := r.pages.Auth.Capture()
	if err != nil {
		r.log.Warn("[scenario] Login wall capture incomplete: %v", err)
	}
	if set != nil {
		r.report.Artifacts = append(r.report.Artifacts, set)
	}
	return nil
}

func (r *Runner) enter(state models.State) {
	r.report.State = state
	r.report.Transitions = append(r.report.Transitions, models.Transition{State: state, At: r.opts.Now()})
	r.log.Info("[scenario] → %s", state)
}

func (r *Runner) fail(state models.State, err error) (*models.RunReport, error) {
	r.report.FailedStep = state
	r.report.Error = err.Error()
	r.enter(models.StateFailed)
	r.log.Error("[scenario] Step %s failed: %v", state, err)

	if d := r.opts.Diagnostics; d != nil && !errors.Is(err, context.Canceled) {
		set, saveErr := d.SaveArtifacts("failed_" + string(state))
		if saveErr != nil {
			r.log.Warn("[scenario] Diagnostic capture incomplete: %v", saveErr)
		}
		if set != nil {
			r.report.Artifacts = append(r.report.Artifacts, set)
		}
	}

	r.finish()
	return r.report, fmt.Errorf("scenario: %s: %w", state, err)
}

func (r *Runner) finish() {
	if d := r.opts.Diagnostics; d != nil {
		if u, err := d.CurrentURL(); err == nil {
			r.report.FinalURL = u
		}
	}
	r.report.FinishedAt = r.opts.Now()
}

func (r *Runner) pause(ctx context.Context) error {
	if r.opts.StepPause <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.opts.StepPause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
