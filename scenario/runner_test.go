package scenario

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cp-tickets/models"
)

// recorder is a fake of every page; it logs calls and fails the named one.
type recorder struct {
	calls    []string
	failOn   string
	failErr  error
	loginHit bool
	terms    bool
	cancel   context.CancelFunc
	cancelOn string
}

func (f *recorder) call(name string) error {
	f.calls = append(f.calls, name)
	if f.cancelOn == name && f.cancel != nil {
		f.cancel()
	}
	if f.failOn == name {
		if f.failErr != nil {
			return f.failErr
		}
		return fmt.Errorf("%s broke", name)
	}
	return nil
}

func (f *recorder) Open() error { return f.call("Open") }
func (f *recorder) AcceptCookies() bool { _ = f.call("AcceptCookies"); return true }
func (f *recorder) GoToBuyTickets() (string, error) {
	return "https://cp.test/buy-tickets", f.call("GoToBuyTickets")
}

func (f *recorder) SetFrom(s string) (string, error) { return s, f.call("SetFrom") }
func (f *recorder) SetTo(s string) (string, error) { return s, f.call("SetTo") }
func (f *recorder) PickDate(day int, month time.Month, year int) (string, error) {
	return fmt.Sprintf("%d %s %d", day, month, year), f.call("PickDate")
}
func (f *recorder) SetPassengers(a, c int) (string, error) {
	return fmt.Sprintf("%d Passengers", a+c), f.call("SetPassengers")
}
func (f *recorder) SetClass(c string) (string, error) { return c, f.call("SetClass") }
func (f *recorder) Search() (string, error) { return "https://cp.test/results", f.call("Search") }

func (f *recorder) SelectTrain(sel models.TrainSelection) (*models.TrainRow, error) {
	if err := f.call("SelectTrain"); err != nil {
		return nil, err
	}
	return &models.TrainRow{Index: 2, Service: sel.Service, Departure: sel.Departure, Arrival: sel.Arrival}, nil
}
func (f *recorder) AcceptTerms() (bool, error) { return f.terms, f.call("AcceptTerms") }
func (f *recorder) Continue() error { return f.call("Continue") }

func (f *recorder) WaitUntilHere(time.Duration) (bool, error) {
	return f.loginHit, f.call("WaitUntilHere")
}
func (f *recorder) Capture() (*models.ArtifactSet, error) {
	return &models.ArtifactSet{Tag: "auth_gate_login"}, f.call("Capture")
}

func (f *recorder) SaveArtifacts(tag string) (*models.ArtifactSet, error) {
	f.calls = append(f.calls, "SaveArtifacts:"+tag)
	return &models.ArtifactSet{Tag: tag}, nil
}
func (f *recorder) CurrentURL() (string, error) { return "https://cp.test/login", nil }

func (f *recorder) WriteJourney(models.SearchCriteria, *models.TrainRow) (string, error) {
	f.calls = append(f.calls, "WriteJourney")
	return "/tmp/journey.ics", nil
}

func newRunner(f *recorder) *Runner {
	clock := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	return NewRunner(
		Pages{Home: f, Buy: f, Results: f, Auth: f},
		Options{
			Criteria:    DefaultCriteria(clock),
			Selection:   DefaultSelection(),
			Diagnostics: f,
			Journey:     f,
			RunID:       "run-1",
			Now: func() time.Time {
				clock = clock.Add(time.Second)
				return clock
			},
		},
	)
}

var happyPath = []string{
	"Open", "AcceptCookies", "GoToBuyTickets",
	"SetFrom", "SetTo", "PickDate", "SetPassengers", "SetClass", "Search",
	"SelectTrain", "WriteJourney", "AcceptTerms", "Continue",
	"WaitUntilHere", "Capture",
}

func states(r *models.RunReport) []models.State {
	out := make([]models.State, 0, len(r.Transitions))
	for _, t := range r.Transitions {
		out = append(out, t.State)
	}
	return out
}

func TestRunReachesLoginWall(t *testing.T) {
	f := &recorder{loginHit: true, terms: true}

	report, err := newRunner(f).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, happyPath, f.calls)
	assert.Equal(t, models.StateDone, report.State)
	assert.True(t, report.Succeeded())
	assert.Equal(t, []models.State{
		models.StateSearch, models.StateSelectResult, models.StateAwaitingLogin, models.StateDone,
	}, states(report))
	require.NotNil(t, report.MatchedRow)
	assert.Equal(t, "AP 125", report.MatchedRow.Service)
	assert.Equal(t, "https://cp.test/login", report.FinalURL)
	assert.Equal(t, "run-1", report.RunID)
	require.Len(t, report.Artifacts, 1)
	assert.Equal(t, "auth_gate_login", report.Artifacts[0].Tag)
	assert.Positive(t, report.Duration())
}

func TestRunStopsAtFailingStep(t *testing.T) {
	tests := []struct {
		failOn string
		step   models.State
	}{
		{"Open", models.StateSearch},
		{"SetClass", models.StateSearch},
		{"SelectTrain", models.StateSelectResult},
		{"Continue", models.StateSelectResult},
		{"WaitUntilHere", models.StateAwaitingLogin},
	}
	for _, tt := range tests {
		t.Run(tt.failOn, func(t *testing.T) {
			f := &recorder{failOn: tt.failOn, loginHit: true, terms: true}

			report, err := newRunner(f).Run(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.failOn+" broke")

			assert.Equal(t, models.StateFailed, report.State)
			assert.Equal(t, tt.step, report.FailedStep)
			assert.False(t, report.Succeeded())

			last := f.calls[len(f.calls)-1]
			assert.Equal(t, "SaveArtifacts:failed_"+string(tt.step), last)
			assert.Equal(t, tt.failOn, f.calls[len(f.calls)-2], "no step runs after the failure")
		})
	}
}

func TestRunLoginWallNotReached(t *testing.T) {
	f := &recorder{loginHit: false, terms: true}

	report, err := newRunner(f).Run(context.Background())
	require.ErrorIs(t, err, ErrLoginWallNotReached)
	assert.Equal(t, models.StateAwaitingLogin, report.FailedStep)
	assert.NotContains(t, f.calls, "Capture")
}

func TestRunContinuesWhenTermsUnchecked(t *testing.T) {
	f := &recorder{loginHit: true, terms: false}

	_, err := newRunner(f).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, f.calls, "Continue")
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &recorder{loginHit: true, terms: true, cancel: cancel, cancelOn: "Search"}

	report, err := newRunner(f).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.StateSelectResult, report.FailedStep)
	assert.NotContains(t, f.calls, "SelectTrain")
	for _, c := range f.calls {
		assert.NotContains(t, c, "SaveArtifacts")
	}
}

func TestPauseRespectsContext(t *testing.T) {
	r := NewRunner(Pages{}, Options{StepPause: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.pause(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDefaultCriteria(t *testing.T) {
	lisbon := time.FixedZone("WEST", 3600)

	tests := []struct {
		name string
		now  time.Time
		year int
	}{
		{"before", time.Date(2026, 3, 1, 9, 0, 0, 0, lisbon), 2026},
		{"on the day", time.Date(2026, 9, 24, 23, 59, 0, 0, lisbon), 2026},
		{"after", time.Date(2026, 10, 18, 9, 0, 0, 0, lisbon), 2027},
		{"new year's eve", time.Date(2026, 12, 31, 23, 0, 0, 0, lisbon), 2027},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultCriteria(tt.now)
			assert.Equal(t, tt.year, c.Year)
			assert.Equal(t, 24, c.Day)
			assert.Equal(t, time.September, c.Month)
			assert.Equal(t, "Lisboa Oriente", c.Origin)
			assert.Equal(t, "Porto Campanha", c.Destination)
			assert.Equal(t, 4, c.Passengers())
			assert.Equal(t, "Turistic", c.FareClass)
		})
	}
}

func TestDefaultSelection(t *testing.T) {
	assert.Equal(t, "AP 125 12:09→14:48", DefaultSelection().String())
}
