package models

import "time"

// State is a step of the ticket scenario.
type State string

const (
	StateSearch        State = "search"
	StateSelectResult  State = "select-result"
	StateAwaitingLogin State = "awaiting-login"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Transition records when the scenario entered a state.
type Transition struct {
	State State
	At    time.Time
}

// ArtifactSet lists the files written by a single capture.
// A path is empty when that part of the capture failed.
type ArtifactSet struct {
	Tag         string
	URL         string
	HTMLPath    string
	PNGPath     string
	ConsolePath string
	TextPath    string
}

// RunReport summarises one scenario run. It is written to report sinks
// and never read back by the program.
type RunReport struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	State       State
	FailedStep  State
	Error       string
	FinalURL    string
	Criteria    SearchCriteria
	Selection   TrainSelection
	MatchedRow  *TrainRow
	ArtifactDir string
	Transitions []Transition
	Artifacts   []*ArtifactSet
}

// Duration is the wall time between start and finish.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run reached the login wall.
func (r *RunReport) Succeeded() bool {
	return r.State == StateDone
}

// ConsoleEntry is a browser console message or uncaught exception.
type ConsoleEntry struct {
	Level string    `json:"level"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}
