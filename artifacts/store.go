// Package artifacts writes diagnostic output for a scenario run: page
// snapshots, the run log and the selected journey. Every run gets its own
// directory so repeated runs never touch each other's files.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cp-tickets/models"
)

const (
	stampLayout = "20060102_150405"
	logFileName = "run.log"
)

// Snapshot is the page state handed to Save. Parts that could not be
// captured are left empty and listed in CaptureErrors.
type Snapshot struct {
	URL           string
	HTML          string
	PNG           []byte
	Console       []models.ConsoleEntry
	CaptureErrors []string
}

// Store owns one run directory.
type Store struct {
	runID string
	dir   string
	now   func() time.Time

	mu  sync.Mutex
	seq int
}

// NewStore creates <root>/<timestamp>_<short-id> with a fresh run id.
func NewStore(root string) (*Store, error) {
	return newStore(root, time.Now)
}

func newStore(root string, now func() time.Time) (*Store, error) {
	id := uuid.NewString()
	dir := filepath.Join(root, fmt.Sprintf("%s_%s", now().Format(stampLayout), id[:8]))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("artifacts: create run dir: %w", err)
	}
	return &Store{runID: id, dir: dir, now: now}, nil
}

func (s *Store) RunID() string { return s.runID }

func (s *Store) Dir() string { return s.dir }

// OpenLog creates the run log file inside the run directory.
func (s *Store) OpenLog() (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(s.dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("artifacts: open run log: %w", err)
	}
	return f, nil
}

// Save writes the snapshot as <seq>_<timestamp>_<tag>.{html,png,_console.json,txt}.
// Each part is written independently; the returned set has an empty path
// for every part that failed, and the error joins those failures.
func (s *Store) Save(tag string, snap Snapshot) (*models.ArtifactSet, error) {
	s.mu.Lock()
	s.seq++
	base := filepath.Join(s.dir, fmt.Sprintf("%02d_%s_%s", s.seq, s.now().Format(stampLayout), sanitizeTag(tag)))
	s.mu.Unlock()

	set := &models.ArtifactSet{Tag: tag, URL: snap.URL}
	var errs []error

	if snap.HTML != "" {
		if err := os.WriteFile(base+".html", []byte(snap.HTML), 0644); err != nil {
			errs = append(errs, fmt.Errorf("html: %w", err))
		} else {
			set.HTMLPath = base + ".html"
		}
	}

	if len(snap.PNG) > 0 {
		if err := os.WriteFile(base+".png", snap.PNG, 0644); err != nil {
			errs = append(errs, fmt.Errorf("screenshot: %w", err))
		} else {
			set.PNGPath = base + ".png"
		}
	}

	console := struct {
		URL  string                `json:"url"`
		Logs []models.ConsoleEntry `json:"logs"`
	}{URL: snap.URL, Logs: snap.Console}
	if console.Logs == nil {
		console.Logs = []models.ConsoleEntry{}
	}
	if data, err := json.MarshalIndent(console, "", "  "); err != nil {
		errs = append(errs, fmt.Errorf("console: %w", err))
	} else if err := os.WriteFile(base+"_console.json", data, 0644); err != nil {
		errs = append(errs, fmt.Errorf("console: %w", err))
	} else {
		set.ConsolePath = base + "_console.json"
	}

	if err := os.WriteFile(base+".txt", []byte(summary(tag, set, snap.CaptureErrors)), 0644); err != nil {
		errs = append(errs, fmt.Errorf("summary: %w", err))
	} else {
		set.TextPath = base + ".txt"
	}

	if len(errs) > 0 {
		return set, fmt.Errorf("artifacts: save %q: %w", tag, errors.Join(errs...))
	}
	return set, nil
}

func summary(tag string, set *models.ArtifactSet, captureErrs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", orPlaceholder(set.URL, "<unknown>"))
	fmt.Fprintf(&b, "Tag: %s\n", tag)
	fmt.Fprintf(&b, "HTML: %s\n", orPlaceholder(set.HTMLPath, "<html fail>"))
	fmt.Fprintf(&b, "Screenshot: %s\n", orPlaceholder(set.PNGPath, "<shot fail>"))
	fmt.Fprintf(&b, "Console: %s\n", orPlaceholder(set.ConsolePath, "<log fail>"))
	for _, e := range captureErrs {
		fmt.Fprintf(&b, "Capture error: %s\n", e)
	}
	return b.String()
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}

func sanitizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "debug"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, tag)
}
