package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindChromeBinaryPrefersEnv(t *testing.T) {
	t.Setenv("CHROME_BIN", "/opt/custom/chrome")
	assert.Equal(t, "/opt/custom/chrome", FindChromeBinary())
}

func TestSessionConsoleIsACopy(t *testing.T) {
	s := &Session{}
	s.record("log", "first")

	got := s.Console()
	got[0].Text = "mutated"

	assert.Equal(t, "first", s.Console()[0].Text)
}
