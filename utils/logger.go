package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Logger provides structured, leveled logging throughout the application.
// Lines can additionally be mirrored, without colour codes, into a run log.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger

	mu           sync.Mutex
	tee          io.Writer
	debugEnabled bool
}

// NewLogger creates a new Logger writing to stdout/stderr.
func NewLogger() *Logger {
	flags := 0
	return &Logger{
		info:         log.New(os.Stdout, "", flags),
		warn:         log.New(os.Stdout, "", flags),
		err:          log.New(os.Stderr, "", flags),
		debug:        log.New(os.Stdout, "", flags),
		debugEnabled: true,
	}
}

// SetDebug toggles Debug output.
func (l *Logger) SetDebug(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugEnabled = enabled
}

// TeeTo mirrors every subsequent line into w. Passing nil stops mirroring.
func (l *Logger) TeeTo(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tee = w
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) Info(format string, args ...any) {
	l.emit(l.info, "\033[32mINFO\033[0m ", "INFO ", format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.emit(l.warn, "\033[33mWARN\033[0m ", "WARN ", format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.emit(l.err, "\033[31mERROR\033[0m", "ERROR", format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.mu.Lock()
	enabled := l.debugEnabled
	l.mu.Unlock()
	if !enabled {
		return
	}
	l.emit(l.debug, "\033[36mDEBUG\033[0m", "DEBUG", format, args...)
}

func (l *Logger) emit(out *log.Logger, colourTag, plainTag, format string, args ...any) {
	ts := l.timestamp()
	msg := fmt.Sprintf(format, args...)
	out.Printf("[%s] %s %s\n", ts, colourTag, msg)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tee != nil {
		fmt.Fprintf(l.tee, "[%s] %s %s\n", ts, plainTag, msg)
	}
}
