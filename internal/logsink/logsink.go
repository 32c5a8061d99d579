// Package logsink defines the level-filtered, category-scoped log sink
// contract the core consumes, and a default console implementation.
// The core never formats ANSI or writes to a file directly; it only
// calls Sink.Log.
package logsink

import (
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Category identifies the subsystem emitting a log line.
type Category string

const (
	System Category = "SYSTEM"
	HAL    Category = "HAL"
	BSP    Category = "BSP"
	L2     Category = "L2"
	L3     Category = "L3"
	SAI    Category = "SAI"
	CLI    Category = "CLI"
	Driver Category = "DRIVER"
	Test   Category = "TEST"
)

// Level is a verbosity level, most to least severe.
type Level int

const (
	Fatal Level = iota
	Error
	Warn
	Info
	Debug
	Trace
)

func (l Level) String() string {
	switch l {
	case Fatal:
		return "FATAL"
	case Error:
		return "ERROR"
	case Warn:
		return "WARN"
	case Info:
		return "INFO"
	case Debug:
		return "DEBUG"
	case Trace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// Sink is the contract every core component logs through. Logging is
// informational only: a Sink must never be used to drive control flow,
// and a Fatal log must not terminate the process on its own.
type Sink interface {
	Log(cat Category, level Level, format string, args ...any)
	// Enabled reports whether a message at level for cat would be
	// emitted, letting callers skip expensive formatting.
	Enabled(cat Category, level Level) bool
}

// NopSink discards everything. Useful in unit tests that do not want
// console noise.
type NopSink struct{}

func (NopSink) Log(Category, Level, string, ...any) {}
func (NopSink) Enabled(Category, Level) bool         { return false }

// ConsoleSink is the default Sink: a global level with optional
// per-category overrides, rendered with fatih/color when attached to a
// terminal (and disabled automatically under NO_COLOR or redirection,
// matching the teacher console logger's behavior).
type ConsoleSink struct {
	mu         sync.RWMutex
	global     Level
	perCat     map[Category]Level
	w          *os.File
	colorsOn   bool
	fatalColor *color.Color
	errColor   *color.Color
	warnColor  *color.Color
	infoColor  *color.Color
	debugColor *color.Color
}

// NewConsoleSink creates a sink writing to os.Stderr at the given
// default level.
func NewConsoleSink(global Level) *ConsoleSink {
	enabled := os.Getenv("NO_COLOR") == ""
	if fi, err := os.Stderr.Stat(); err != nil || fi.Mode()&os.ModeCharDevice == 0 {
		enabled = false
	}
	color.NoColor = !enabled
	return &ConsoleSink{
		global:     global,
		perCat:     make(map[Category]Level),
		w:          os.Stderr,
		colorsOn:   enabled,
		fatalColor: color.New(color.FgRed, color.Bold),
		errColor:   color.New(color.FgRed),
		warnColor:  color.New(color.FgYellow),
		infoColor:  color.New(color.FgBlue),
		debugColor: color.New(color.FgWhite, color.Faint),
	}
}

// SetCategoryLevel overrides the verbosity for one category.
func (c *ConsoleSink) SetCategoryLevel(cat Category, level Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.perCat[cat] = level
}

// SetGlobalLevel changes the fallback level used by categories with no
// override.
func (c *ConsoleSink) SetGlobalLevel(level Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global = level
}

func (c *ConsoleSink) levelFor(cat Category) Level {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if lv, ok := c.perCat[cat]; ok {
		return lv
	}
	return c.global
}

// Enabled implements Sink.
func (c *ConsoleSink) Enabled(cat Category, level Level) bool {
	return level <= c.levelFor(cat)
}

// Log implements Sink.
func (c *ConsoleSink) Log(cat Category, level Level, format string, args ...any) {
	if !c.Enabled(cat, level) {
		return
	}
	line := fmt.Sprintf("[%s] %s: %s\n", cat, level, fmt.Sprintf(format, args...))
	if !c.colorsOn {
		fmt.Fprint(c.w, line)
		return
	}
	switch level {
	case Fatal:
		c.fatalColor.Fprint(c.w, line)
	case Error:
		c.errColor.Fprint(c.w, line)
	case Warn:
		c.warnColor.Fprint(c.w, line)
	case Info:
		c.infoColor.Fprint(c.w, line)
	default:
		c.debugColor.Fprint(c.w, line)
	}
}
