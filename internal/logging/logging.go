/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package logging provides centralized logging for the supervisor. It
// adapts between a colorized terminal mode and a machine-readable JSON
// stream mode, the latter intended for the (out-of-scope) terminal UI
// collaborator described in spec.md §1 to consume over a pipe.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

func init() {
	pterm.Info = *pterm.Info.WithPrefix(pterm.Prefix{
		Text:  "INFO",
		Style: pterm.NewStyle(pterm.FgBlue),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Success = *pterm.Success.WithPrefix(pterm.Prefix{
		Text:  "SUCCESS",
		Style: pterm.NewStyle(pterm.FgGreen),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Warning = *pterm.Warning.WithPrefix(pterm.Prefix{
		Text:  "WARNING",
		Style: pterm.NewStyle(pterm.FgYellow),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Error = *pterm.Error.WithPrefix(pterm.Prefix{
		Text:  "ERROR",
		Style: pterm.NewStyle(pterm.FgRed),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Debug = *pterm.Debug.WithPrefix(pterm.Prefix{
		Text:  "DEBUG",
		Style: pterm.NewStyle(pterm.FgCyan),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)
}

// Level is the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Mode determines how log records are rendered.
type Mode int

const (
	// ModeCLI prints colorized lines via pterm.
	ModeCLI Mode = iota
	// ModeJSON emits one JSON object per line on stdout, for the terminal
	// UI collaborator to parse.
	ModeJSON
)

// record is the JSON-mode wire shape for a single log line.
type record struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Target  string    `json:"target,omitempty"`
	Message string    `json:"message"`
}

// Logger is the process-wide logging facade.
type Logger struct {
	mu           sync.RWMutex
	mode         Mode
	debugEnabled bool
	quietEnabled bool
	out          *json.Encoder
}

var global = &Logger{mode: ModeCLI, out: json.NewEncoder(os.Stdout)}

// Get returns the global logger instance.
func Get() *Logger { return global }

// SetMode switches between CLI and JSON-stream output.
func (l *Logger) SetMode(mode Mode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mode = mode
}

// SetDebugEnabled toggles whether Debug-level messages are emitted.
func (l *Logger) SetDebugEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugEnabled = enabled
}

// SetQuietEnabled suppresses Info and Debug messages when enabled.
func (l *Logger) SetQuietEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quietEnabled = enabled
}

// WithTarget returns a logger scoped to a single build target name; every
// message logged through it is tagged in JSON mode and prefixed in CLI mode.
func (l *Logger) WithTarget(target string) *TargetLogger {
	return &TargetLogger{parent: l, target: target}
}

func (l *Logger) Debug(format string, args ...any)   { l.log(LevelDebug, "", format, args...) }
func (l *Logger) Info(format string, args ...any)    { l.log(LevelInfo, "", format, args...) }
func (l *Logger) Success(format string, args ...any) { l.log(LevelInfo, "", "✓ "+format, args...) }
func (l *Logger) Warning(format string, args ...any) { l.log(LevelWarning, "", format, args...) }
func (l *Logger) Error(format string, args ...any)   { l.log(LevelError, "", format, args...) }

func (l *Logger) log(level Level, target, format string, args ...any) {
	l.mu.RLock()
	mode := l.mode
	debugEnabled := l.debugEnabled
	quietEnabled := l.quietEnabled
	l.mu.RUnlock()

	if level == LevelDebug && !debugEnabled {
		return
	}
	if quietEnabled && (level == LevelInfo || level == LevelDebug) {
		return
	}

	message := fmt.Sprintf(format, args...)

	switch mode {
	case ModeCLI:
		l.logCLI(level, target, message)
	case ModeJSON:
		_ = l.out.Encode(record{Time: time.Now(), Level: level.String(), Target: target, Message: message})
	}
}

func (l *Logger) logCLI(level Level, target, message string) {
	if target != "" {
		message = fmt.Sprintf("[%s] %s", target, message)
	}
	switch level {
	case LevelDebug:
		pterm.Debug.Println(message)
	case LevelInfo:
		pterm.Info.Println(message)
	case LevelWarning:
		pterm.Warning.Println(message)
	case LevelError:
		pterm.Error.Println(message)
	}
}

// TargetLogger scopes every message to a single build target name.
type TargetLogger struct {
	parent *Logger
	target string
}

func (t *TargetLogger) Debug(format string, args ...any) { t.parent.log(LevelDebug, t.target, format, args...) }
func (t *TargetLogger) Info(format string, args ...any)  { t.parent.log(LevelInfo, t.target, format, args...) }
func (t *TargetLogger) Warning(format string, args ...any) {
	t.parent.log(LevelWarning, t.target, format, args...)
}
func (t *TargetLogger) Error(format string, args ...any) { t.parent.log(LevelError, t.target, format, args...) }

// Package-level convenience wrappers over the global logger.
func Debug(format string, args ...any)   { global.Debug(format, args...) }
func Info(format string, args ...any)    { global.Info(format, args...) }
func Success(format string, args ...any) { global.Success(format, args...) }
func Warning(format string, args ...any) { global.Warning(format, args...) }
func Error(format string, args ...any)   { global.Error(format, args...) }
