package logger

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pterm/pterm"
)

// StyledLogger wraps slog.Logger with colour-aware helpers for the values the
// services log constantly: test ids, targets and counts.
type StyledLogger struct {
	logger *slog.Logger
}

func NewStyledLogger(logger *slog.Logger) *StyledLogger {
	return &StyledLogger{logger: logger}
}

func (sl *StyledLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, args...)
}

func (sl *StyledLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, args...)
}

func (sl *StyledLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, args...)
}

func (sl *StyledLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, args...)
}

func (sl *StyledLogger) InfoWithTestID(msg string, testID string, args ...any) {
	styled := fmt.Sprintf("%s %s", msg, pterm.FgCyan.Sprint(testID))
	sl.logger.Info(styled, args...)
}

func (sl *StyledLogger) InfoWithTarget(msg string, target string, args ...any) {
	styled := fmt.Sprintf("%s %s", msg, pterm.FgLightMagenta.Sprint(target))
	sl.logger.Info(styled, args...)
}

func (sl *StyledLogger) InfoWithCount(msg string, count int, args ...any) {
	styled := fmt.Sprintf("%s %s", msg, pterm.FgLightYellow.Sprint("(", count, ")"))
	sl.logger.Info(styled, args...)
}

func (sl *StyledLogger) WarnWithTestID(msg string, testID string, args ...any) {
	styled := fmt.Sprintf("%s %s", msg, pterm.FgCyan.Sprint(testID))
	sl.logger.Warn(styled, args...)
}

func (sl *StyledLogger) ErrorWithTestID(msg string, testID string, args ...any) {
	styled := fmt.Sprintf("%s %s", msg, pterm.FgCyan.Sprint(testID))
	sl.logger.Error(styled, args...)
}

// With returns a StyledLogger carrying extra context attrs.
func (sl *StyledLogger) With(args ...any) *StyledLogger {
	return &StyledLogger{logger: sl.logger.With(args...)}
}

// Fatal logs at error level and exits; for unrecoverable startup failures.
func Fatal(logger *slog.Logger, msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}
