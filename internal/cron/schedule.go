package cron

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

// ValidateSchedule checks that the schedule's kind-specific fields are set.
func ValidateSchedule(s Schedule) error {
	switch s.Kind {
	case KindAt:
		if s.AtMs <= 0 {
			return fmt.Errorf("schedule.kind=%q requires at_ms", KindAt)
		}
	case KindEvery:
		if s.EveryMs <= 0 {
			return fmt.Errorf("schedule.kind=%q requires every_ms > 0", KindEvery)
		}
	case KindCron:
		if s.Expr == "" {
			return fmt.Errorf("schedule.kind=%q requires expr", KindCron)
		}
		if !gronx.New().IsValid(s.Expr) {
			return fmt.Errorf("invalid cron expression: %q", s.Expr)
		}
	default:
		return fmt.Errorf("unknown schedule kind: %q", s.Kind)
	}
	return nil
}

// computeNextRun returns the next firing time in epoch milliseconds,
// or 0 when the schedule can never fire again.
func computeNextRun(s Schedule, baseMs int64) int64 {
	switch s.Kind {
	case KindAt:
		if s.AtMs > baseMs {
			return s.AtMs
		}
		return 0

	case KindEvery:
		if s.EveryMs <= 0 {
			return 0
		}
		return baseMs + s.EveryMs

	case KindCron:
		if s.Expr == "" {
			return 0
		}
		base := time.UnixMilli(baseMs)
		if s.Tz != "" {
			loc, err := time.LoadLocation(s.Tz)
			if err != nil {
				slog.Warn("unknown cron timezone, using local", "tz", s.Tz, "error", err)
			} else {
				base = base.In(loc)
			}
		}
		next, err := gronx.NextTickAfter(s.Expr, base, false)
		if err != nil {
			slog.Warn("invalid cron expression", "expr", s.Expr, "error", err)
			return 0
		}
		return next.UnixMilli()
	}
	return 0
}
