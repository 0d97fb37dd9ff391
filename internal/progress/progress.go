// Package progress aggregates feature task states into snapshots,
// velocity, and completion forecasts.
package progress

import (
	"math"
	"time"

	"github.com/twiced-technology-gmbh/taskmon/internal/date"
	"github.com/twiced-technology-gmbh/taskmon/internal/task"
)

// Snapshot is a derived, point-in-time aggregate of a feature's task states.
type Snapshot struct {
	FeatureID  string    `json:"feature_id"`
	TotalTasks int       `json:"total_tasks"`
	Completed  int       `json:"completed"`
	InProgress int       `json:"in_progress"`
	Blocked    int       `json:"blocked"`
	Pending    int       `json:"pending"`
	Percentage float64   `json:"percentage"`
	ComputedAt time.Time `json:"computed_at"`
}

// Compute builds a snapshot from current feature state. A feature with zero
// tasks reports 0.0% rather than failing.
func Compute(f *task.Feature, now time.Time) Snapshot {
	s := Snapshot{FeatureID: f.ID, ComputedAt: now}
	for _, t := range f.Tasks {
		s.TotalTasks++
		switch t.State {
		case task.Completed:
			s.Completed++
		case task.InProgress:
			s.InProgress++
		case task.Blocked:
			s.Blocked++
		case task.Pending:
			s.Pending++
		}
	}
	if s.TotalTasks > 0 {
		s.Percentage = roundHalfUp1(float64(s.Completed) / float64(s.TotalTasks) * 100)
	}
	return s
}

// Trend is the velocity and forecast for a feature over a trailing window.
type Trend struct {
	FeatureID      string  `json:"feature_id"`
	WindowDays     int     `json:"window_days"`
	Completions    int     `json:"completions"`
	VelocityPerDay float64 `json:"velocity_per_day"`
	RemainingTasks int     `json:"remaining_tasks"`

	// EstimatedCompletion is nil when velocity is zero, nothing remains,
	// or the forecast lands beyond the representable horizon.
	EstimatedCompletion *date.Date `json:"estimated_completion,omitempty"`
}

// ComputeTrend derives velocity from history entries transitioning into
// COMPLETED within the window, and forecasts a completion date from the
// remaining incomplete tasks, rounded up to whole days. The window counts
// as at least one day.
func ComputeTrend(f *task.Feature, entries []task.HistoryEntry, windowDays int, now time.Time) Trend {
	if windowDays < 1 {
		windowDays = 1
	}
	tr := Trend{FeatureID: f.ID, WindowDays: windowDays}

	cutoff := now.AddDate(0, 0, -windowDays)
	for _, e := range entries {
		if e.FeatureID == f.ID && e.ToState == task.Completed && e.Timestamp.After(cutoff) {
			tr.Completions++
		}
	}
	tr.VelocityPerDay = float64(tr.Completions) / float64(windowDays)

	for _, t := range f.Tasks {
		if t.State != task.Completed {
			tr.RemainingTasks++
		}
	}

	if tr.VelocityPerDay > 0 && tr.RemainingTasks > 0 {
		days := math.Ceil(float64(tr.RemainingTasks) / tr.VelocityPerDay)
		// A crawling velocity against a huge backlog can forecast past any
		// representable date; leave the estimate empty rather than wrap.
		if days <= maxForecastDays {
			eta := date.FromTime(now.AddDate(0, 0, int(days)))
			tr.EstimatedCompletion = &eta
		}
	}
	return tr
}

// maxForecastDays caps the forecast horizon at roughly a thousand years.
const maxForecastDays = 365 * 1000

// roundHalfUp1 rounds to one decimal place, half up.
func roundHalfUp1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10 //nolint:mnd // one decimal place
}
