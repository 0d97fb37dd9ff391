// Package tui implements the live progress dashboard.
package tui

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	pbar "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/taskmon/internal/config"
	"github.com/twiced-technology-gmbh/taskmon/internal/progress"
	"github.com/twiced-technology-gmbh/taskmon/internal/state"
)

const (
	tickInterval = 30 * time.Second // how often velocity figures refresh
	barWidth     = 40
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	featureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	countStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	blockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// keys are the dashboard key bindings.
var keys = struct {
	Quit   key.Binding
	Reload key.Binding
}{
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Reload: key.NewBinding(key.WithKeys("r")),
}

// ReloadMsg asks the dashboard to re-read the stores.
type ReloadMsg struct{}

// TickMsg drives the periodic refresh.
type TickMsg time.Time

// row is one feature's rendered progress.
type row struct {
	snap  progress.Snapshot
	trend progress.Trend
}

// Dashboard is the top-level bubbletea model.
type Dashboard struct {
	cfg   *config.Config
	mgr   *state.Manager
	rows  []row
	bar   pbar.Model
	width int
	err   error
	now   func() time.Time // clock for trend display; defaults to time.Now
}

// NewDashboard creates a dashboard model over a monitor.
func NewDashboard(cfg *config.Config, mgr *state.Manager) *Dashboard {
	d := &Dashboard{
		cfg: cfg,
		mgr: mgr,
		bar: pbar.New(pbar.WithDefaultGradient(), pbar.WithWidth(barWidth)),
		now: time.Now,
	}
	d.load()
	return d
}

// SetNow overrides the clock used for trend display (for testing).
func (d *Dashboard) SetNow(fn func() time.Time) {
	d.now = fn
}

// WatchPaths returns the directories the file watcher should monitor for
// live reloads: the store directory plus every feature source directory.
func (d *Dashboard) WatchPaths() []string {
	paths := []string{d.cfg.Dir(), d.cfg.FeaturesPath()}
	entries, err := os.ReadDir(d.cfg.FeaturesPath())
	if err != nil {
		return paths
	}
	for _, entry := range entries {
		if entry.IsDir() {
			paths = append(paths, d.cfg.FeaturePath(entry.Name()))
		}
	}
	return paths
}

// load re-reads every feature and recomputes snapshots and trends.
// When auto-discovery is on, fresh scan results are merged first.
func (d *Dashboard) load() {
	if d.cfg.AutoDiscovery {
		entries, err := os.ReadDir(d.cfg.FeaturesPath())
		if err == nil {
			for _, entry := range entries {
				if !entry.IsDir() {
					continue
				}
				if _, err := d.mgr.Discover(entry.Name(), d.cfg.FeaturePath(entry.Name())); err != nil {
					d.err = err
					return
				}
			}
		}
	}

	features, err := d.mgr.Store().LoadAll()
	if err != nil {
		d.err = err
		return
	}

	now := d.now()
	rows := make([]row, 0, len(features))
	for _, f := range features {
		entries, err := d.mgr.Store().History(f.ID, 0)
		if err != nil {
			d.err = err
			return
		}
		rows = append(rows, row{
			snap:  progress.Compute(f, now),
			trend: progress.ComputeTrend(f, entries, config.DefaultTrendWindowDays, now),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].snap.FeatureID < rows[j].snap.FeatureID })

	d.rows = rows
	d.err = nil
}

// Init implements tea.Model.
func (d *Dashboard) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return d, tea.Quit
		case key.Matches(msg, keys.Reload):
			d.load()
		}
		return d, nil
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.bar.Width = min(barWidth, d.width-10) //nolint:mnd // leave room for the percentage
		return d, nil
	case ReloadMsg:
		d.load()
		return d, nil
	case TickMsg:
		d.load()
		return d, tickCmd()
	}
	return d, nil
}

// View implements tea.Model.
func (d *Dashboard) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("taskmon"))
	b.WriteString("\n\n")

	if d.err != nil {
		b.WriteString(errorStyle.Render("error: " + d.err.Error()))
		b.WriteString("\n\n")
	}

	if len(d.rows) == 0 {
		b.WriteString(countStyle.Render("No features tracked yet."))
		b.WriteString("\n")
	}

	for _, r := range d.rows {
		b.WriteString(featureStyle.Render(r.snap.FeatureID))
		b.WriteString("\n")
		b.WriteString(d.bar.ViewAs(r.snap.Percentage / 100))
		b.WriteString(fmt.Sprintf("  %.1f%%\n", r.snap.Percentage))

		counts := fmt.Sprintf("%d tasks · %d done · %d active · %d pending",
			r.snap.TotalTasks, r.snap.Completed, r.snap.InProgress, r.snap.Pending)
		b.WriteString(countStyle.Render(counts))
		if r.snap.Blocked > 0 {
			b.WriteString("  ")
			b.WriteString(blockedStyle.Render(fmt.Sprintf("%d blocked", r.snap.Blocked)))
		}
		b.WriteString("\n")

		trend := fmt.Sprintf("%.2f tasks/day", r.trend.VelocityPerDay)
		if r.trend.EstimatedCompletion != nil {
			trend += " · est. done " + r.trend.EstimatedCompletion.String()
		}
		b.WriteString(countStyle.Render(trend))
		b.WriteString("\n\n")
	}

	b.WriteString(footerStyle.Render("r reload · q quit"))
	b.WriteString("\n")
	return b.String()
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
