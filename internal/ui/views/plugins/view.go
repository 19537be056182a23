package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	plugindto "trackhost/internal/modules/plugin/dto"
	"trackhost/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

// Port is the slice of the plugin use-case this view needs.
type Port interface {
	List(ctx context.Context) ([]plugindto.PluginInfo, error)
	Enable(ctx context.Context, pluginID string) (plugindto.ToggleResult, error)
	Disable(ctx context.Context, pluginID string) (plugindto.ToggleResult, error)
	Rescan(ctx context.Context) (plugindto.ScanReport, error)
	Doctor(ctx context.Context) ([]plugindto.DoctorResult, error)
	Subscribe(ctx context.Context) (<-chan plugindto.EnablementChange, func())
}

// ─── messages ────────────────────────────────────────────────────────────────

type ListedMsg struct {
	Plugins []plugindto.PluginInfo
	Err     error
}

type ToggledMsg struct {
	Result plugindto.ToggleResult
	Err    error
}

type RescannedMsg struct {
	Report plugindto.ScanReport
	Err    error
}

type DoctorMsg struct {
	Results []plugindto.DoctorResult
	Err     error
}

// ChangedMsg carries one enablement change published by the governor.
type ChangedMsg struct {
	Change plugindto.EnablementChange
	Closed bool
}

// ─── list item ───────────────────────────────────────────────────────────────

type pluginItem struct{ info plugindto.PluginInfo }

func (i pluginItem) Title() string {
	box := "[ ]"
	if i.info.Enabled {
		box = "[x]"
	}
	if !i.info.Loaded {
		box = "[!]"
	}
	return box + " " + i.info.Name
}

func (i pluginItem) Description() string {
	if !i.info.Loaded {
		return i.info.Kind + " · " + i.info.Outcome
	}
	return i.info.Kind + " · " + i.info.Version + " · " + i.info.ID
}

func (i pluginItem) FilterValue() string { return i.info.ID + " " + i.info.Name }

// ─── model ───────────────────────────────────────────────────────────────────

type pane int

const (
	paneList pane = iota
	paneDoctor
)

// Model lists every discovered plugin with its enablement toggle. The
// checkboxes are redrawn from the governor's state after each change, never
// from the key press that requested it.
type Model struct {
	port    Port
	changes <-chan plugindto.EnablementChange
	cancel  func()

	pane    pane
	list    list.Model
	doctor  viewport.Model
	spinner spinner.Model
	loading bool
	status  string
	width   int
	height  int
}

func New(port Port) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Plugins"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	vp := viewport.New(0, 0)
	vp.Style = theme.Pane

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	m := Model{port: port, list: l, doctor: vp, spinner: sp}
	if port != nil {
		m.changes, m.cancel = port.Subscribe(context.Background())
	}
	return m
}

// Close drops the enablement subscription.
func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Filtering reports whether the list's search filter is active.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Status is the last user-facing message from this view.
func (m Model) Status() string { return m.status }

func (m Model) Init() tea.Cmd {
	if m.port == nil {
		return nil
	}
	return tea.Batch(m.listCmd(), m.waitForChange())
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(m.width, m.height-1)
		m.doctor.Width = m.width - 4
		m.doctor.Height = m.height - 3
		return m, nil

	case ListedMsg:
		m.loading = false
		if msg.Err != nil {
			m.status = "list plugins: " + msg.Err.Error()
			return m, nil
		}
		items := make([]list.Item, len(msg.Plugins))
		for i, info := range msg.Plugins {
			items[i] = pluginItem{info: info}
		}
		return m, m.list.SetItems(items)

	case ToggledMsg:
		m.loading = false
		switch {
		case msg.Err != nil:
			m.status = "toggle: " + msg.Err.Error()
		case msg.Result.Reverted:
			m.status = fmt.Sprintf("%s stays enabled: it is the last %s provider", msg.Result.ID, msg.Result.Kind)
		case msg.Result.Enabled:
			m.status = msg.Result.ID + " enabled"
		default:
			m.status = msg.Result.ID + " disabled"
		}
		return m, m.listCmd()

	case ChangedMsg:
		if msg.Closed {
			return m, nil
		}
		return m, tea.Batch(m.listCmd(), m.waitForChange())

	case RescannedMsg:
		m.loading = false
		if msg.Err != nil {
			m.status = "rescan: " + msg.Err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("scan %s found %d plugins", msg.Report.ScanID, len(msg.Report.Plugins))
		if len(msg.Report.Reenabled) > 0 {
			m.status += "; re-enabled " + strings.Join(msg.Report.Reenabled, ", ")
		}
		return m, m.listCmd()

	case DoctorMsg:
		m.loading = false
		if msg.Err != nil {
			m.status = "doctor: " + msg.Err.Error()
			return m, nil
		}
		m.doctor.SetContent(renderDoctor(msg.Results))
		m.doctor.GotoTop()
		m.pane = paneDoctor
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.pane == paneDoctor {
			if msg.String() == "esc" {
				m.pane = paneList
				return m, nil
			}
			var cmd tea.Cmd
			m.doctor, cmd = m.doctor.Update(msg)
			return m, cmd
		}
		if m.Filtering() || m.port == nil {
			break
		}
		switch msg.String() {
		case " ", "enter":
			if item, ok := m.list.SelectedItem().(pluginItem); ok && item.info.Loaded {
				m.loading = true
				return m, tea.Batch(m.toggleCmd(item.info), m.spinner.Tick)
			}
			return m, nil
		case "r":
			m.loading = true
			return m, tea.Batch(m.rescanCmd(), m.spinner.Tick)
		case "d":
			m.loading = true
			return m, tea.Batch(m.doctorCmd(), m.spinner.Tick)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.pane == paneDoctor {
		hint := theme.Muted.Render("esc: back  ↑/↓: scroll")
		return lipgloss.JoinVertical(lipgloss.Left, hint, m.doctor.View())
	}
	hint := theme.Muted.Render("space: toggle  r: rescan  d: doctor  /: filter")
	if m.loading {
		hint = m.spinner.View() + " working…"
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), hint)
}

// ─── private ─────────────────────────────────────────────────────────────────

func renderDoctor(results []plugindto.DoctorResult) string {
	var sb strings.Builder
	for _, r := range results {
		head := theme.Title.Render(r.Name) + " " + theme.Muted.Render("("+r.ID+")")
		sb.WriteString(head + "\n")
		if r.Outcome != "no_error" {
			sb.WriteString("  " + theme.Bad.Render(r.Outcome) + " " + r.Error + "\n")
			if len(r.UnresolvedDependencies) > 0 {
				sb.WriteString("  unresolved: " + strings.Join(r.UnresolvedDependencies, ", ") + "\n")
			}
			continue
		}
		status := theme.Good.Render(fmt.Sprintf("status %d", r.StatusCode))
		if r.StatusCode != 0 {
			status = theme.Hot.Render(fmt.Sprintf("status %d", r.StatusCode))
		}
		sb.WriteString(fmt.Sprintf("  %s %s  enabled=%t\n", status, r.StatusMessage, r.Enabled))
		if r.Kind == "device" {
			sb.WriteString(fmt.Sprintf("  app orientation: %t\n", r.AppOrientation))
		}
		if len(r.SupportedTrackers) > 0 {
			sb.WriteString("  trackers: " + strings.Join(r.SupportedTrackers, ", ") + "\n")
		}
	}
	return sb.String()
}

func (m Model) listCmd() tea.Cmd {
	return func() tea.Msg {
		plugins, err := m.port.List(context.Background())
		return ListedMsg{Plugins: plugins, Err: err}
	}
}

func (m Model) toggleCmd(info plugindto.PluginInfo) tea.Cmd {
	return func() tea.Msg {
		var (
			result plugindto.ToggleResult
			err    error
		)
		if info.Enabled {
			result, err = m.port.Disable(context.Background(), info.ID)
		} else {
			result, err = m.port.Enable(context.Background(), info.ID)
		}
		return ToggledMsg{Result: result, Err: err}
	}
}

func (m Model) rescanCmd() tea.Cmd {
	return func() tea.Msg {
		report, err := m.port.Rescan(context.Background())
		return RescannedMsg{Report: report, Err: err}
	}
}

func (m Model) doctorCmd() tea.Cmd {
	return func() tea.Msg {
		results, err := m.port.Doctor(context.Background())
		return DoctorMsg{Results: results, Err: err}
	}
}

func (m Model) waitForChange() tea.Cmd {
	changes := m.changes
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		change, ok := <-changes
		return ChangedMsg{Change: change, Closed: !ok}
	}
}
