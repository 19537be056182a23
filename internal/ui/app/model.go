package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"trackhost/internal/ui/theme"
	pluginsview "trackhost/internal/ui/views/plugins"
	skeletonview "trackhost/internal/ui/views/skeleton"
)

// ─── ports ───────────────────────────────────────────────────────────────────

// PluginPort is everything the tabs need from the plugin module.
type PluginPort interface {
	pluginsview.Port
	skeletonview.Port
}

// ─── tab index ───────────────────────────────────────────────────────────────

type tabID int

const (
	tabPlugins tabID = iota
	tabSkeleton
	tabCount
)

var tabLabels = [tabCount]string{"Plugins", "Skeleton"}

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Tab    key.Binding
	Toggle key.Binding
	Rescan key.Binding
	Doctor key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Toggle: key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "enable/disable")),
		Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
		Doctor: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "doctor")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Toggle},
		{k.Rescan, k.Doctor},
		{k.Help, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. It owns tab routing and the help
// overlay; rendering is delegated to the sub-views.
type Model struct {
	pluginView   pluginsview.Model
	skeletonView skeletonview.Model

	activeTab tabID
	keys      keyMap
	help      help.Model
	showHelp  bool
	width     int
	height    int
}

func NewModel(plugin PluginPort) Model {
	var (
		pv pluginsview.Model
		sv skeletonview.Model
	)
	if plugin != nil {
		pv = pluginsview.New(plugin)
		sv = skeletonview.New(plugin)
	} else {
		pv = pluginsview.New(nil)
		sv = skeletonview.New(nil)
	}
	return Model{
		pluginView:   pv,
		skeletonView: sv,
		activeTab:    tabPlugins,
		keys:         defaultKeys(),
		help:         help.New(),
	}
}

// Close releases sub-view subscriptions.
func (m Model) Close() {
	m.pluginView.Close()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.pluginView.Init(), m.skeletonView.Init())
}

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = m.width
		m.propagateSize()
		return m, nil

	// The skeleton keeps refreshing while another tab is shown.
	case skeletonview.RefreshMsg:
		var cmd tea.Cmd
		m.skeletonView, cmd = m.skeletonView.Update(msg)
		return m, cmd

	case pluginsview.ChangedMsg, pluginsview.ListedMsg, pluginsview.ToggledMsg,
		pluginsview.RescannedMsg, pluginsview.DoctorMsg:
		var cmd tea.Cmd
		m.pluginView, cmd = m.pluginView.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}
		if m.activeTab == tabPlugins && m.pluginView.Filtering() {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case "shift+tab":
			m.activeTab = (m.activeTab + tabCount - 1) % tabCount
			return m, nil
		case "?":
			m.showHelp = !m.showHelp
			return m, nil
		}
	}

	var tabCmd tea.Cmd
	switch m.activeTab {
	case tabPlugins:
		m.pluginView, tabCmd = m.pluginView.Update(msg)
	case tabSkeleton:
		m.skeletonView, tabCmd = m.skeletonView.Update(msg)
	}
	cmds = append(cmds, tabCmd)
	return m, tea.Batch(cmds...)
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	contentH := m.height - lipgloss.Height(tabBar) - lipgloss.Height(statusBar)
	if contentH < 1 {
		contentH = 1
	}

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).Render(m.help.View(m.keys))
	case m.activeTab == tabSkeleton:
		content = m.skeletonView.View()
	default:
		content = m.pluginView.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		if i == m.activeTab {
			parts[i] = theme.Hot.Render(" " + tabLabels[i] + " ")
		} else {
			parts[i] = theme.Muted.Render(" " + tabLabels[i] + " ")
		}
	}
	bar := "trackhost  " + strings.Join(parts, theme.Muted.Render(" │ "))
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.pluginView.Status()
	if left == "" {
		left = "ready"
	}
	right := theme.Muted.Render("?:help  tab:switch  q:quit")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).
		Render(left+strings.Repeat(" ", gap)+right)
}

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 3}
	m.pluginView, _ = m.pluginView.Update(sz)
	m.skeletonView, _ = m.skeletonView.Update(sz)
}
