package skeleton

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	plugindto "trackhost/internal/modules/plugin/dto"
	"trackhost/internal/ui/theme"
)

const refreshInterval = 100 * time.Millisecond

// Port returns the joints the primary device reported on its last update.
type Port interface {
	AppJointPoses(ctx context.Context) []plugindto.JointPose
}

type RefreshMsg struct{ at time.Time }

// Model renders the primary device's skeleton as a joint table.
type Model struct {
	port   Port
	joints []plugindto.JointPose
	width  int
	height int
}

func New(port Port) Model {
	return Model{port: port}
}

func (m Model) Init() tea.Cmd {
	if m.port == nil {
		return nil
	}
	return tick()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case RefreshMsg:
		m.joints = m.port.AppJointPoses(context.Background())
		return m, tick()
	}
	return m, nil
}

func (m Model) View() string {
	if len(m.joints) == 0 {
		return theme.Pane.Width(max(m.width-4, 10)).Render(theme.Muted.Render("no joints reported yet"))
	}
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(fmt.Sprintf("%-14s %-10s %26s  %s", "joint", "role", "position", "state")))
	sb.WriteString("\n")
	for _, j := range m.joints {
		state := theme.Good.Render("tracked")
		if !j.Tracked {
			state = theme.Bad.Render("lost")
		}
		pos := fmt.Sprintf("%+.3f %+.3f %+.3f", j.Position[0], j.Position[1], j.Position[2])
		sb.WriteString(fmt.Sprintf("%-14s %-10s %26s  %s\n", j.Name, j.Role, pos, state))
	}
	return lipgloss.NewStyle().Width(m.width).Render(sb.String())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return RefreshMsg{at: t} })
}
