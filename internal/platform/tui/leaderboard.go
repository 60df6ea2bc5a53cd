package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/decodey/internal/api"
)

// LeaderboardModel renders the public leaderboard in a scrollable table.
type LeaderboardModel struct {
	entries  []api.LeaderboardEntry
	username string
	table    table.Model
	width    int
	height   int
	quitting bool
}

// NewLeaderboardModel creates a leaderboard model from fetched entries.
// username, when set, highlights the player's own row.
func NewLeaderboardModel(entries []api.LeaderboardEntry, username string, width, height int) LeaderboardModel {
	m := LeaderboardModel{
		entries:  entries,
		username: username,
		width:    width,
		height:   height,
	}
	m.table = m.createTable()
	return m
}

func (m *LeaderboardModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "Rank", Width: 6},
		{Title: "Player", Width: 18},
		{Title: "Score", Width: 10},
		{Title: "Games", Width: 7},
		{Title: "Avg", Width: 8},
	}

	height := m.height - 6
	if height < 5 {
		height = 5
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	rows := make([]table.Row, len(m.entries))
	for i, e := range m.entries {
		name := e.Username
		if name == m.username && name != "" {
			name = "* " + name
		}
		rows[i] = table.Row{
			fmt.Sprintf("#%d", e.Rank),
			name,
			fmt.Sprintf("%d", e.Score),
			fmt.Sprintf("%d", e.GamesPlayed),
			fmt.Sprintf("%.0f", e.AvgScore),
		}
	}
	t.SetRows(rows)
	return t
}

// Init initializes the leaderboard model.
func (m LeaderboardModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the leaderboard.
func (m LeaderboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		quit := key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"))
		if key.Matches(msg, quit) {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table = m.createTable()
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the leaderboard.
func (m LeaderboardModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(centerText("LEADERBOARD", m.width)))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		empty := statusStyle.Render("No scores yet. Solve a puzzle to claim the top spot!")
		b.WriteString(centerText(empty, m.width))
	} else {
		b.WriteString(centerText(boxStyle.Render(m.table.View()), m.width))
	}

	b.WriteString("\n")
	b.WriteString(statusStyle.Render(centerText("q to exit", m.width)))
	return b.String()
}

// RunLeaderboard runs the leaderboard screen.
func RunLeaderboard(entries []api.LeaderboardEntry, username string, width, height int) error {
	p := tea.NewProgram(
		NewLeaderboardModel(entries, username, width, height),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
