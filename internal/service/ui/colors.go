package ui

import "github.com/charmbracelet/lipgloss"

var (
	// TitleStyle ANSI 6 (cyan) for section headers
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)

	// UsageStyle ANSI 2 (green) for arguments and usage
	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// DescStyle ANSI 8 (gray) keeps descriptions quieter than names
	DescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	// FlagStyle ANSI 3 (yellow) for flags
	FlagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	OKStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	FailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)

	// OutputStyle frames raw device output.
	OutputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("8")).
			PaddingLeft(1)
)

// State renders a session state, green when connected and red when failed.
func State(state string) string {
	switch state {
	case "Connected":
		return OKStyle.Render(state)
	case "Failed":
		return FailStyle.Render(state)
	default:
		return DescStyle.Render(state)
	}
}
