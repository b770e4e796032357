package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"solana-signals/internal/domain"
)

var (
	colorAccent = lipgloss.Color("#7D56F4")
	colorDim    = lipgloss.Color("#626262")
	colorHigh   = lipgloss.Color("#04B575")
	colorMedium = lipgloss.Color("#F5C518")
	colorLow    = lipgloss.Color("#FF5F5F")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(colorAccent).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#2D2D2D")).
				Bold(true)

	staleStyle  = lipgloss.NewStyle().Foreground(colorMedium).Bold(true)
	noticeStyle = lipgloss.NewStyle().Foreground(colorLow).Bold(true)
	infoStyle   = lipgloss.NewStyle().Foreground(colorHigh)
	footerStyle = lipgloss.NewStyle().Foreground(colorDim)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDim)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorAccent).
			Padding(1, 2)
)

// scoreStyle colors a combined score by its display band.
func scoreStyle(combined int) lipgloss.Style {
	switch domain.BandForScore(combined) {
	case domain.BandHigh:
		return lipgloss.NewStyle().Foreground(colorHigh).Bold(true)
	case domain.BandMedium:
		return lipgloss.NewStyle().Foreground(colorMedium)
	default:
		return lipgloss.NewStyle().Foreground(colorLow)
	}
}

// signalTypeStyle colors a signal classification.
func signalTypeStyle(t domain.SignalType) lipgloss.Style {
	switch t {
	case domain.SignalStrongBuy:
		return lipgloss.NewStyle().Foreground(colorHigh).Bold(true)
	case domain.SignalBuy:
		return lipgloss.NewStyle().Foreground(colorHigh)
	case domain.SignalWatch:
		return lipgloss.NewStyle().Foreground(colorMedium)
	default:
		return lipgloss.NewStyle().Foreground(colorLow)
	}
}
