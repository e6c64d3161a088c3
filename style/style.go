package style

import (
	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	nt "opgateway/entity"
)

var (
	BackgroundColor  = lipgloss.Color("234")                                 // Dark warm grey
	TableBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")) // Subtle warm grey border
	HlRowStyle       = lipgloss.NewStyle().Background(lipgloss.Color("235")) // Very subtle warm grey row
	HlColStyle       = lipgloss.NewStyle().Background(lipgloss.Color("234")) // Twice as subtle - barely visible
	HlCellStyle      = lipgloss.NewStyle().Background(lipgloss.Color("237")) // Slightly warmer cell
	MutedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("246")) // Warm muted grey text
	ErrorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("167"))
	SelectedStyle    = lipgloss.NewStyle().Background(lipgloss.Color("240"))
	UnStyle          = lipgloss.NewStyle()

	DialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	tokenStyles = map[nt.TokenType]lipgloss.Style{
		nt.ChannelToken:     lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		nt.CompOpToken:      lipgloss.NewStyle().Foreground(lipgloss.Color("180")),
		nt.LogicToken:       lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Bold(true),
		nt.ParenthesisToken: MutedStyle,
		nt.StringToken:      lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		nt.NumberToken:      lipgloss.NewStyle().Foreground(lipgloss.Color("209")),
	}
)

// Token renders a filter token by its type
func Token(tkn nt.Token) string {
	return tokenStyles[tkn.Type].Render(tkn.String())
}

// Invalid renders raw text that does not fit the expression, flagged
func Invalid(text string) string {
	return ErrorStyle.Underline(true).Render(text)
}

// Trace returns a foreground style for a plot colour
func Trace(hex string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
}

// RowStyler returns a StyleFunc that highlights the selected row
func RowStyler(selectedRow int) func(row, col int) lipgloss.Style {
	return func(row, col int) lipgloss.Style {
		if row == selectedRow {
			return HlRowStyle
		}
		return UnStyle
	}
}

// CellStyler returns a StyleFunc that highlights the selected cell, row, and column
func CellStyler(selectedRow, selectedCol int) func(row, col int) lipgloss.Style {
	return func(row, col int) lipgloss.Style {
		rowMatch := row == selectedRow
		colMatch := col == selectedCol

		if rowMatch && colMatch {
			return HlCellStyle
		} else if rowMatch {
			return HlRowStyle
		} else if colMatch {
			return HlColStyle
		}
		return UnStyle
	}
}

// StyleTable applies consistent table styling for borders and separators
func StyleTable(tbl *table.Table) {
	tbl.Border(lipgloss.Border{
		Top:         "─",
		Middle:      "─",
		MiddleLeft:  "─",
		MiddleRight: "─",
	}).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderStyle(TableBorderStyle)
}
