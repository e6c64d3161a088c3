package message

import (
	tea "charm.land/bubbletea/v2"

	nt "opgateway/entity"
)

// GetPageCmd returns a command to request a page of data
func GetPageCmd(offset, size int) tea.Cmd {
	return func() tea.Msg {
		return GetPageMsg{
			Offset: offset,
			Size:   size,
		}
	}
}

// ErrorCmd returns a command delivering err
func ErrorCmd(err error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Err: err}
	}
}

// SetFiltersCmd returns a command to apply filters
func SetFiltersCmd(filters []nt.Filter) tea.Cmd {
	return func() tea.Msg {
		return SetFiltersMsg{Filters: filters}
	}
}

func CloseCmd() tea.Msg {
	return CloseMsg{}
}
