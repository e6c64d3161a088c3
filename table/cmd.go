package table

import (
	tea "charm.land/bubbletea/v2"

	"opgateway/message"
)

func (pnl TablePanel) selectedCmd() tea.Cmd {

	line, err := pnl.selectedRecord()
	if err != nil {
		return message.ErrorCmd(err)
	}

	row := pnl.selected + 1 // 1-indexed for display

	return func() tea.Msg {
		return message.SelectedMsg{
			Row: row,
			Id:  line.Id,
		}
	}
}

func (pnl TablePanel) filterCmd() tea.Cmd {

	field, value, err := pnl.selectedCell()
	if err != nil {
		return message.ErrorCmd(err)
	}

	return func() tea.Msg {
		return message.OpenFilterMsg{
			Channel: field,
			Value:   value.String(),
		}
	}
}

func (pnl TablePanel) plotCmd() tea.Cmd {

	if pnl.selectedCol >= len(pnl.colFmts) {
		return nil
	}
	channel := pnl.colFmts[pnl.selectedCol].fieldName

	return func() tea.Msg {
		return message.TogglePlotMsg{Channel: channel}
	}
}
