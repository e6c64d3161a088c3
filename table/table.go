package table

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/pkg/errors"

	nt "opgateway/entity"
	"opgateway/message"
	"opgateway/style"
)

// Todo: extend last column to edge of panel

const (
	headerHeight = 2
)

// TablePanel pages through the records of the current view
type TablePanel struct {
	selected    int // Absolute position (0 to total-1) of selected record
	selectedCol int // Index into colFmts
	offset      int // Offset of page shown
	total       int // Total records after filtering

	width  int
	height int

	colFmts []colFmt
	lines   []nt.Line
	table   *table.Table

	ctx    context.Context
	logger nt.Logger
}

func NewTablePanel(ctx context.Context, columns []nt.Column, fields []nt.Field, count int, lgr nt.Logger) TablePanel {

	lgt := table.New()
	style.StyleTable(lgt)

	pnl := TablePanel{
		table:  lgt,
		total:  count,
		ctx:    ctx,
		logger: lgr,
	}

	return pnl.setColumns(columns, fields)
}

func (pnl TablePanel) Init() tea.Cmd {
	return nil
}

type colFmt struct {
	lineIdx   int
	width     int
	fieldName string
	formatter func(nt.Value) string
}

func (pnl TablePanel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case SizeMsg:
		pnl.width = msg.Width
		pnl.height = msg.Height

		if pnl.PageSize() > 0 {
			return pnl, message.GetPageCmd(pnl.offset, pnl.PageSize())
		}

	case ColumnsMsg:
		pnl = pnl.setColumns(msg.Columns, msg.Fields)
		return pnl, message.GetPageCmd(pnl.offset, pnl.PageSize())

	case PageMsg:
		pnl.lines = msg.Lines
		pnl.total = msg.Count
		if len(pnl.lines) == 0 {
			return pnl, nil
		}
		return pnl, pnl.selectedCmd()

	case ResetMsg:
		pnl.selected = 0
		pnl.offset = 0
		return pnl, message.GetPageCmd(pnl.offset, pnl.PageSize())

	case tea.KeyPressMsg:
		return pnl.handleKey(msg)
	}

	return pnl, nil
}

func (pnl TablePanel) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {

	pageSize := pnl.PageSize()

	switch msg.String() {
	case "up", "k":
		if pnl.selected > 0 {
			pnl.selected--
		}

	case "down", "j":
		if pnl.selected < pnl.total-1 {
			pnl.selected++
		}

	case "pgup", "ctrl+u":
		pnl.selected = max(pnl.selected-pageSize, 0)

	case "pgdown", "ctrl+d":
		pnl.selected = min(pnl.selected+pageSize, pnl.total-1)

	case "g":
		pnl.selected = 0

	case "G":
		pnl.selected = pnl.total - 1

	case "left", "h":
		if pnl.selectedCol > 0 {
			pnl.selectedCol--
		}
		return pnl, nil

	case "right", "l":
		if pnl.selectedCol < len(pnl.colFmts)-1 {
			pnl.selectedCol++
		}
		return pnl, nil

	case "f":
		return pnl, pnl.filterCmd()

	case "p":
		return pnl, pnl.plotCmd()

	default:
		return pnl, nil
	}

	if pnl.selected < 0 {
		pnl.selected = 0
	}

	// keep selected record on the page
	oldOffset := pnl.offset
	if pnl.selected < pnl.offset {
		pnl.offset = pnl.selected
	} else if pnl.selected >= pnl.offset+pageSize {
		pnl.offset = pnl.selected - pageSize + 1
	}

	if pnl.offset != oldOffset {
		return pnl, message.GetPageCmd(pnl.offset, pageSize)
	}

	if len(pnl.lines) == 0 {
		return pnl, nil
	}
	return pnl, pnl.selectedCmd()
}

// Render renders the current page
func (pnl TablePanel) Render() string {

	pnl.table.StyleFunc(style.CellStyler(pnl.selectedLine(), pnl.selectedCol))

	pnl.table.ClearRows()
	for _, line := range pnl.lines {
		pnl.table.Row(pnl.row(line)...)
	}

	return pnl.table.String()
}

func (pnl TablePanel) View() tea.View {
	return tea.NewView(pnl.Render())
}

// SelectedId returns the id of the currently selected record
func (pnl TablePanel) SelectedId() (id string, err error) {

	line, err := pnl.selectedRecord()
	if err != nil {
		return
	}

	id = line.Id
	return
}

// Selected returns the absolute position of the selected record, and the total
func (pnl TablePanel) Selected() (selected, total int) {
	return pnl.selected, pnl.total
}

// Offset returns the offset of the page shown
func (pnl TablePanel) Offset() int {
	return pnl.offset
}

// PageSize returns the number of rows that fit on panel
func (pnl TablePanel) PageSize() int {
	return max(pnl.height-headerHeight, 0)
}

// unexported

func (pnl TablePanel) selectedLine() int {
	return pnl.selected - pnl.offset
}

func (pnl TablePanel) selectedRecord() (line nt.Line, err error) {

	selected := pnl.selectedLine()
	ln := len(pnl.lines)

	if selected < 0 || selected >= ln {
		err = errors.Errorf("index %d is out of bounds of %d lines", selected, ln)
		return
	}

	line = pnl.lines[selected]
	return
}

func (pnl TablePanel) selectedCell() (field string, value nt.Value, err error) {

	line, err := pnl.selectedRecord()
	if err != nil {
		return
	}

	if pnl.selectedCol >= len(pnl.colFmts) {
		err = errors.Errorf("no column selected")
		return
	}

	cf := pnl.colFmts[pnl.selectedCol]
	if cf.lineIdx >= len(line.Values) {
		err = errors.Errorf("column %s missing from record %s", cf.fieldName, line.Id)
		return
	}

	field = cf.fieldName
	value = line.Values[cf.lineIdx]
	return
}

func (pnl TablePanel) row(line nt.Line) []string {
	row := make([]string, len(pnl.colFmts))
	for i, cf := range pnl.colFmts {
		if cf.lineIdx >= len(line.Values) {
			continue
		}
		row[i] = truncate(cf.formatter(line.Values[cf.lineIdx]), cf.width)
	}
	return row
}

func (pnl TablePanel) setColumns(columns []nt.Column, fields []nt.Field) TablePanel {

	colFmts := []colFmt{}

	idxByName := map[string]int{}
	for i, field := range fields {
		idxByName[field.Name] = i
	}

	for _, col := range columns {
		if col.Hidden || col.Demote {
			continue
		}

		idx, ok := idxByName[col.Field]
		if !ok {
			pnl.logger.Info(pnl.ctx, "skipping column not in view", "field", col.Field)
			continue
		}

		colFmts = append(colFmts, colFmt{
			lineIdx:   idx,
			width:     col.Width,
			fieldName: col.Field,
			formatter: makeFormatter(fields[idx].Type, col.Format),
		})
	}

	var headers []string
	for _, cf := range colFmts {
		headers = append(headers, fmt.Sprintf("%-*s", cf.width+1, cf.fieldName))
	}

	pnl.table.Headers(headers...)
	pnl.colFmts = colFmts
	pnl.lines = nil // lines we had no longer match colFmts
	pnl.selectedCol = min(pnl.selectedCol, max(len(colFmts)-1, 0))

	return pnl
}

// help

func makeFormatter(fieldType, format string) func(nt.Value) string {
	if format != "" && fieldType == "TIMESTAMP" {
		return func(val nt.Value) string {
			t, err := val.Time()
			if err == nil {
				return t.Format(format)
			}
			return val.String()
		}
	}

	if format != "" {
		return func(val nt.Value) string {
			num, err := val.Number()
			if err == nil {
				return fmt.Sprintf(format, num)
			}
			return val.String()
		}
	}

	return func(v nt.Value) string {
		return v.String()
	}
}

func truncate(in string, width int) string {

	runes := []rune(in)
	if width < 1 || len(runes) <= width {
		return in
	}

	return string(runes[:width-1]) + style.MutedStyle.Render("…")
}
