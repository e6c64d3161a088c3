package opgateway

import (
	"fmt"

	tea "charm.land/bubbletea/v2"

	"opgateway/detail"
	nt "opgateway/entity"
	"opgateway/export"
	"opgateway/expr"
	"opgateway/message"
	"opgateway/plot"
	"opgateway/table"
)

// statusMsg is shown in the footer until the next key
type statusMsg string

func statusCmd(format string, args ...any) tea.Cmd {
	return func() tea.Msg {
		return statusMsg(fmt.Sprintf(format, args...))
	}
}

// getPage gets a page of records from the store and moves the plot window with it
func (m Model) getPage(offset, size int) tea.Cmd {

	store := m.Store
	return func() tea.Msg {

		_, count, err := store.GetView()
		if err != nil {
			return message.ErrorMsg{Err: err}
		}

		lines, err := store.GetPage(offset, size)
		if err != nil {
			return message.ErrorMsg{Err: err}
		}

		return tea.BatchMsg{
			func() tea.Msg { return table.PageMsg{Lines: lines, Count: count} },
			func() tea.Msg { return plot.WindowMsg{Offset: offset, Size: size} },
		}
	}
}

// getLine gets a full record from the store
func (m Model) getLine(id string) tea.Cmd {

	store := m.Store
	return func() tea.Msg {
		line, err := store.GetLine(id)
		if err != nil {
			return message.ErrorMsg{Err: err}
		}
		return detail.RecordMsg{Record: line}
	}
}

// getSeries gets the values of each channel over the plot window
func (m Model) getSeries(msg plot.GetSeriesMsg) tea.Cmd {

	store := m.Store
	var cmds []tea.Cmd
	for _, channel := range msg.Channels {
		cmds = append(cmds, func() tea.Msg {
			values, err := store.GetSeries(channel, msg.Offset, msg.Size)
			if err != nil {
				return message.ErrorMsg{Err: err}
			}
			return plot.SeriesMsg{Channel: channel, Values: values}
		})
	}
	return tea.Batch(cmds...)
}

// setView compiles filters into conditions and applies them with sorts
func setView(store Store, filters []nt.Filter, sorts []nt.Sort) (err error) {

	cond, ok, err := expr.Conditions(filters)
	if err != nil {
		return
	}
	if !ok {
		cond = nil
	}

	err = store.SetView(cond, sorts)
	return
}

// applyFilters sets the view and resets the table to the first record
func (m Model) applyFilters(filters []nt.Filter) (Model, tea.Cmd) {

	err := setView(m.Store, filters, m.Layout.Sorts)
	if err != nil {
		return m, message.ErrorCmd(err)
	}

	m.filters = filters
	m.logger.Info(m.ctx, "filters applied", "filters", len(filters))
	return m, func() tea.Msg { return table.ResetMsg{} }
}

func (m Model) saveFavourite(msg message.SaveFavouriteMsg) tea.Cmd {

	store := m.Store
	return func() tea.Msg {
		fav, err := store.SaveFavourite(msg.Name, msg.Tokens)
		if err != nil {
			return message.ErrorMsg{Err: err}
		}
		return statusMsg(fmt.Sprintf("saved favourite %q", fav.Name))
	}
}

func (m Model) getFavourites() tea.Cmd {

	store := m.Store
	return func() tea.Msg {
		favs, err := store.Favourites()
		if err != nil {
			return message.ErrorMsg{Err: err}
		}
		return message.FavouritesMsg{Favourites: favs}
	}
}

// setColumns promotes columns and sends them to the panels
func (m Model) setColumns(columns []nt.Column) tea.Cmd {

	err := promote(m.Store, columns)
	if err != nil {
		return message.ErrorCmd(err)
	}

	fields, _, err := m.Store.GetView()
	if err != nil {
		return message.ErrorCmd(err)
	}

	return tea.Batch(
		func() tea.Msg {
			return table.ColumnsMsg{Columns: columns, Fields: fields}
		},
		func() tea.Msg {
			return detail.ColumnsMsg{Columns: columns}
		},
	)
}

// reloadColumns loads the layout file again
func (m Model) reloadColumns() (Model, tea.Cmd) {

	layout, err := LoadLayout(m.Options.Layout)
	if err != nil {
		return m, message.ErrorCmd(err)
	}

	m.Layout.Columns = layout.Columns
	return m, m.setColumns(layout.Columns)
}

// exportView writes the current view to the export file
func (m Model) exportView() tea.Cmd {

	store, columns, path := m.Store, m.Layout.Columns, m.Options.Export
	return func() tea.Msg {
		count, err := export.Write(store, columns, path)
		if err != nil {
			return message.ErrorMsg{Err: err}
		}
		return statusMsg(fmt.Sprintf("exported %d records to %s", count, path))
	}
}

func (m Model) session() Session {
	return Session{
		Source:  m.Store.Name(),
		Columns: m.Layout.Columns,
		Filters: m.filters,
		Sorts:   m.Layout.Sorts,
		Plots:   m.PlotPanel.Plotted(),
	}
}

func (m Model) saveSession() tea.Cmd {

	err := SaveSession(m.session(), m.Options.Session)
	if err != nil {
		return message.ErrorCmd(err)
	}
	return statusCmd("saved session to %s", m.Options.Session)
}

// loadSession restores columns, filters and plotted channels
func (m Model) loadSession() (Model, tea.Cmd) {

	session, err := LoadSession(m.Options.Session)
	if err != nil {
		return m, message.ErrorCmd(err)
	}

	if len(session.Columns) > 0 {
		m.Layout.Columns = session.Columns
	}
	m.Layout.Sorts = session.Sorts
	m.FilterPanel = m.FilterPanel.SetFilters(session.Filters)

	m, applyCmd := m.applyFilters(session.Filters)
	cmds := []tea.Cmd{m.setColumns(m.Layout.Columns), applyCmd}

	// toggle the difference between what is plotted and what was saved
	plotted := map[string]bool{}
	for _, name := range m.PlotPanel.Plotted() {
		plotted[name] = true
	}
	wanted := map[string]bool{}
	for _, name := range session.Plots {
		wanted[name] = true
		if !plotted[name] {
			cmds = append(cmds, togglePlotCmd(name))
		}
	}
	for name := range plotted {
		if !wanted[name] {
			cmds = append(cmds, togglePlotCmd(name))
		}
	}

	cmds = append(cmds, statusCmd("loaded session from %s", m.Options.Session))
	return m, tea.Sequence(cmds...)
}

func togglePlotCmd(channel string) tea.Cmd {
	return func() tea.Msg {
		return message.TogglePlotMsg{Channel: channel}
	}
}
