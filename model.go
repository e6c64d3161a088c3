package opgateway

import (
	"context"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"opgateway/colour"
	"opgateway/detail"
	nt "opgateway/entity"
	"opgateway/filter"
	"opgateway/message"
	"opgateway/plot"
	"opgateway/table"
)

const (
	footerHeight = 2
)

// Options locate the files the explorer reads and writes
type Options struct {
	Layout  string `yaml:"layout"`
	Session string `yaml:"session"`
	Export  string `yaml:"export"`
}

// Model is the bubbletea model for the records explorer.
type Model struct {
	Store   Store
	Layout  *Layout
	Options Options

	logger nt.Logger
	ctx    context.Context

	errorString  string
	statusString string

	CurrentScreen Screen
	filterOpen    bool
	filters       []nt.Filter // applied
	selectedRow   int
	selectedId    string

	TablePanel  table.TablePanel
	DetailPanel detail.DetailPanel
	FilterPanel filter.FilterPanel
	PlotPanel   plot.PlotPanel

	Width  int
	Height int
}

// NewModel creates a new bt model.
func NewModel(ctx context.Context, store Store, opts Options, lgr nt.Logger) (model Model, err error) {

	layout, err := LoadLayout(opts.Layout)
	if err != nil {
		return
	}

	err = promote(store, layout.Columns)
	if err != nil {
		return
	}

	err = setView(store, layout.Filters, layout.Sorts)
	if err != nil {
		return
	}

	channels, err := store.Channels()
	if err != nil {
		return
	}

	fields, count, err := store.GetView()
	if err != nil {
		return
	}

	model = Model{
		Store:         store,
		Layout:        layout,
		Options:       opts,
		logger:        lgr,
		ctx:           ctx,
		CurrentScreen: TableScreen,
		filters:       layout.Filters,
		TablePanel:    table.NewTablePanel(ctx, layout.Columns, fields, count, lgr),
		DetailPanel:   detail.NewDetailPanel(layout.Columns),
		FilterPanel:   filter.NewFilterPanel(ctx, channels, lgr).SetFilters(layout.Filters),
		PlotPanel:     plot.NewPlotPanel(ctx, channels, colour.New(), lgr),
	}

	lgr.Info(ctx, "model created", "source", store.Name(), "records", count, "channels", len(channels))
	return
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {

	switch msg := msg.(type) {

	case message.GetPageMsg:
		return m, m.getPage(msg.Offset, msg.Size)

	case message.SelectedMsg:
		m.selectedRow = msg.Row
		m.selectedId = msg.Id
		if m.CurrentScreen == DetailScreen {
			return m, m.getLine(msg.Id)
		}
		return m, nil

	case message.ErrorMsg:
		m.logger.Error(m.ctx, "error msg", msg.Err)
		m.errorString = msg.Err.Error()
		return m, nil

	case statusMsg:
		m.statusString = string(msg)
		return m, nil

	case message.SetFiltersMsg:
		return m.applyFilters(msg.Filters)

	case message.CloseMsg:
		m.filterOpen = false
		return m, nil

	case message.OpenFilterMsg:
		m.filterOpen = true
		return m.updateFilter(msg)

	case message.SaveFavouriteMsg:
		return m, m.saveFavourite(msg)

	case message.GetFavouritesMsg:
		return m, m.getFavourites()

	case message.FavouritesMsg:
		return m.updateFilter(msg)

	case message.TogglePlotMsg, plot.SeriesMsg, plot.WindowMsg:
		return m.updatePlot(msg)

	case plot.GetSeriesMsg:
		return m, m.getSeries(msg)

	case table.PageMsg, table.ResetMsg, table.ColumnsMsg:
		return m.updateTable(msg)

	case detail.RecordMsg, detail.ColumnsMsg:
		return m.updateDetail(msg)

	case tea.KeyPressMsg:
		m.errorString = ""
		m.statusString = ""

		if m.filterOpen {
			return m.updateFilter(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		height := msg.Height - footerHeight

		var cmds [4]tea.Cmd
		m.DetailPanel, cmds[0] = update(m.DetailPanel, detail.SizeMsg{Width: msg.Width, Height: height})
		m.FilterPanel, cmds[1] = update(m.FilterPanel, filter.SizeMsg{Width: msg.Width, Height: height})
		m.PlotPanel, cmds[2] = update(m.PlotPanel, plot.SizeMsg{Width: msg.Width, Height: height})
		m.TablePanel, cmds[3] = update(m.TablePanel, table.SizeMsg{Width: msg.Width, Height: height})
		return m, tea.Batch(cmds[:]...)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc":
		if m.CurrentScreen != TableScreen {
			return m.switchTo(TableScreen)
		}
		return m, tea.Quit

	case "/":
		m.filterOpen = true
		return m, nil

	case "enter":
		if m.CurrentScreen == TableScreen {
			return m.switchTo(DetailScreen)
		}

	case "v":
		if m.CurrentScreen == PlotScreen {
			return m.switchTo(TableScreen)
		}
		return m.switchTo(PlotScreen)

	case "r":
		return m.reloadColumns()

	case "s":
		return m, m.saveSession()

	case "L":
		return m.loadSession()

	case "x":
		return m, m.exportView()
	}

	switch m.CurrentScreen {
	case DetailScreen:
		return m.updateDetail(msg)
	case PlotScreen:
		return m.updatePlot(msg)
	}
	return m.updateTable(msg)
}

func (m Model) switchTo(screen Screen) (tea.Model, tea.Cmd) {

	m.CurrentScreen = screen
	m.DetailPanel.Focused = screen == DetailScreen

	if screen == DetailScreen && m.selectedId != "" {
		return m, m.getLine(m.selectedId)
	}
	return m, nil
}

func (m Model) updateTable(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.TablePanel, cmd = update(m.TablePanel, msg)
	return m, cmd
}

func (m Model) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.DetailPanel, cmd = update(m.DetailPanel, msg)
	return m, cmd
}

func (m Model) updateFilter(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.FilterPanel, cmd = update(m.FilterPanel, msg)
	return m, cmd
}

func (m Model) updatePlot(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.PlotPanel, cmd = update(m.PlotPanel, msg)
	return m, cmd
}

// update relays msg to a panel, keeping its concrete type
func update[P tea.Model](pnl P, msg tea.Msg) (P, tea.Cmd) {
	model, cmd := pnl.Update(msg)
	return model.(P), cmd
}

func (m Model) View() tea.View {
	if m.Width == 0 {
		return tea.NewView("Loading...")
	}

	var screenContent string
	switch m.CurrentScreen {
	case DetailScreen:
		screenContent = m.DetailPanel.Render()
	case PlotScreen:
		screenContent = m.PlotPanel.Render()
	default:
		screenContent = m.TablePanel.Render()
	}

	selected, total := m.TablePanel.Selected()
	current := selected + 1
	if total == 0 {
		current = 0
	}

	footerMsg := m.statusString
	if m.errorString != "" {
		footerMsg = m.errorString
	}

	enabled := 0
	for _, flt := range m.filters {
		if flt.Enabled && len(flt.Tokens) > 0 {
			enabled++
		}
	}
	footerContent := RenderFooter(current, total, enabled, m.Store.Name(), footerMsg, m.Width)

	canvas := lipgloss.NewCanvas(m.Width, m.Height)
	canvas.Compose(lipgloss.NewLayer("screen", screenContent))
	if m.filterOpen {
		canvas.Compose(m.FilterPanel.Layer())
	}
	canvas.Compose(lipgloss.NewLayer("footer", footerContent).Y(m.Height - footerHeight))

	view := tea.NewView(canvas)
	view.AltScreen = true
	return view
}
