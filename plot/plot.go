package plot

import (
	"context"
	"fmt"
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"

	"opgateway/colour"
	nt "opgateway/entity"
	"opgateway/message"
	"opgateway/style"
)

const labelWidth = 24

// Trace is a channel selected for plotting
type Trace struct {
	Channel string
	Colour  string
	Values  []nt.Value
}

// PlotPanel selects channels and draws their values over a window of records
type PlotPanel struct {
	channels []nt.Channel
	cursor   int

	generator *colour.Generator
	traces    []Trace

	offset int
	size   int

	width  int
	height int

	ctx    context.Context
	logger nt.Logger
}

func NewPlotPanel(ctx context.Context, channels []nt.Channel, gen *colour.Generator, lgr nt.Logger) PlotPanel {
	return PlotPanel{
		channels:  channels,
		generator: gen,
		ctx:       ctx,
		logger:    lgr,
	}
}

func (pnl PlotPanel) Init() tea.Cmd {
	return nil
}

// Traces returns the plotted channels in selection order
func (pnl PlotPanel) Traces() []Trace {
	return pnl.traces
}

// Plotted returns the names of the plotted channels
func (pnl PlotPanel) Plotted() []string {
	names := make([]string, len(pnl.traces))
	for i, trc := range pnl.traces {
		names[i] = trc.Channel
	}
	return names
}

func (pnl PlotPanel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case SizeMsg:
		pnl.width = msg.Width
		pnl.height = msg.Height

	case WindowMsg:
		pnl.offset = msg.Offset
		pnl.size = msg.Size
		return pnl, pnl.seriesCmd(pnl.Plotted()...)

	case SeriesMsg:
		idx := pnl.trace(msg.Channel)
		if idx >= 0 {
			pnl.traces[idx].Values = msg.Values
		}

	case message.TogglePlotMsg:
		return pnl.toggle(msg.Channel)

	case tea.KeyPressMsg:
		switch msg.String() {
		case "up", "k":
			pnl.cursor = max(pnl.cursor-1, 0)

		case "down", "j":
			pnl.cursor = min(pnl.cursor+1, len(pnl.channels)-1)

		case "space", "enter":
			if pnl.cursor < len(pnl.channels) {
				return pnl.toggle(pnl.channels[pnl.cursor].Name)
			}
		}
	}

	return pnl, nil
}

// toggle adds a channel with the next colour, or removes it returning its colour
func (pnl PlotPanel) toggle(channel string) (tea.Model, tea.Cmd) {

	idx := pnl.trace(channel)
	if idx >= 0 {
		pnl.generator.Remove(pnl.traces[idx].Colour)
		pnl.traces = slices.Delete(slices.Clone(pnl.traces), idx, idx+1)
		pnl.logger.Info(pnl.ctx, "removed plot channel", "channel", channel)
		return pnl, nil
	}

	trc := Trace{Channel: channel, Colour: pnl.generator.Next()}
	pnl.traces = append(slices.Clone(pnl.traces), trc)
	pnl.logger.Info(pnl.ctx, "added plot channel", "channel", channel, "colour", trc.Colour)

	return pnl, pnl.seriesCmd(channel)
}

func (pnl PlotPanel) seriesCmd(channels ...string) tea.Cmd {

	if len(channels) == 0 || pnl.size < 1 {
		return nil
	}

	offset, size := pnl.offset, pnl.size
	return func() tea.Msg {
		return GetSeriesMsg{Channels: channels, Offset: offset, Size: size}
	}
}

func (pnl PlotPanel) trace(channel string) int {
	return slices.IndexFunc(pnl.traces, func(trc Trace) bool {
		return trc.Channel == channel
	})
}

// Render renders the channel list beside the traces
func (pnl PlotPanel) Render() string {

	var sb strings.Builder

	fmt.Fprintf(&sb, "Records %d to %d\n\n", pnl.offset+1, pnl.offset+pnl.size)
	for _, trc := range pnl.traces {
		label := fmt.Sprintf("%-*s", labelWidth, trim(pnl.display(trc.Channel), labelWidth))
		line, lo, hi, ok := Sparkline(trc.Values, pnl.width-labelWidth-24)
		if !ok {
			line = style.MutedStyle.Render("no numeric values")
		} else {
			line = style.Trace(trc.Colour).Render(line) +
				style.MutedStyle.Render(fmt.Sprintf("  %.4g..%.4g", lo, hi))
		}
		sb.WriteString(style.Trace(trc.Colour).Render(label) + line + "\n")
	}

	sb.WriteString("\nChannels:\n")
	first, last := pnl.listWindow(len(pnl.traces) + 6)
	for i := first; i < last; i++ {
		ch := pnl.channels[i]

		prefix := "  "
		if i == pnl.cursor {
			prefix = "> "
		}
		mark := "[ ]"
		if idx := pnl.trace(ch.Name); idx >= 0 {
			mark = style.Trace(pnl.traces[idx].Colour).Render("[■]")
		}
		sb.WriteString(prefix + mark + " " + ch.Display() + "\n")
	}

	sb.WriteString("\n" + style.MutedStyle.Render("↑↓: choose  Space: plot/unplot  Esc: back"))
	return sb.String()
}

func (pnl PlotPanel) View() tea.View {
	return tea.NewView(pnl.Render())
}

// unexported

func (pnl PlotPanel) display(channel string) string {
	for _, ch := range pnl.channels {
		if ch.Name == channel {
			return ch.Display()
		}
	}
	return channel
}

// listWindow returns the range of channels that fits below the traces
func (pnl PlotPanel) listWindow(used int) (first, last int) {

	rows := len(pnl.channels)
	if pnl.height > 0 {
		rows = max(pnl.height-used, 1)
	}

	first = max(pnl.cursor-rows+1, 0)
	last = min(first+rows, len(pnl.channels))
	return
}

func trim(in string, width int) string {
	runes := []rune(in)
	if len(runes) <= width {
		return in
	}
	return string(runes[:width-1]) + "…"
}
