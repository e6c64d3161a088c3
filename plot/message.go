package plot

import nt "opgateway/entity"

type PlotMsg interface {
	isPlotMsg()
}

func (SizeMsg) isPlotMsg()      {}
func (SeriesMsg) isPlotMsg()    {}
func (GetSeriesMsg) isPlotMsg() {}
func (WindowMsg) isPlotMsg()    {}

type SizeMsg struct {
	Width  int
	Height int
}

// GetSeriesMsg asks for channel values over a window of the view
type GetSeriesMsg struct {
	Channels []string
	Offset   int
	Size     int
}

// SeriesMsg delivers a channel's values
type SeriesMsg struct {
	Channel string
	Values  []nt.Value
}

// WindowMsg moves the window of records plotted
type WindowMsg struct {
	Offset int
	Size   int
}
