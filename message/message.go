package message

import nt "opgateway/entity"

// ErrorMsg contains an error
type ErrorMsg struct {
	Err error
}

// GetPageMsg signals to load a page of records
type GetPageMsg struct {
	Offset int
	Size   int
}

// SelectedMsg reports the record under the table cursor
type SelectedMsg struct {
	Row int
	Id  string
}

// CountMsg reports the number of records in the current view
type CountMsg struct {
	Count int
}

// OpenFilterMsg asks the filter dialog to start a filter on a channel
type OpenFilterMsg struct {
	Channel string
	Value   string
}

// SetFiltersMsg carries the filters to apply to the view
type SetFiltersMsg struct {
	Filters []nt.Filter
}

// SaveFavouriteMsg asks for a filter to be persisted under a name
type SaveFavouriteMsg struct {
	Name   string
	Tokens []nt.Token
}

// GetFavouritesMsg asks for the saved favourites
type GetFavouritesMsg struct{}

// FavouritesMsg delivers the saved favourites
type FavouritesMsg struct {
	Favourites []nt.Favourite
}

// TogglePlotMsg asks for a channel to be added to or removed from the plot
type TogglePlotMsg struct {
	Channel string
}

// CloseMsg signals an overlay is done
type CloseMsg struct{}
