package opgateway

import (
	nt "opgateway/entity"
)

// Store specifies a backing datastore of experiment records.
type Store interface {
	// Name returns the name of the data source
	Name() string
	// Channels lists the channels known to the source, metadata fields first
	Channels() (channels []nt.Channel, err error)
	// Promote a channel to a table column
	Promote(field string) (err error)
	// SetView Conditions and Sort(s), nil conditions selects every record
	SetView(conditions nt.Condition, sorts []nt.Sort) (err error)
	// GetView fields and count
	GetView() (fields []nt.Field, count int, err error)
	// GetPage of records
	GetPage(offset, size int) (lines []nt.Line, err error)
	// GetLine returns the full record
	GetLine(id string) (data map[string]any, err error)
	// GetSeries returns a channel's values for a page of records
	GetSeries(channel string, offset, size int) (values []nt.Value, err error)
	// Favourites lists saved filters
	Favourites() (favs []nt.Favourite, err error)
	// SaveFavourite saves a named filter
	SaveFavourite(name string, tokens []nt.Token) (fav nt.Favourite, err error)
}
