package opgateway

import (
	"github.com/pkg/errors"

	nt "opgateway/entity"
	"opgateway/util"
)

// Layout is the table layout and starting view, read from yaml
type Layout struct {
	Columns []nt.Column `yaml:"columns"`
	Filters []nt.Filter `yaml:"filters,omitempty"`
	Sorts   []nt.Sort   `yaml:"sorts,omitempty"`
}

// LoadLayout reads a layout file, an empty path giving the default layout
func LoadLayout(path string) (layout *Layout, err error) {

	layout = &Layout{}
	if path == "" {
		layout.Columns = DefaultColumns()
		return
	}

	err = util.LoadConfig(layout, path)
	if err != nil {
		err = errors.Wrapf(err, "failed to load layout")
		return
	}

	if len(layout.Columns) == 0 {
		layout.Columns = DefaultColumns()
	}
	return
}

// DefaultColumns shows the record metadata
func DefaultColumns() []nt.Column {
	return []nt.Column{
		{Field: "id", Hidden: true},
		{Field: "shotnum", Width: 10},
		{Field: "timestamp", Width: 19, Format: "2006-01-02 15:04:05"},
		{Field: "activeArea", Width: 12},
		{Field: "activeExperiment", Width: 18},
	}
}

// promote promotes the layout's columns that are not yet in the view
func promote(store Store, columns []nt.Column) (err error) {

	fields, _, err := store.GetView()
	if err != nil {
		return
	}

	promoted := make(map[string]bool)
	for _, f := range fields {
		promoted[f.Name] = true
	}

	for _, col := range columns {
		if promoted[col.Field] || col.Demote {
			continue
		}

		err = store.Promote(col.Field)
		if err != nil {
			return
		}
	}
	return
}
