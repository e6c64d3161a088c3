package table

import nt "opgateway/entity"

type SizeMsg struct {
	Width  int
	Height int
}

// PageMsg carries a page of records and the record count of the view
type PageMsg struct {
	Lines []nt.Line
	Count int
}

// ColumnsMsg replaces the layout; Fields are the promoted fields the store now serves
type ColumnsMsg struct {
	Columns []nt.Column
	Fields  []nt.Field
}

// ResetMsg follows a filter change: back to the first record of the new view.
type ResetMsg struct{}
