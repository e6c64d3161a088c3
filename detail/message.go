package detail

import nt "opgateway/entity"

type SizeMsg struct {
	Width  int
	Height int
}

// RecordMsg delivers the full record selected in the table
type RecordMsg struct {
	Record map[string]any
}

// ColumnsMsg carries the layout, whose json flagged fields are shown parsed
type ColumnsMsg struct {
	Columns []nt.Column
}
