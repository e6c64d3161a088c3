package filter

// SizeMsg is the area the dialog is centred in.
type SizeMsg struct {
	Width  int
	Height int
}
