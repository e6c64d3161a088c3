package table

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"

	nt "opgateway/entity"
	"opgateway/message"
)

type testLogger struct{}

func (testLogger) Info(ctx context.Context, msg string, kv ...any)             {}
func (testLogger) Error(ctx context.Context, msg string, err error, kv ...any) {}

var (
	fields = []nt.Field{
		{Name: "id", Type: "VARCHAR"},
		{Name: "shotnum", Type: "BIGINT"},
		{Name: "CHANNEL_ABCDE", Type: "VARCHAR"},
	}
	columns = []nt.Column{
		{Field: "shotnum", Width: 8},
		{Field: "id", Hidden: true},
		{Field: "CHANNEL_ABCDE", Width: 12},
		{Field: "missing", Width: 4},
	}
)

func page(ids ...string) PageMsg {
	var lines []nt.Line
	for i, id := range ids {
		lines = append(lines, nt.Line{
			Id:     id,
			Values: []nt.Value{{Raw: id}, {Raw: int64(i + 1)}, {Raw: "5.5"}},
		})
	}
	return PageMsg{Lines: lines, Count: 10}
}

func update(t *testing.T, pnl TablePanel, msg tea.Msg) (TablePanel, tea.Msg) {
	t.Helper()

	model, cmd := pnl.Update(msg)
	pnl = model.(TablePanel)
	if cmd == nil {
		return pnl, nil
	}
	return pnl, cmd()
}

func sized(t *testing.T) TablePanel {
	t.Helper()

	pnl := NewTablePanel(context.Background(), columns, fields, 10, testLogger{})
	pnl, out := update(t, pnl, SizeMsg{Width: 80, Height: 5})

	get, ok := out.(message.GetPageMsg)
	if !ok || get.Offset != 0 || get.Size != 3 {
		t.Fatalf("unexpected page request: %#v", out)
	}
	return pnl
}

func TestSetColumnsSkipsHiddenAndUnknown(t *testing.T) {
	pnl := sized(t)

	if len(pnl.colFmts) != 2 {
		t.Fatalf("got %d columns, want 2", len(pnl.colFmts))
	}
	if pnl.colFmts[0].fieldName != "shotnum" || pnl.colFmts[1].lineIdx != 2 {
		t.Errorf("unexpected columns: %+v", pnl.colFmts)
	}
}

func TestNavigation(t *testing.T) {
	pnl := sized(t)

	pnl, out := update(t, pnl, page("a", "b", "c"))
	if sel, ok := out.(message.SelectedMsg); !ok || sel.Id != "a" || sel.Row != 1 {
		t.Fatalf("unexpected selection: %#v", out)
	}

	pnl, out = update(t, pnl, tea.KeyPressMsg{Code: tea.KeyDown})
	if sel, ok := out.(message.SelectedMsg); !ok || sel.Id != "b" || sel.Row != 2 {
		t.Fatalf("unexpected selection: %#v", out)
	}

	pnl, _ = update(t, pnl, tea.KeyPressMsg{Code: tea.KeyDown})
	pnl, out = update(t, pnl, tea.KeyPressMsg{Code: tea.KeyDown})
	if get, ok := out.(message.GetPageMsg); !ok || get.Offset != 1 || get.Size != 3 {
		t.Fatalf("expected next page request, got %#v", out)
	}

	selected, total := pnl.Selected()
	if selected != 3 || total != 10 || pnl.Offset() != 1 {
		t.Errorf("selected %d of %d at offset %d", selected, total, pnl.Offset())
	}

	pnl, out = update(t, pnl, ResetMsg{})
	if get, ok := out.(message.GetPageMsg); !ok || get.Offset != 0 {
		t.Errorf("expected first page request, got %#v", out)
	}
	if selected, _ = pnl.Selected(); selected != 0 {
		t.Errorf("selected = %d after reset", selected)
	}
}

func TestFilterAndPlotSelectedCell(t *testing.T) {
	pnl := sized(t)
	pnl, _ = update(t, pnl, page("a", "b"))

	_, out := update(t, pnl, tea.KeyPressMsg{Code: 'f', Text: "f"})
	open, ok := out.(message.OpenFilterMsg)
	if !ok || open.Channel != "shotnum" || open.Value != "1" {
		t.Fatalf("unexpected filter request: %#v", out)
	}

	pnl, _ = update(t, pnl, tea.KeyPressMsg{Code: tea.KeyRight})
	_, out = update(t, pnl, tea.KeyPressMsg{Code: 'p', Text: "p"})
	plot, ok := out.(message.TogglePlotMsg)
	if !ok || plot.Channel != "CHANNEL_ABCDE" {
		t.Errorf("unexpected plot request: %#v", out)
	}
}

func TestSelectedIdWithoutLines(t *testing.T) {
	pnl := sized(t)

	_, err := pnl.SelectedId()
	if err == nil {
		t.Error("expected error with no lines")
	}
}

func TestFormatters(t *testing.T) {
	tests := []struct {
		name      string
		fieldType string
		format    string
		value     nt.Value
		expect    string
	}{
		{name: "plain", fieldType: "VARCHAR", value: nt.Value{Raw: "x"}, expect: "x"},
		{name: "number format", fieldType: "VARCHAR", format: "%.1f", value: nt.Value{Raw: "2.75"}, expect: "2.8"},
		{name: "number format on text", fieldType: "VARCHAR", format: "%.1f", value: nt.Value{Raw: "abc"}, expect: "abc"},
		{name: "nil", fieldType: "VARCHAR", value: nt.Value{}, expect: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := makeFormatter(tt.fieldType, tt.format)(tt.value)
			if got != tt.expect {
				t.Errorf("got %q, want %q", got, tt.expect)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("much too long", 5); len([]rune(got)) < 4 || got[:4] != "much" {
		t.Errorf("got %q", got)
	}
}
