package opgateway

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	nt "opgateway/entity"
	"opgateway/expr"
	"opgateway/message"
	"opgateway/table"
)

type testLogger struct{}

func (testLogger) Info(ctx context.Context, msg string, kv ...any)             {}
func (testLogger) Error(ctx context.Context, msg string, err error, kv ...any) {}

type fakeStore struct {
	fields     []nt.Field
	lines      []nt.Line
	conditions nt.Condition
	sorts      []nt.Sort
	favs       []nt.Favourite
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		fields: []nt.Field{{Name: "id"}, {Name: "shotnum"}, {Name: "timestamp"}, {Name: "activeArea"}, {Name: "activeExperiment"}},
		lines: []nt.Line{
			{Id: "a", Values: []nt.Value{{Raw: "a"}, {Raw: int64(1)}, {}, {}, {}}},
			{Id: "b", Values: []nt.Value{{Raw: "b"}, {Raw: int64(2)}, {}, {}, {}}},
		},
	}
}

func (fs *fakeStore) Name() string { return "fake" }
func (fs *fakeStore) Channels() ([]nt.Channel, error) {
	return slices.Concat(nt.MetadataChannels, []nt.Channel{{Name: "CH_A"}}), nil
}
func (fs *fakeStore) Promote(field string) error {
	fs.fields = append(fs.fields, nt.Field{Name: field})
	return nil
}
func (fs *fakeStore) SetView(conditions nt.Condition, sorts []nt.Sort) error {
	fs.conditions, fs.sorts = conditions, sorts
	return nil
}
func (fs *fakeStore) GetView() ([]nt.Field, int, error) { return fs.fields, len(fs.lines), nil }
func (fs *fakeStore) GetPage(offset, size int) ([]nt.Line, error) {
	return fs.lines[min(offset, len(fs.lines)):min(offset+size, len(fs.lines))], nil
}
func (fs *fakeStore) GetLine(id string) (map[string]any, error) {
	return map[string]any{"_id": id}, nil
}
func (fs *fakeStore) GetSeries(channel string, offset, size int) ([]nt.Value, error) {
	return []nt.Value{{Raw: 1.0}, {Raw: 2.0}}, nil
}
func (fs *fakeStore) Favourites() ([]nt.Favourite, error) { return fs.favs, nil }
func (fs *fakeStore) SaveFavourite(name string, tokens []nt.Token) (nt.Favourite, error) {
	fav := nt.Favourite{Id: name, Name: name, Tokens: tokens}
	fs.favs = append(fs.favs, fav)
	return fav, nil
}

const layoutYaml = `
columns:
  - field: shotnum
    width: 8
  - field: CH_A
    width: 10
filters:
  - enabled: true
    tokens:
      - {type: channel, value: shotnum, label: Shot Number}
      - {type: compop, value: is not null, label: is not null}
`

func newModel(t *testing.T) (Model, *fakeStore) {
	t.Helper()

	dir := t.TempDir()
	layoutPath := filepath.Join(dir, "layout.yaml")
	err := os.WriteFile(layoutPath, []byte(layoutYaml), 0644)
	if err != nil {
		t.Fatal(err)
	}

	store := newFakeStore()
	opts := Options{
		Layout:  layoutPath,
		Session: filepath.Join(dir, "session.yaml"),
		Export:  filepath.Join(dir, "export.csv"),
	}

	model, err := NewModel(context.Background(), store, opts, testLogger{})
	if err != nil {
		t.Fatalf("failed to create model: %v", err)
	}
	return model, store
}

func step(m Model, msg tea.Msg) (Model, tea.Cmd) {
	model, cmd := m.Update(msg)
	return model.(Model), cmd
}

// drain runs commands to completion, feeding their messages back to the model.
// Sequenced commands are opaque and dropped.
func drain(m Model, cmd tea.Cmd) Model {

	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}

		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case nil:
		default:
			var out tea.Cmd
			m, out = step(m, msg)
			queue = append(queue, out)
		}
	}
	return m
}

func TestNewModelAppliesLayout(t *testing.T) {
	_, store := newModel(t)

	if store.fields[len(store.fields)-1].Name != "CH_A" {
		t.Errorf("expected CH_A promoted, fields %+v", store.fields)
	}

	expect := `{"$and":[{"metadata.shotnum":{"$ne":null}}]}`
	got, err := expr.Encode(store.conditions)
	if err != nil || got != expect {
		t.Errorf("conditions = %s, %v", got, err)
	}
}

func TestSetFiltersResetsView(t *testing.T) {
	m, store := newModel(t)
	m = drain(m, func() tea.Msg { return tea.WindowSizeMsg{Width: 100, Height: 20} })

	_, cmd := step(m, message.SetFiltersMsg{Filters: nil})
	if _, ok := cmd().(table.ResetMsg); !ok {
		t.Error("expected table reset")
	}
	if store.conditions != nil {
		t.Errorf("expected no conditions, got %v", store.conditions)
	}
}

func TestPageSelectsFirstRecord(t *testing.T) {
	m, _ := newModel(t)
	m = drain(m, func() tea.Msg { return tea.WindowSizeMsg{Width: 100, Height: 20} })

	if m.selectedId != "a" || m.selectedRow != 1 {
		t.Errorf("selected %q row %d", m.selectedId, m.selectedRow)
	}

	m, _ = step(m, tea.KeyPressMsg{Code: '/', Text: "/"})
	if !m.filterOpen {
		t.Fatal("expected filter dialog open")
	}

	m, cmd := step(m, tea.KeyPressMsg{Code: tea.KeyEscape})
	m = drain(m, cmd)
	if m.filterOpen {
		t.Error("expected filter dialog closed")
	}
}

func TestDetailScreenFetchesSelected(t *testing.T) {
	m, _ := newModel(t)
	m = drain(m, func() tea.Msg { return tea.WindowSizeMsg{Width: 100, Height: 20} })

	m, cmd := step(m, tea.KeyPressMsg{Code: tea.KeyEnter})
	m = drain(m, cmd)

	if m.CurrentScreen != DetailScreen || !m.DetailPanel.Focused {
		t.Fatalf("expected detail screen")
	}
	if m.DetailPanel.Render() == "Loading full record..." {
		t.Error("expected record loaded")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	m, store := newModel(t)
	m = drain(m, func() tea.Msg { return tea.WindowSizeMsg{Width: 100, Height: 20} })

	m, cmd := step(m, message.TogglePlotMsg{Channel: "CH_A"})
	m = drain(m, cmd)

	m, cmd = step(m, tea.KeyPressMsg{Code: 's', Text: "s"})
	m = drain(m, cmd)
	if m.errorString != "" {
		t.Fatalf("unexpected error: %s", m.errorString)
	}

	session, err := LoadSession(m.Options.Session)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Source != "fake" || len(session.Filters) != 1 || len(session.Plots) != 1 || session.Plots[0] != "CH_A" {
		t.Errorf("unexpected session: %+v", session)
	}

	session.Filters = nil
	err = SaveSession(session, m.Options.Session)
	if err != nil {
		t.Fatal(err)
	}

	m, _ = m.loadSession()
	if store.conditions != nil {
		t.Errorf("expected filters cleared, got %v", store.conditions)
	}
	if len(m.FilterPanel.Filters()) != 1 || len(m.FilterPanel.Filters()[0].Tokens) != 0 {
		t.Errorf("unexpected filter panel: %+v", m.FilterPanel.Filters())
	}
}

func TestExport(t *testing.T) {
	m, _ := newModel(t)

	m, cmd := step(m, tea.KeyPressMsg{Code: 'x', Text: "x"})
	m = drain(m, cmd)

	if m.errorString != "" {
		t.Fatalf("unexpected error: %s", m.errorString)
	}
	data, err := os.ReadFile(m.Options.Export)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "shotnum,CH_A\n1,\n2,\n" {
		t.Errorf("unexpected export:\n%s", data)
	}
}

func TestRenderFooter(t *testing.T) {
	tests := []struct {
		name   string
		filter int
		msg    string
		expect string
	}{
		{name: "position", expect: "3/9"},
		{name: "filters", filter: 2, expect: "3/9  2 filters"},
		{name: "message", filter: 1, msg: "saved", expect: "saved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderFooter(3, 9, tt.filter, "src", tt.msg, 40)
			if !strings.Contains(got, tt.expect) || !strings.Contains(got, "src") {
				t.Errorf("footer %q missing %q", got, tt.expect)
			}
		})
	}
}
