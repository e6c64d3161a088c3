package duck

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	nt "opgateway/entity"
	"opgateway/expr"
)

const records = `{"_id":"a","metadata":{"shotnum":1,"timestamp":"2023-06-05T10:00:00","activeArea":"ea1"},"channels":{"CHANNEL_ABCDE":{"metadata":{"channel_dtype":"scalar","units":"mm"},"data":5.0},"CHANNEL_DEFGH":{"data":"1"}}}
{"_id":"b","metadata":{"shotnum":2,"timestamp":"2023-06-05T10:00:01","activeArea":"ea1"},"channels":{"CHANNEL_ABCDE":{"data":7.5},"CHANNEL_DEFGH":{"data":"2"}}}

{"_id":"c","metadata":{"shotnum":3,"timestamp":"2023-06-05T10:00:02","activeArea":"ea2"},"channels":{"CHANNEL_DEFGH":{"data":"1"}}}
{"_id":"d","metadata":{"timestamp":"2023-06-05T10:00:03"},"channels":{"CHANNEL_ABCDE":{"data":1.0}}}
`

type testLogger struct{}

func (testLogger) Info(ctx context.Context, msg string, kv ...any)             {}
func (testLogger) Error(ctx context.Context, msg string, err error, kv ...any) {}

func newLoaded(t *testing.T) *Duck {
	t.Helper()

	dk, err := New(testLogger{})
	if err != nil {
		t.Fatalf("failed to create duck: %v", err)
	}
	t.Cleanup(dk.Close)

	count, err := dk.LoadReader(strings.NewReader(records))
	if err != nil {
		t.Fatalf("failed to load records: %v", err)
	}
	if count != 4 {
		t.Fatalf("loaded %d records, want 4", count)
	}
	return dk
}

func compile(t *testing.T, tokens ...nt.Token) nt.Condition {
	t.Helper()

	cond, ok, err := expr.Conditions([]nt.Filter{{Enabled: true, Tokens: tokens}})
	if err != nil || !ok {
		t.Fatalf("failed to compile %v: %v", tokens, err)
	}
	return cond
}

func number(t *testing.T, val string) nt.Token {
	t.Helper()
	tkn, err := expr.Number(val)
	if err != nil {
		t.Fatal(err)
	}
	return tkn
}

func TestViewCounts(t *testing.T) {
	dk := newLoaded(t)

	shotnum := expr.Channel(nt.MetadataChannels[0])
	abcde := expr.Channel(nt.Channel{Name: "CHANNEL_ABCDE"})
	defgh := expr.Channel(nt.Channel{Name: "CHANNEL_DEFGH"})

	tests := []struct {
		name  string
		cond  nt.Condition
		count int
	}{
		{
			name:  "everything",
			count: 4,
		},
		{
			name:  "not null",
			cond:  compile(t, shotnum, expr.Op("is not null")),
			count: 3,
		},
		{
			name:  "number comparison",
			cond:  compile(t, abcde, expr.Op(">"), number(t, "4")),
			count: 2,
		},
		{
			name:  "missing fields match negations",
			cond:  compile(t, defgh, expr.Op("!="), expr.String("1"), expr.Or(), shotnum, expr.Not(), expr.Op(">="), number(t, "1")),
			count: 2,
		},
		{
			name: "negated group",
			cond: compile(t,
				expr.Not(), expr.Open(),
				abcde, expr.Op(">"), number(t, "4"), expr.And(), defgh, expr.Op("="), expr.String("1"),
				expr.Close()),
			count: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dk.SetView(tt.cond, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			_, count, err := dk.GetView()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if count != tt.count {
				t.Errorf("count = %d, want %d", count, tt.count)
			}
		})
	}
}

func TestGetPage(t *testing.T) {
	dk := newLoaded(t)

	lines, err := dk.GetPage(1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 || lines[0].Id != "b" || lines[1].Id != "c" {
		t.Fatalf("unexpected page: %+v", lines)
	}

	err = dk.SetView(nil, []nt.Sort{{Field: "id", Desc: true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines, err = dk.GetPage(0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for _, line := range lines {
		ids = append(ids, line.Id)
	}
	if strings.Join(ids, ",") != "d,c,b,a" {
		t.Errorf("ids = %v", ids)
	}

	err = dk.SetView(nil, []nt.Sort{{Field: "nope"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = dk.GetPage(0, 10)
	if err == nil {
		t.Error("expected error sorting on unknown field")
	}
}

func TestGetSeries(t *testing.T) {
	dk := newLoaded(t)

	values, err := dk.GetSeries("CHANNEL_ABCDE", 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 4 {
		t.Fatalf("got %d values, want 4", len(values))
	}

	expect := []any{5.0, 7.5, nil, 1.0}
	for i, val := range values {
		if val.Raw != expect[i] {
			t.Errorf("value %d = %v, want %v", i, val.Raw, expect[i])
		}
	}
}

func TestGetLine(t *testing.T) {
	dk := newLoaded(t)

	data, err := dk.GetLine("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	meta, ok := data["metadata"].(map[string]any)
	if !ok || meta["shotnum"] != 1.0 {
		t.Errorf("unexpected record: %v", data)
	}

	_, err = dk.GetLine("zzz")
	if err == nil {
		t.Error("expected error for unknown record")
	}
}

func TestChannelsAndPromote(t *testing.T) {
	dk := newLoaded(t)

	channels, err := dk.Channels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(channels) != len(nt.MetadataChannels)+2 {
		t.Fatalf("unexpected channels: %+v", channels)
	}
	abcde := channels[len(nt.MetadataChannels)]
	if abcde.Name != "CHANNEL_ABCDE" || abcde.Kind != "scalar" || abcde.Units != "mm" {
		t.Errorf("unexpected channel: %+v", abcde)
	}

	err = dk.Promote("CHANNEL_ABCDE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields, _, err := dk.GetView()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields[len(fields)-1].Name != "CHANNEL_ABCDE" {
		t.Errorf("expected promoted column, got %+v", fields)
	}

	lines, err := dk.GetPage(0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := lines[0].Values[len(fields)-1].String(); got != "5" && got != "5.0" {
		t.Errorf("promoted value = %q", got)
	}
}

func TestFavourites(t *testing.T) {
	dk := newLoaded(t)

	tokens := []nt.Token{expr.Channel(nt.MetadataChannels[0]), expr.Op("is not null")}
	saved, err := dk.SaveFavourite("  has shot  ", tokens)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Id == "" || saved.Name != "has shot" {
		t.Errorf("unexpected favourite: %+v", saved)
	}

	_, err = dk.SaveFavourite(" ", tokens)
	if err == nil {
		t.Error("expected error for unnamed favourite")
	}

	favs, err := dk.Favourites()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(favs) != 1 || favs[0].Id != saved.Id || len(favs[0].Tokens) != 2 || favs[0].Tokens[1] != tokens[1] {
		t.Errorf("unexpected favourites: %+v", favs)
	}
}

func TestLoadCompressedGlob(t *testing.T) {
	dir := t.TempDir()

	file, err := os.Create(filepath.Join(dir, "shots.ndjson.gz"))
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(file)
	_, err = gz.Write([]byte(records))
	if err != nil {
		t.Fatal(err)
	}
	gz.Close()
	file.Close()

	dk, err := New(testLogger{})
	if err != nil {
		t.Fatal(err)
	}
	defer dk.Close()

	err = dk.Load(filepath.Join(dir, "**", "*.ndjson.gz"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, count, err := dk.GetView()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}

	err = dk.Load(filepath.Join(dir, "*.missing"))
	if err == nil {
		t.Error("expected error when nothing matches")
	}
}

func TestLoadRejectsRecordWithoutId(t *testing.T) {
	dk, err := New(testLogger{})
	if err != nil {
		t.Fatal(err)
	}
	defer dk.Close()

	_, err = dk.LoadReader(strings.NewReader(`{"metadata":{"shotnum":1}}`))
	if err == nil {
		t.Error("expected error for record without id")
	}
}
