package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	nt "opgateway/entity"
)

type fakePager struct {
	fields []nt.Field
	lines  []nt.Line
	pages  int
}

func (fp *fakePager) GetView() ([]nt.Field, int, error) {
	return fp.fields, len(fp.lines), nil
}

func (fp *fakePager) GetPage(offset, size int) ([]nt.Line, error) {
	fp.pages++
	end := min(offset+size, len(fp.lines))
	return fp.lines[offset:end], nil
}

func newPager(count int) *fakePager {

	fp := &fakePager{
		fields: []nt.Field{{Name: "id"}, {Name: "shotnum"}, {Name: "timestamp"}},
	}

	ts := time.Date(2023, 6, 5, 10, 0, 0, 0, time.UTC)
	for i := range count {
		id := string(rune('a' + i%26))
		fp.lines = append(fp.lines, nt.Line{
			Id: id,
			Values: []nt.Value{
				{Raw: id},
				{Raw: int64(i + 1)},
				{Raw: ts.Add(time.Duration(i) * time.Second)},
			},
		})
	}
	return fp
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path   string
		format Format
		err    bool
	}{
		{path: "out.csv", format: CSV},
		{path: "OUT.XLSX", format: XLSX},
		{path: "out.json", err: true},
	}

	for _, tt := range tests {
		format, err := FormatOf(tt.path)
		if (err != nil) != tt.err || format != tt.format {
			t.Errorf("FormatOf(%q) = %q, %v", tt.path, format, err)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	fp := newPager(2)
	columns := []nt.Column{{Field: "shotnum"}, {Field: "id", Hidden: true}, {Field: "timestamp"}}

	var buf bytes.Buffer
	count, err := WriteCSV(&buf, fp, columns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	expect := "shotnum,timestamp\n1,2023-06-05T10:00:00Z\n2,2023-06-05T10:00:01Z\n"
	if buf.String() != expect {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), expect)
	}
}

func TestWriteCSVPagesAllFields(t *testing.T) {
	fp := newPager(pageSize + 3)

	var buf bytes.Buffer
	count, err := WriteCSV(&buf, fp, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != pageSize+3 || fp.pages != 2 {
		t.Errorf("count = %d over %d pages", count, fp.pages)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("id,shotnum,timestamp\n")) {
		t.Errorf("unexpected header: %q", buf.String()[:30])
	}
}

func TestWriteXLSX(t *testing.T) {
	fp := newPager(3)
	path := filepath.Join(t.TempDir(), "records.xlsx")

	count, err := Write(fp, []nt.Column{{Field: "id"}, {Field: "shotnum"}}, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	book, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open export: %v", err)
	}
	defer book.Close()

	rows, err := book.GetRows(sheetName)
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}
	if len(rows) != 4 || rows[0][0] != "id" || rows[3][0] != "c" || rows[3][1] != "3" {
		t.Errorf("unexpected rows: %v", rows)
	}
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	_, err := Write(newPager(1), nil, filepath.Join(t.TempDir(), "x.txt"))
	if err == nil {
		t.Error("expected error")
	}
}
