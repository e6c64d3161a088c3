package duck

import (
	"bufio"
	"compress/gzip"
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
	"github.com/valyala/fastjson"

	nt "opgateway/entity"
)

const maxRecordSize = 16 * 1024 * 1024

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Load records from every NDJSON file matching pattern.
// Files ending in .gz, .zst or .xz are decompressed on the fly.
func (dk *Duck) Load(pattern string) (err error) {

	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		err = errors.Wrapf(err, "bad pattern %q", pattern)
		return
	}
	if len(paths) == 0 {
		err = errors.Errorf("no files match %q", pattern)
		return
	}

	for _, path := range paths {
		var count int
		count, err = dk.loadFile(path)
		if err != nil {
			return
		}
		dk.logger.Info(context.Background(), "loaded records", "path", path, "count", count)
	}

	dk.name = pattern
	return
}

// LoadReader loads NDJSON records from rdr.
func (dk *Duck) LoadReader(rdr io.Reader) (count int, err error) {

	tx, err := dk.db.Begin()
	if err != nil {
		err = errors.Wrapf(err, "failed to begin load")
		return
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
		err = errors.Wrapf(tx.Commit(), "failed to commit load")
	}()

	insertRecord, err := tx.Prepare(`INSERT INTO records (id, shotnum, "timestamp", activeArea, activeExperiment) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		err = errors.Wrapf(err, "failed to prepare insert")
		return
	}
	defer insertRecord.Close()

	insertRaw, err := tx.Prepare("INSERT INTO records_raw (id, raw) VALUES (?, ?)")
	if err != nil {
		err = errors.Wrapf(err, "failed to prepare insert")
		return
	}
	defer insertRaw.Close()

	var parser fastjson.Parser
	scanner := bufio.NewScanner(rdr)
	scanner.Buffer(make([]byte, 64*1024), maxRecordSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rec record
		rec, err = dk.parseRecord(&parser, text)
		if err != nil {
			err = errors.Wrapf(err, "line %d", lineNum)
			return
		}

		_, err = insertRecord.Exec(rec.id, rec.shotnum, rec.timestamp, rec.activeArea, rec.activeExperiment)
		if err != nil {
			err = errors.Wrapf(err, "failed to insert record %s", rec.id)
			return
		}

		_, err = insertRaw.Exec(rec.id, text)
		if err != nil {
			err = errors.Wrapf(err, "failed to insert raw record %s", rec.id)
			return
		}
		count++
	}

	err = errors.Wrapf(scanner.Err(), "failed to read records")
	return
}

// unexported

type record struct {
	id               string
	shotnum          sql.NullInt64
	timestamp        sql.NullTime
	activeArea       sql.NullString
	activeExperiment sql.NullString
}

func (dk *Duck) loadFile(path string) (count int, err error) {

	rdr, err := openDecompressed(path)
	if err != nil {
		return
	}
	defer rdr.Close()

	count, err = dk.LoadReader(rdr)
	err = errors.Wrapf(err, "failed to load %s", path)
	return
}

func (dk *Duck) parseRecord(parser *fastjson.Parser, text string) (rec record, err error) {

	val, err := parser.Parse(text)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse record")
		return
	}

	rec.id = string(val.GetStringBytes("_id"))
	if rec.id == "" {
		rec.id = string(val.GetStringBytes("id"))
	}
	if rec.id == "" {
		err = errors.New("record has no id")
		return
	}

	meta := val.Get("metadata")
	if meta != nil {
		if shot := meta.Get("shotnum"); shot != nil && shot.Type() == fastjson.TypeNumber {
			rec.shotnum = sql.NullInt64{Int64: shot.GetInt64(), Valid: true}
		}
		rec.timestamp = parseTime(meta.Get("timestamp"))
		rec.activeArea = nullString(meta.GetStringBytes("activeArea"))
		rec.activeExperiment = nullString(meta.GetStringBytes("activeExperiment"))
	}

	channels := val.GetObject("channels")
	if channels != nil {
		channels.Visit(func(key []byte, chVal *fastjson.Value) {
			name := string(key)
			if _, ok := dk.channels[name]; ok {
				return
			}
			dk.channels[name] = nt.Channel{
				Name:  name,
				Kind:  string(chVal.GetStringBytes("metadata", "channel_dtype")),
				Units: string(chVal.GetStringBytes("metadata", "units")),
			}
		})
	}

	return
}

func parseTime(val *fastjson.Value) sql.NullTime {

	if val == nil {
		return sql.NullTime{}
	}

	switch val.Type() {
	case fastjson.TypeNumber:
		return sql.NullTime{Time: time.Unix(val.GetInt64(), 0).UTC(), Valid: true}
	case fastjson.TypeString:
		text := string(val.GetStringBytes())
		for _, layout := range timeLayouts {
			ts, err := time.Parse(layout, text)
			if err == nil {
				return sql.NullTime{Time: ts.UTC(), Valid: true}
			}
		}
	}
	return sql.NullTime{}
}

func nullString(bs []byte) sql.NullString {
	if bs == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(bs), Valid: true}
}

type decompressed struct {
	io.Reader
	closers []io.Closer
}

func (dc decompressed) Close() error {
	var err error
	for i := len(dc.closers) - 1; i >= 0; i-- {
		if cerr := dc.closers[i].Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func openDecompressed(path string) (rdr io.ReadCloser, err error) {

	file, err := os.Open(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to open %s", path)
		return
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		var gz *gzip.Reader
		gz, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			err = errors.Wrapf(err, "failed to create gzip reader")
			return
		}
		rdr = decompressed{Reader: gz, closers: []io.Closer{file, gz}}

	case ".zst":
		var zr *zstd.Decoder
		zr, err = zstd.NewReader(file)
		if err != nil {
			file.Close()
			err = errors.Wrapf(err, "failed to create zstd reader")
			return
		}
		rdr = decompressed{Reader: zr, closers: []io.Closer{file, zr.IOReadCloser()}}

	case ".xz":
		var xr *xz.Reader
		xr, err = xz.NewReader(file)
		if err != nil {
			file.Close()
			err = errors.Wrapf(err, "failed to create xz reader")
			return
		}
		rdr = decompressed{Reader: xr, closers: []io.Closer{file}}

	default:
		rdr = file
	}

	return
}
