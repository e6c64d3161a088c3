package duck

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"

	_ "github.com/marcboeker/go-duckdb"

	nt "opgateway/entity"
)

const (
	pageOrder = `r."timestamp", r.id`
	joinRaw   = "FROM records r JOIN records_raw w ON r.id = w.id"
)

type Duck struct {
	db         *sql.DB
	logger     nt.Logger
	conditions nt.Condition
	sorts      []nt.Sort
	name       string
	channels   map[string]nt.Channel
}

func New(lgr nt.Logger) (dk *Duck, err error) {

	db, err := sql.Open("duckdb", "")
	if err != nil {
		err = errors.Wrapf(err, "failed to open memo duck")
		return
	}

	err = createTables(db)
	if err != nil {
		db.Close()
		return
	}

	dk = &Duck{
		db:       db,
		sorts:    []nt.Sort{},
		logger:   lgr,
		channels: map[string]nt.Channel{},
	}

	return
}

func (dk *Duck) Close() {
	dk.db.Close()
}

// Name returns the name of the loaded source
func (dk *Duck) Name() string {
	return dk.name
}

// Channels returns the metadata fields followed by the channels seen in loaded records
func (dk *Duck) Channels() (channels []nt.Channel, err error) {

	channels = slices.Clone(nt.MetadataChannels)
	for _, name := range slices.Sorted(maps.Keys(dk.channels)) {
		channels = append(channels, dk.channels[name])
	}
	return
}

// Promote a channel, or metadata field, to a column
func (dk *Duck) Promote(field string) (err error) {
	err = PromoteField(dk.db, field)
	if err != nil {
		return
	}
	err = IndexField(dk.db, field)
	return
}

// SetView Conditions and Sort(s)
func (dk *Duck) SetView(conditions nt.Condition, sorts []nt.Sort) (err error) {

	_, _, err = buildWhereClause(conditions)
	if err != nil {
		return
	}

	dk.conditions = conditions
	dk.sorts = sorts
	dk.logger.Info(context.Background(), "view set", "conditions", len(conditions) > 0, "sorts", len(sorts))
	return
}

// GetView fields and count
func (dk *Duck) GetView() (fields []nt.Field, count int, err error) {

	fields, err = getFields(dk.db)
	if err != nil {
		return
	}

	where, args, err := buildWhereClause(dk.conditions)
	if err != nil {
		return
	}

	query := fmt.Sprintf("SELECT COUNT(*) %s %s", joinRaw, where)
	err = dk.db.QueryRow(query, args...).Scan(&count)
	if err != nil {
		err = errors.Wrapf(err, "failed to count records")
	}
	return
}

// GetPage of records
func (dk *Duck) GetPage(offset, size int) (lines []nt.Line, err error) {

	where, args, err := buildWhereClause(dk.conditions)
	if err != nil {
		return
	}

	order, err := dk.orderClause()
	if err != nil {
		return
	}

	query := fmt.Sprintf("SELECT r.* %s %s %s LIMIT ? OFFSET ?", joinRaw, where, order)
	args = append(args, size, offset)

	rows, err := dk.db.Query(query, args...)
	if err != nil {
		err = errors.Wrapf(err, "failed to query records")
		return
	}
	defer rows.Close()

	count, err := columnCount(rows)
	if err != nil {
		return
	}

	for rows.Next() {
		var vals []any
		vals, err = scanRow(rows, count)
		if err != nil {
			err = errors.Wrapf(err, "failed to scan row")
			return
		}

		values := make([]nt.Value, count)
		for i, val := range vals {
			values[i] = nt.Value{Raw: val}
		}

		// id is always the first column
		lines = append(lines, nt.Line{
			Id:     values[0].String(),
			Values: values,
		})
	}

	err = rows.Err()
	err = errors.Wrapf(err, "error iterating rows")
	return
}

// GetLine returns the raw record
func (dk *Duck) GetLine(id string) (data map[string]any, err error) {

	var raw string
	err = dk.db.QueryRow("SELECT CAST(raw AS VARCHAR) FROM records_raw WHERE id = ?", id).Scan(&raw)
	if err != nil {
		err = errors.Wrapf(err, "failed to query raw record %s", id)
		return
	}

	data, err = decodeRecord(raw)
	return
}

// GetSeries returns the values of a channel over a page of the view
func (dk *Duck) GetSeries(channel string, offset, size int) (values []nt.Value, err error) {

	path, err := jsonPath(channel)
	if err != nil {
		return
	}

	where, args, err := buildWhereClause(dk.conditions)
	if err != nil {
		return
	}

	order, err := dk.orderClause()
	if err != nil {
		return
	}

	query := fmt.Sprintf(
		"SELECT TRY_CAST(json_extract_string(w.raw, ?) AS DOUBLE) %s %s %s LIMIT ? OFFSET ?",
		joinRaw, where, order)
	args = append([]any{path}, args...)
	args = append(args, size, offset)

	rows, err := dk.db.Query(query, args...)
	if err != nil {
		err = errors.Wrapf(err, "failed to query series for %s", channel)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var val sql.NullFloat64
		err = rows.Scan(&val)
		if err != nil {
			err = errors.Wrapf(err, "failed to scan series value")
			return
		}

		value := nt.Value{}
		if val.Valid {
			value.Raw = val.Float64
		}
		values = append(values, value)
	}

	err = rows.Err()
	err = errors.Wrapf(err, "error iterating series")
	return
}

// unexported

func (dk *Duck) orderClause() (clause string, err error) {

	if len(dk.sorts) == 0 {
		clause = "ORDER BY " + pageOrder
		return
	}

	fields, err := getFields(dk.db)
	if err != nil {
		return
	}

	known := map[string]bool{}
	for _, field := range fields {
		known[field.Name] = true
	}

	var terms []string
	for _, srt := range dk.sorts {
		if !known[srt.Field] {
			err = errors.Errorf("cannot sort on unknown field %q", srt.Field)
			return
		}
		term := "r." + quoteIdent(srt.Field)
		if srt.Desc {
			term += " DESC"
		}
		terms = append(terms, term)
	}

	clause = "ORDER BY " + strings.Join(terms, ", ") + ", r.id"
	return
}

func createTables(db *sql.DB) (err error) {

	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id VARCHAR PRIMARY KEY,
			shotnum BIGINT,
			"timestamp" TIMESTAMP,
			activeArea VARCHAR,
			activeExperiment VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS records_raw (
			id VARCHAR PRIMARY KEY,
			raw JSON
		)`,
		`CREATE TABLE IF NOT EXISTS user_filters (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			filter VARCHAR NOT NULL,
			created TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_timestamp ON records("timestamp")`,
	}

	for _, stmt := range statements {
		_, err = db.Exec(stmt)
		if err != nil {
			err = errors.Wrapf(err, "failed to create tables")
			return
		}
	}
	return
}

// PromoteField promotes a channel from records_raw to a column in the records table
func PromoteField(db *sql.DB, fieldName string) (err error) {

	if nt.IsMetadata(fieldName) {
		return // already a column
	}

	path, err := jsonPath(fieldName)
	if err != nil {
		return
	}

	_, err = db.Exec(fmt.Sprintf(
		"ALTER TABLE records ADD COLUMN IF NOT EXISTS %s VARCHAR",
		quoteIdent(fieldName)))
	if err != nil {
		err = errors.Wrapf(err, "failed to add column")
		return
	}

	_, err = db.Exec(fmt.Sprintf(`
		UPDATE records
		SET %s = json_extract_string(records_raw.raw, ?)
		FROM records_raw
		WHERE records.id = records_raw.id
	`, quoteIdent(fieldName)), path)
	err = errors.Wrapf(err, "failed to backfill column")
	return
}

func IndexField(db *sql.DB, fieldName string) (err error) {

	_, err = db.Exec(fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON records(%s)",
		quoteIdent("idx_"+fieldName), quoteIdent(fieldName)))
	err = errors.Wrapf(err, "failed to index column")
	return
}

func getFields(db *sql.DB) (fields []nt.Field, err error) {

	rows, err := db.Query(`
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = 'records'
		ORDER BY ordinal_position
	`)
	if err != nil {
		err = errors.Wrapf(err, "failed to query schema")
		return
	}
	defer rows.Close()

	for rows.Next() {
		var field nt.Field
		if err = rows.Scan(&field.Name, &field.Type); err != nil {
			err = errors.Wrapf(err, "failed to scan field")
			return
		}
		fields = append(fields, field)
	}

	err = rows.Err()
	return
}

func columnCount(rows *sql.Rows) (int, error) {
	cols, err := rows.Columns()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to get cols from query rows")
	}
	return len(cols), nil
}

func scanRow(rows *sql.Rows, columnCount int) ([]any, error) {
	vals := make([]any, columnCount)
	ptrs := make([]any, columnCount)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	err := rows.Scan(ptrs...)
	return vals, err
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func now() time.Time {
	return time.Now().UTC()
}
