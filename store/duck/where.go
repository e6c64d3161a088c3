package duck

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/pkg/errors"

	nt "opgateway/entity"
)

var comparators = map[string]string{
	"$eq":  "=",
	"$lt":  "<",
	"$lte": "<=",
	"$gt":  ">",
	"$gte": ">=",
}

// buildWhereClause converts compiled conditions to a parameterised WHERE clause
func buildWhereClause(conditions nt.Condition) (clause string, args []any, err error) {

	if len(conditions) == 0 {
		return
	}

	expr, args, err := buildConditionExpr(conditions)
	if err != nil {
		return
	}

	clause = "WHERE " + expr
	return
}

// buildConditionExpr recursively builds a condition expression (without WHERE prefix)
// Comparisons follow MongoDB semantics: $ne and $not also match records lacking the field.
func buildConditionExpr(raw any) (expr string, args []any, err error) {

	cond, ok := asCondition(raw)
	if !ok {
		err = errors.Errorf("condition is not an object: %T", raw)
		return
	}
	if len(cond) == 0 {
		expr = "TRUE"
		return
	}

	var parts []string
	for _, key := range slices.Sorted(maps.Keys(cond)) {
		var part string
		var partArgs []any

		switch {
		case key == "$and" || key == "$or":
			part, partArgs, err = buildLogicalExpr(key, cond[key])
		case strings.HasPrefix(key, "$"):
			err = errors.Errorf("unsupported operator %q", key)
		default:
			part, partArgs, err = buildFieldExpr(key, cond[key])
		}
		if err != nil {
			return
		}

		parts = append(parts, part)
		args = append(args, partArgs...)
	}

	expr = strings.Join(parts, " AND ")
	if len(parts) > 1 {
		expr = "(" + expr + ")"
	}
	return
}

func buildLogicalExpr(key string, raw any) (expr string, args []any, err error) {

	children, ok := asList(raw)
	if !ok {
		err = errors.Errorf("%s expects a list, got %T", key, raw)
		return
	}

	joiner, none := " AND ", "TRUE"
	if key == "$or" {
		joiner, none = " OR ", "FALSE"
	}

	if len(children) == 0 {
		expr = none
		return
	}

	var parts []string
	for _, child := range children {
		var part string
		var partArgs []any
		part, partArgs, err = buildConditionExpr(child)
		if err != nil {
			return
		}
		parts = append(parts, part)
		args = append(args, partArgs...)
	}

	expr = "(" + strings.Join(parts, joiner) + ")"
	return
}

func buildFieldExpr(dotted string, raw any) (expr string, args []any, err error) {

	ops, ok := asCondition(raw)
	if !ok {
		// bare value is implicit equality
		ops = nt.Condition{"$eq": raw}
	}

	var parts []string
	for _, op := range slices.Sorted(maps.Keys(ops)) {
		var part string
		var partArgs []any

		if op == "$not" {
			part, partArgs, err = buildFieldExpr(dotted, ops[op])
			part = "NOT " + part
		} else {
			part, partArgs, err = buildComparison(dotted, op, ops[op])
		}
		if err != nil {
			return
		}

		parts = append(parts, part)
		args = append(args, partArgs...)
	}

	if len(parts) == 0 {
		err = errors.Errorf("no operator for %s", dotted)
		return
	}

	expr = "(" + strings.Join(parts, " AND ") + ")"
	return
}

func buildComparison(dotted, op string, raw any) (expr string, args []any, err error) {

	path, err := dottedJsonPath(dotted)
	if err != nil {
		return
	}

	column := "json_extract_string(w.raw, ?)"
	args = []any{path}

	var value any
	switch val := raw.(type) {
	case nil:
		switch op {
		case "$eq":
			expr = column + " IS NULL"
		case "$ne":
			expr = column + " IS NOT NULL"
		default:
			expr = "FALSE"
			args = nil
		}
		return
	case string:
		value = val
	case bool:
		value = "false"
		if val {
			value = "true"
		}
	default:
		value, err = asFloat(raw)
		if err != nil {
			return
		}
		column = "TRY_CAST(" + column + " AS DOUBLE)"
	}
	args = append(args, value)

	if op == "$ne" {
		expr = column + " IS DISTINCT FROM ?"
		return
	}

	cmp, ok := comparators[op]
	if !ok {
		err = errors.Errorf("unsupported comparison %q", op)
		return
	}

	expr = "COALESCE(" + column + " " + cmp + " ?, FALSE)"
	return
}

// jsonPath returns the path of a channel's data, or a metadata field, within a raw record
func jsonPath(channel string) (string, error) {
	return dottedJsonPath(nt.RecordPath(channel, nt.IsMetadata(channel)))
}

// dottedJsonPath converts a dotted record path to a quoted JSON path
func dottedJsonPath(dotted string) (path string, err error) {

	var keys []string
	switch {
	case strings.HasPrefix(dotted, "metadata."):
		keys = []string{"metadata", strings.TrimPrefix(dotted, "metadata.")}
	case strings.HasPrefix(dotted, "channels.") && strings.HasSuffix(dotted, ".data"):
		name := strings.TrimSuffix(strings.TrimPrefix(dotted, "channels."), ".data")
		keys = []string{"channels", name, "data"}
	default:
		keys = strings.Split(dotted, ".")
	}

	path = "$"
	for _, key := range keys {
		if key == "" || strings.ContainsAny(key, `"\`) {
			err = errors.Errorf("bad record path %q", dotted)
			return
		}
		path += `."` + key + `"`
	}
	return
}

func asCondition(raw any) (nt.Condition, bool) {
	switch cond := raw.(type) {
	case nt.Condition:
		return cond, true
	case map[string]any:
		return nt.Condition(cond), true
	}
	return nil, false
}

func asList(raw any) ([]any, bool) {
	switch list := raw.(type) {
	case []any:
		return list, true
	case []nt.Condition:
		items := make([]any, len(list))
		for i, cond := range list {
			items[i] = cond
		}
		return items, true
	case []map[string]any:
		items := make([]any, len(list))
		for i, cond := range list {
			items[i] = cond
		}
		return items, true
	}
	return nil, false
}

func asFloat(raw any) (float64, error) {
	switch val := raw.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case json.Number:
		f, err := val.Float64()
		return f, errors.Wrapf(err, "bad number %q", val)
	}
	return 0, errors.Errorf("unsupported comparison value %T", raw)
}

func decodeRecord(raw string) (data map[string]any, err error) {

	err = json.Unmarshal([]byte(raw), &data)
	err = errors.Wrapf(err, "failed to decode record")
	return
}
