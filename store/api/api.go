// Package api is a Store over the experiment records HTTP API.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fastjson"

	nt "opgateway/entity"
	"opgateway/expr"
)

// Config is the configurable for the api store.
type Config struct {
	Url     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// Api is a records store backed by the remote API.
type Api struct {
	base    *url.URL
	token   string
	client  *http.Client
	parsers fastjson.ParserPool
	logger  nt.Logger

	conditions string // encoded, empty for every record
	sorts      []nt.Sort
	promoted   []string
}

// New creates an api store from config.
func (cfg *Config) New(lgr nt.Logger) (api *Api, err error) {

	base, err := url.Parse(strings.TrimSuffix(cfg.Url, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		err = errors.Errorf("bad api url %q", cfg.Url)
		return
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	api = &Api{
		base:   base,
		token:  cfg.Token,
		client: &http.Client{Timeout: timeout},
		logger: lgr,
	}
	return
}

// Name returns the api url
func (api *Api) Name() string {
	return api.base.String()
}

// Channels lists the metadata fields followed by the channels the api knows
func (api *Api) Channels() (channels []nt.Channel, err error) {

	body, err := api.get("/channels", nil)
	if err != nil {
		return
	}

	channels = slices.Clone(nt.MetadataChannels)
	err = api.parse(body, func(val *fastjson.Value) error {

		chans := val.Get("channels")
		if chans == nil {
			return errors.Errorf("response has no channels")
		}
		obj, err := chans.Object()
		if err != nil {
			return errors.Wrapf(err, "channels is not an object")
		}

		var found []nt.Channel
		obj.Visit(func(key []byte, meta *fastjson.Value) {
			kind := string(meta.GetStringBytes("type"))
			if kind == "" {
				kind = string(meta.GetStringBytes("channel_dtype"))
			}
			found = append(found, nt.Channel{
				Name:  string(key),
				Label: string(meta.GetStringBytes("name")),
				Kind:  kind,
				Units: string(meta.GetStringBytes("units")),
			})
		})

		slices.SortFunc(found, func(a, b nt.Channel) int {
			return strings.Compare(a.Name, b.Name)
		})
		channels = append(channels, found...)
		return nil
	})
	return
}

// Promote a channel to a column
func (api *Api) Promote(field string) (err error) {

	if field == "id" || nt.IsMetadata(field) || slices.Contains(api.promoted, field) {
		return
	}
	api.promoted = append(api.promoted, field)
	return
}

// SetView Conditions and Sort(s)
func (api *Api) SetView(conditions nt.Condition, sorts []nt.Sort) (err error) {

	encoded := ""
	if len(conditions) > 0 {
		encoded, err = expr.Encode(conditions)
		if err != nil {
			return
		}
	}

	for _, srt := range sorts {
		if _, ok := api.path(srt.Field); !ok {
			err = errors.Errorf("cannot sort on unknown field %q", srt.Field)
			return
		}
	}

	api.conditions = encoded
	api.sorts = sorts
	api.logger.Info(context.Background(), "view set", "conditions", encoded, "sorts", len(sorts))
	return
}

// GetView fields and count
func (api *Api) GetView() (fields []nt.Field, count int, err error) {

	fields = api.fields()

	body, err := api.get("/records/count", api.viewQuery())
	if err != nil {
		return
	}

	count, err = strconv.Atoi(strings.TrimSpace(string(body)))
	err = errors.Wrapf(err, "unexpected count %q", body)
	return
}

// GetPage of records
func (api *Api) GetPage(offset, size int) (lines []nt.Line, err error) {

	fields := api.fields()

	err = api.records(offset, size, func(rec *fastjson.Value) {

		values := make([]nt.Value, len(fields))
		for i, field := range fields {
			path, _ := api.path(field.Name)
			values[i] = value(lookup(rec, path), field.Type)
		}

		lines = append(lines, nt.Line{
			Id:     values[0].String(),
			Values: values,
		})
	})
	return
}

// GetLine returns the full record
func (api *Api) GetLine(id string) (data map[string]any, err error) {

	body, err := api.get("/records/"+url.PathEscape(id), nil)
	if err != nil {
		return
	}

	err = api.parse(body, func(val *fastjson.Value) error {
		var ok bool
		data, ok = toAny(val).(map[string]any)
		if !ok {
			return errors.Errorf("record %s is not an object", id)
		}
		return nil
	})
	return
}

// GetSeries returns a channel's values over a page of the view
func (api *Api) GetSeries(channel string, offset, size int) (values []nt.Value, err error) {

	path := nt.RecordPath(channel, nt.IsMetadata(channel))

	err = api.records(offset, size, func(rec *fastjson.Value) {
		val := lookup(rec, path)
		if val == nil || val.Type() != fastjson.TypeNumber {
			values = append(values, nt.Value{})
			return
		}
		values = append(values, nt.Value{Raw: val.GetFloat64()})
	})
	return
}

// unexported

// fields are the record id, the metadata fields and any promoted channels
func (api *Api) fields() (fields []nt.Field) {

	fields = append(fields, nt.Field{Name: "id", Type: "VARCHAR"})
	for _, ch := range nt.MetadataChannels {
		typ := "VARCHAR"
		switch ch.Name {
		case "shotnum":
			typ = "BIGINT"
		case "timestamp":
			typ = "TIMESTAMP"
		}
		fields = append(fields, nt.Field{Name: ch.Name, Type: typ})
	}
	for _, name := range api.promoted {
		fields = append(fields, nt.Field{Name: name, Type: "VARCHAR"})
	}
	return
}

// path returns the dotted record path of a field
func (api *Api) path(field string) (string, bool) {

	switch {
	case field == "id":
		return "_id", true
	case nt.IsMetadata(field):
		return nt.RecordPath(field, true), true
	case slices.Contains(api.promoted, field):
		return nt.RecordPath(field, false), true
	}
	return "", false
}

func (api *Api) viewQuery() url.Values {

	query := url.Values{}
	if api.conditions != "" {
		query.Set("conditions", api.conditions)
	}
	return query
}

func (api *Api) records(offset, size int, each func(*fastjson.Value)) (err error) {

	query := api.viewQuery()
	query.Set("skip", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(size))

	sorts := api.sorts
	if len(sorts) == 0 {
		sorts = []nt.Sort{{Field: "timestamp"}}
	}
	for _, srt := range sorts {
		path, _ := api.path(srt.Field)
		dir := "asc"
		if srt.Desc {
			dir = "desc"
		}
		query.Add("order", path+" "+dir)
	}

	body, err := api.get("/records", query)
	if err != nil {
		return
	}

	err = api.parse(body, func(val *fastjson.Value) error {
		recs, err := val.Array()
		if err != nil {
			return errors.Wrapf(err, "records is not a list")
		}
		for _, rec := range recs {
			each(rec)
		}
		return nil
	})
	return
}

func (api *Api) get(path string, query url.Values) (body []byte, err error) {
	return api.do(http.MethodGet, path, query)
}

func (api *Api) do(method, path string, query url.Values) (body []byte, err error) {

	endpoint := api.base.JoinPath(path)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequest(method, endpoint.String(), nil)
	if err != nil {
		err = errors.Wrapf(err, "failed to create request")
		return
	}
	if api.token != "" {
		req.Header.Set("Authorization", "Bearer "+api.token)
	}

	resp, err := api.client.Do(req)
	if err != nil {
		err = errors.Wrapf(err, "failed to %s %s", method, path)
		return
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		err = errors.Wrapf(err, "failed to read response from %s", path)
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = errors.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, snippet(body))
		api.logger.Error(context.Background(), "api request failed", err, "status", resp.StatusCode)
	}
	return
}

func (api *Api) parse(body []byte, fn func(*fastjson.Value) error) (err error) {

	psr := api.parsers.Get()
	defer api.parsers.Put(psr)

	val, err := psr.ParseBytes(body)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse response")
		return
	}

	err = fn(val)
	return
}

// lookup follows a dotted record path, channel names may themselves contain dots
func lookup(rec *fastjson.Value, path string) *fastjson.Value {

	if name, ok := strings.CutPrefix(path, "channels."); ok {
		name = strings.TrimSuffix(name, ".data")
		return rec.Get("channels", name, "data")
	}
	return rec.Get(strings.Split(path, ".")...)
}

func value(val *fastjson.Value, typ string) nt.Value {

	if val == nil || val.Type() == fastjson.TypeNull {
		return nt.Value{}
	}

	switch val.Type() {
	case fastjson.TypeString:
		str := string(val.GetStringBytes())
		if typ == "TIMESTAMP" {
			ts, err := time.Parse(time.RFC3339Nano, str)
			if err == nil {
				return nt.Value{Raw: ts}
			}
			ts, err = time.Parse("2006-01-02T15:04:05", str)
			if err == nil {
				return nt.Value{Raw: ts}
			}
		}
		return nt.Value{Raw: str}
	case fastjson.TypeNumber:
		if typ == "BIGINT" {
			return nt.Value{Raw: val.GetInt64()}
		}
		return nt.Value{Raw: val.GetFloat64()}
	}
	return nt.Value{Raw: toAny(val)}
}

// toAny converts a parsed value to plain maps, slices and scalars
func toAny(val *fastjson.Value) any {

	switch val.Type() {
	case fastjson.TypeObject:
		out := map[string]any{}
		val.GetObject().Visit(func(key []byte, item *fastjson.Value) {
			out[string(key)] = toAny(item)
		})
		return out
	case fastjson.TypeArray:
		items := val.GetArray()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = toAny(item)
		}
		return out
	case fastjson.TypeString:
		return string(val.GetStringBytes())
	case fastjson.TypeNumber:
		return val.GetFloat64()
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	}
	return nil
}

func snippet(body []byte) string {
	const limit = 200
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return fmt.Sprintf("%s...", text[:limit])
	}
	return text
}
