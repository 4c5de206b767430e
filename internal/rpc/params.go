package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/model_layer/internal/errors"
)

// ParamsForCreate is {"data": C}.
type ParamsForCreate[C any] struct {
	Data C `json:"data"`
}

// ParamsForUpdate is {"id": n, "data": U}.
type ParamsForUpdate[U any] struct {
	ID   int64 `json:"id"`
	Data U     `json:"data"`
}

// ParamsIded is {"id": n}.
type ParamsIded struct {
	ID int64 `json:"id"`
}

// ParamsList is {"filters"?: ..., "list_options"?: ...}. Both stay raw until
// the filter package decodes them.
type ParamsList struct {
	Filters     json.RawMessage `json:"filters,omitempty"`
	ListOptions json.RawMessage `json:"list_options,omitempty"`
}

// shape describes the keys a record type accepts and requires.
type shape struct {
	known    map[string]bool
	required []string
}

// shapeOf reads the json tags of struct type t. Non-pointer fields without
// omitempty are required.
func shapeOf(t reflect.Type) shape {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s := shape{known: make(map[string]bool)}
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		s.known[name] = true
		if f.Type.Kind() != reflect.Ptr && !strings.Contains(opts, "omitempty") {
			s.required = append(s.required, name)
		}
	}
	return s
}

// object checks that params is a JSON object and returns it parsed. Absent
// or null params are an empty object when allowEmpty is set.
func object(params json.RawMessage, allowEmpty bool) (gjson.Result, error) {
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		if allowEmpty {
			return gjson.Parse("{}"), nil
		}
		return gjson.Result{}, errors.ParamDecodeFailure("params required", nil)
	}
	if !gjson.ValidBytes(trimmed) {
		return gjson.Result{}, errors.ParamDecodeFailure("params are not valid JSON", nil)
	}
	p := gjson.ParseBytes(trimmed)
	if !p.IsObject() {
		return gjson.Result{}, errors.ParamDecodeFailure("params must be an object", nil)
	}
	return p, nil
}

// requireID checks params.id is an integer.
func requireID(p gjson.Result) error {
	id := p.Get("id")
	if !id.Exists() {
		return errors.ParamDecodeFailure("missing params.id", nil)
	}
	if id.Type != gjson.Number || id.Num != math.Trunc(id.Num) {
		return errors.ParamDecodeFailure("params.id must be an integer", nil)
	}
	return nil
}

// requireData checks params.data is an object carrying every required key of
// s and nothing outside it.
func requireData(entity string, p gjson.Result, s shape) error {
	data := p.Get("data")
	if !data.Exists() {
		return errors.ParamDecodeFailure("missing params.data", nil)
	}
	if !data.IsObject() {
		return errors.ParamDecodeFailure("params.data must be an object", nil)
	}

	var unknown string
	data.ForEach(func(key, _ gjson.Result) bool {
		if !s.known[key.String()] {
			unknown = key.String()
			return false
		}
		return true
	})
	if unknown != "" {
		return errors.SchemaViolation(entity, unknown, "unknown field")
	}

	for _, name := range s.required {
		if v := data.Get(gjson.Escape(name)); !v.Exists() || v.Type == gjson.Null {
			return errors.ParamDecodeFailure(fmt.Sprintf("missing params.data.%s", name), nil)
		}
	}
	return nil
}

// decode unmarshals checked params into dst.
func decode(params json.RawMessage, dst any) error {
	if err := json.Unmarshal(params, dst); err != nil {
		return errors.ParamDecodeFailure("params do not match the method shape", err)
	}
	return nil
}
