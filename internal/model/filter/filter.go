// Package filter turns the JSON filter language of list requests into a
// parameterized WHERE clause.
//
// It works in two stages. Decode checks only the shape of the input and needs
// no schema. Compile validates field names and operators against an entity
// descriptor, coerces values to the field type and renders SQL in which every
// value is a bind argument.
//
// A filter is a list of groups. Fields inside a group AND together, groups OR
// together, and several operators on one field AND together:
//
//	[{"title": {"$endsWith": ".a", "$containsAny": ["01", "02"]}},
//	 {"title": {"$contains": "03"}}]
package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/R3E-Network/model_layer/internal/errors"
)

// Op is a filter operator.
type Op string

const (
	OpEq             Op = "$eq"
	OpNot            Op = "$not"
	OpGt             Op = "$gt"
	OpGte            Op = "$gte"
	OpLt             Op = "$lt"
	OpLte            Op = "$lte"
	OpIn             Op = "$in"
	OpNotIn          Op = "$notIn"
	OpNull           Op = "$null"
	OpContains       Op = "$contains"
	OpNotContains    Op = "$notContains"
	OpContainsAny    Op = "$containsAny"
	OpNotContainsAny Op = "$notContainsAny"
	OpContainsAll    Op = "$containsAll"
	OpStartsWith     Op = "$startsWith"
	OpNotStartsWith  Op = "$notStartsWith"
	OpStartsWithAny  Op = "$startsWithAny"
	OpEndsWith       Op = "$endsWith"
	OpNotEndsWith    Op = "$notEndsWith"
	OpEndsWithAny    Op = "$endsWithAny"
	OpContainsCi     Op = "$containsCi"
	OpStartsWithCi   Op = "$startsWithCi"
	OpEndsWithCi     Op = "$endsWithCi"
)

// operators lists every operator in rendering order.
var operators = []Op{
	OpEq, OpNot, OpGt, OpGte, OpLt, OpLte, OpIn, OpNotIn, OpNull,
	OpContains, OpNotContains, OpContainsAny, OpNotContainsAny, OpContainsAll,
	OpStartsWith, OpNotStartsWith, OpStartsWithAny,
	OpEndsWith, OpNotEndsWith, OpEndsWithAny,
	OpContainsCi, OpStartsWithCi, OpEndsWithCi,
}

var rank = func() map[Op]int {
	m := make(map[Op]int, len(operators))
	for i, op := range operators {
		m[op] = i
	}
	return m
}()

// Known reports whether op is a supported operator.
func Known(op Op) bool {
	_, ok := rank[op]
	return ok
}

// takesList reports whether op expects an array value.
func takesList(op Op) bool {
	switch op {
	case OpIn, OpNotIn, OpContainsAny, OpNotContainsAny, OpContainsAll, OpStartsWithAny, OpEndsWithAny:
		return true
	}
	return false
}

// Cond is one operator applied to a field. Value holds the decoded JSON value:
// nil, bool, string, json.Number, or []any for list operators.
type Cond struct {
	Op    Op
	Value any
}

// Group is a conjunction of conditions keyed by field name.
type Group map[string][]Cond

// Decode parses a filter payload. It accepts null, a single group object or
// an array of group objects.
func Decode(raw json.RawMessage) ([]Group, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var items []json.RawMessage
	if raw[0] == '{' {
		items = []json.RawMessage{raw}
	} else if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.ParamDecodeFailure("filters must be an object or an array of objects", err)
	}

	groups := make([]Group, 0, len(items))
	for i, item := range items {
		g, err := decodeGroup(item)
		if err != nil {
			return nil, errors.ParamDecodeFailure(fmt.Sprintf("filters[%d]: %s", i, err.Error()), err)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func decodeGroup(raw json.RawMessage) (Group, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("group must be an object")
	}
	if fields == nil {
		return nil, fmt.Errorf("group must be an object")
	}

	g := make(Group, len(fields))
	for name, v := range fields {
		conds, err := decodeConds(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		g[name] = conds
	}
	return g, nil
}

func decodeConds(raw json.RawMessage) ([]Cond, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] != '{' {
		v, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		if _, isList := v.([]any); isList {
			return nil, fmt.Errorf("shorthand value must be a scalar")
		}
		return []Cond{{Op: OpEq, Value: v}}, nil
	}

	var ops map[string]json.RawMessage
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("no operator")
	}

	conds := make([]Cond, 0, len(ops))
	for name, v := range ops {
		op := Op(name)
		if !Known(op) {
			return nil, fmt.Errorf("unknown operator %q", name)
		}
		val, err := decodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		_, isList := val.([]any)
		switch {
		case takesList(op) && !isList:
			return nil, fmt.Errorf("%s expects an array", name)
		case !takesList(op) && isList:
			return nil, fmt.Errorf("%s expects a scalar", name)
		case op == OpNull:
			if _, ok := val.(bool); !ok {
				return nil, fmt.Errorf("%s expects a boolean", name)
			}
		}
		conds = append(conds, Cond{Op: op, Value: val})
	}
	sort.Slice(conds, func(i, j int) bool { return rank[conds[i].Op] < rank[conds[j].Op] })
	return conds, nil
}

func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		for _, item := range list {
			switch item.(type) {
			case map[string]any, []any:
				return nil, fmt.Errorf("array items must be scalars")
			}
		}
		return list, nil
	}
	if _, ok := v.(map[string]any); ok {
		return nil, fmt.Errorf("value must be a scalar")
	}
	return v, nil
}
