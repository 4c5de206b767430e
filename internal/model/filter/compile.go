package filter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/R3E-Network/model_layer/internal/errors"
	"github.com/R3E-Network/model_layer/internal/model/schema"
)

// Clause is a rendered predicate and its bind arguments. SQL is empty when the
// filter matches every row.
type Clause struct {
	SQL  string
	Args []any
}

// Empty reports whether the clause places no restriction on rows.
func (c Clause) Empty() bool {
	return c.SQL == ""
}

// Compile renders groups against desc. Placeholders are numbered from
// startArg, so the clause can follow other bound arguments.
func Compile(desc *schema.Descriptor, groups []Group, startArg int) (Clause, error) {
	if len(groups) == 0 {
		return Clause{}, nil
	}
	b := &builder{desc: desc, next: startArg}

	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		sql, err := b.group(g)
		if err != nil {
			return Clause{}, err
		}
		parts = append(parts, "("+sql+")")
	}
	return Clause{SQL: strings.Join(parts, " OR "), Args: b.args}, nil
}

type builder struct {
	desc *schema.Descriptor
	next int
	args []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	p := "$" + strconv.Itoa(b.next)
	b.next++
	return p
}

func (b *builder) group(g Group) (string, error) {
	for name := range g {
		if !b.desc.HasField(name) {
			return "", errors.SchemaViolation(b.desc.Entity(), name, "unknown field")
		}
	}
	if len(g) == 0 {
		return "1 = 1", nil
	}

	var terms []string
	for _, f := range b.desc.Fields {
		conds, ok := g[f.Name]
		if !ok {
			continue
		}
		for _, c := range conds {
			t, err := b.cond(f, c)
			if err != nil {
				return "", err
			}
			terms = append(terms, t)
		}
	}
	return strings.Join(terms, " AND "), nil
}

func (b *builder) cond(f schema.Field, c Cond) (string, error) {
	if !allowed(f.Type, c.Op) {
		return "", errors.SchemaViolation(b.desc.Entity(), f.Name, fmt.Sprintf("operator %s not supported for %s", c.Op, f.Type))
	}
	col := schema.Quote(f.Name)

	switch c.Op {
	case OpNull:
		if c.Value.(bool) {
			return col + " IS NULL", nil
		}
		return col + " IS NOT NULL", nil
	case OpEq, OpNot, OpGt, OpGte, OpLt, OpLte:
		v, err := b.coerce(f, c.Value)
		if err != nil {
			return "", err
		}
		return col + " " + comparison[c.Op] + " " + b.bind(v), nil
	case OpIn, OpNotIn:
		items := c.Value.([]any)
		if len(items) == 0 {
			if c.Op == OpIn {
				return "1 = 0", nil
			}
			return "1 = 1", nil
		}
		ph := make([]string, len(items))
		for i, item := range items {
			v, err := b.coerce(f, item)
			if err != nil {
				return "", err
			}
			ph[i] = b.bind(v)
		}
		kw := " IN ("
		if c.Op == OpNotIn {
			kw = " NOT IN ("
		}
		return col + kw + strings.Join(ph, ", ") + ")", nil
	}

	p := patterns[c.Op]
	if !p.list {
		s, err := b.str(f, c.Value)
		if err != nil {
			return "", err
		}
		return b.like(col, p, s), nil
	}

	items := c.Value.([]any)
	if len(items) == 0 {
		// An empty any-of matches nothing; an empty none-of or all-of matches everything.
		if p.negate || p.all {
			return "1 = 1", nil
		}
		return "1 = 0", nil
	}
	terms := make([]string, len(items))
	for i, item := range items {
		s, err := b.str(f, item)
		if err != nil {
			return "", err
		}
		terms[i] = b.like(col, p, s)
	}
	joiner := " OR "
	if p.negate || p.all {
		joiner = " AND "
	}
	return "(" + strings.Join(terms, joiner) + ")", nil
}

func (b *builder) like(col string, p pattern, s string) string {
	arg := p.prefix + escapeLike(s) + p.suffix
	kw := " LIKE "
	if p.negate {
		kw = " NOT LIKE "
	}
	if p.ci {
		return "LOWER(" + col + ")" + kw + "LOWER(" + b.bind(arg) + `) ESCAPE '\'`
	}
	return col + kw + b.bind(arg) + ` ESCAPE '\'`
}

func (b *builder) str(f schema.Field, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.SchemaViolation(b.desc.Entity(), f.Name, "expected a string value")
	}
	return s, nil
}

// coerce converts a decoded JSON scalar to the Go value bound for a field.
func (b *builder) coerce(f schema.Field, v any) (any, error) {
	bad := func(want string) error {
		return errors.SchemaViolation(b.desc.Entity(), f.Name, "expected "+want+" value")
	}
	switch f.Type {
	case schema.Integer:
		n, ok := v.(json.Number)
		if !ok {
			return nil, bad("an integer")
		}
		i, err := n.Int64()
		if err != nil {
			return nil, bad("an integer")
		}
		return i, nil
	case schema.String:
		s, ok := v.(string)
		if !ok {
			return nil, bad("a string")
		}
		return s, nil
	case schema.Boolean:
		bv, ok := v.(bool)
		if !ok {
			return nil, bad("a boolean")
		}
		return bv, nil
	case schema.Timestamp:
		s, ok := v.(string)
		if !ok {
			return nil, bad("an RFC 3339 timestamp")
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, bad("an RFC 3339 timestamp")
		}
		return ts.UTC(), nil
	}
	return nil, bad("a supported")
}

var comparison = map[Op]string{
	OpEq:  "=",
	OpNot: "<>",
	OpGt:  ">",
	OpGte: ">=",
	OpLt:  "<",
	OpLte: "<=",
}

type pattern struct {
	prefix, suffix string
	negate         bool
	list           bool
	all            bool
	ci             bool
}

var patterns = map[Op]pattern{
	OpContains:       {prefix: "%", suffix: "%"},
	OpNotContains:    {prefix: "%", suffix: "%", negate: true},
	OpContainsAny:    {prefix: "%", suffix: "%", list: true},
	OpNotContainsAny: {prefix: "%", suffix: "%", negate: true, list: true},
	OpContainsAll:    {prefix: "%", suffix: "%", list: true, all: true},
	OpStartsWith:     {suffix: "%"},
	OpNotStartsWith:  {suffix: "%", negate: true},
	OpStartsWithAny:  {suffix: "%", list: true},
	OpEndsWith:       {prefix: "%"},
	OpNotEndsWith:    {prefix: "%", negate: true},
	OpEndsWithAny:    {prefix: "%", list: true},
	OpContainsCi:     {prefix: "%", suffix: "%", ci: true},
	OpStartsWithCi:   {suffix: "%", ci: true},
	OpEndsWithCi:     {prefix: "%", ci: true},
}

// allowed reports whether op applies to fields of type t.
func allowed(t schema.FieldType, op Op) bool {
	switch op {
	case OpEq, OpNot, OpNull:
		return true
	case OpGt, OpGte, OpLt, OpLte, OpIn, OpNotIn:
		return t != schema.Boolean
	}
	_, isPattern := patterns[op]
	return isPattern && t == schema.String
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
