package filter

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/R3E-Network/model_layer/internal/errors"
	"github.com/R3E-Network/model_layer/internal/model/schema"
)

// OrderBy is one ordering key.
type OrderBy struct {
	Field string
	Desc  bool
}

// ParseOrderBy reads "field" or "!field" (descending).
func ParseOrderBy(s string) OrderBy {
	if strings.HasPrefix(s, "!") {
		return OrderBy{Field: s[1:], Desc: true}
	}
	return OrderBy{Field: s}
}

// ListOptions controls ordering and pagination of a list.
type ListOptions struct {
	OrderBys []OrderBy
	Offset   *int64
	Limit    *int64
}

type rawListOptions struct {
	OrderBys json.RawMessage `json:"order_bys"`
	Offset   *int64          `json:"offset"`
	Limit    *int64          `json:"limit"`
}

// DecodeListOptions parses
//
//	{"order_bys": "!id" | ["!id", "title"], "offset": n, "limit": n}
//
// A null or empty payload yields nil options.
func DecodeListOptions(raw json.RawMessage) (*ListOptions, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var r rawListOptions
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, errors.ParamDecodeFailure("list_options: invalid shape", err)
	}
	if r.Offset != nil && *r.Offset < 0 {
		return nil, errors.ParamDecodeFailure("list_options: offset must not be negative", nil)
	}
	if r.Limit != nil && *r.Limit < 0 {
		return nil, errors.ParamDecodeFailure("list_options: limit must not be negative", nil)
	}

	opts := &ListOptions{Offset: r.Offset, Limit: r.Limit}

	ob := bytes.TrimSpace(r.OrderBys)
	switch {
	case len(ob) == 0 || bytes.Equal(ob, []byte("null")):
	case ob[0] == '"':
		var s string
		if err := json.Unmarshal(ob, &s); err != nil {
			return nil, errors.ParamDecodeFailure("list_options: invalid order_bys", err)
		}
		opts.OrderBys = []OrderBy{ParseOrderBy(s)}
	default:
		var list []string
		if err := json.Unmarshal(ob, &list); err != nil {
			return nil, errors.ParamDecodeFailure("list_options: order_bys must be a string or an array of strings", err)
		}
		for _, s := range list {
			opts.OrderBys = append(opts.OrderBys, ParseOrderBy(s))
		}
	}
	return opts, nil
}

// Compile renders the ORDER BY, LIMIT and OFFSET tail of a select on desc.
// Nil options order by primary key ascending with no limit.
func (o *ListOptions) Compile(desc *schema.Descriptor) (string, error) {
	var sb strings.Builder
	sb.WriteString(" ORDER BY ")

	if o == nil || len(o.OrderBys) == 0 {
		sb.WriteString(schema.Quote(desc.PrimaryKey) + " ASC")
	} else {
		for i, ob := range o.OrderBys {
			if !desc.HasField(ob.Field) {
				return "", errors.SchemaViolation(desc.Entity(), ob.Field, "unknown order_bys field")
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(schema.Quote(ob.Field))
			if ob.Desc {
				sb.WriteString(" DESC")
			} else {
				sb.WriteString(" ASC")
			}
		}
	}

	if o != nil && o.Limit != nil {
		sb.WriteString(" LIMIT " + strconv.FormatInt(*o.Limit, 10))
	}
	if o != nil && o.Offset != nil {
		sb.WriteString(" OFFSET " + strconv.FormatInt(*o.Offset, 10))
	}
	return sb.String(), nil
}
