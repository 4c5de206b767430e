// Package schema derives the storage shape of an entity from its Go struct.
//
// An entity declares its table name and a struct whose `db`-tagged fields are
// the columns. The resulting Descriptor is immutable and shared read-only by
// every request.
package schema

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

// FieldType is the semantic type of a column.
type FieldType int

const (
	Integer FieldType = iota + 1
	String
	Boolean
	Timestamp
)

func (t FieldType) String() string {
	switch t {
	case Integer:
		return "integer"
	case String:
		return "string"
	case Boolean:
		return "boolean"
	case Timestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Field describes one column.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool

	index []int
}

// Descriptor is the storage metadata of one entity.
type Descriptor struct {
	Table      string
	Fields     []Field
	PrimaryKey string

	byName map[string]int
}

// DefaultPrimaryKey is the primary key column of every entity.
const DefaultPrimaryKey = "id"

// Describe builds the descriptor of entity type E stored in table.
func Describe[E any](table string) (*Descriptor, error) {
	return DescribeType(table, reflect.TypeOf((*E)(nil)).Elem())
}

// MustDescribe is Describe for package-level registration; a malformed entity
// is a startup failure.
func MustDescribe[E any](table string) *Descriptor {
	d, err := Describe[E](table)
	if err != nil {
		panic(err)
	}
	return d
}

// DescribeType is the reflect.Type form of Describe.
func DescribeType(table string, t reflect.Type) (*Descriptor, error) {
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("schema: empty table name for %s", t)
	}
	fields, err := FieldsOf(t)
	if err != nil {
		return nil, fmt.Errorf("schema: %s: %w", table, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema: %s: %s declares no db fields", table, t)
	}

	d := &Descriptor{
		Table:      table,
		Fields:     fields,
		PrimaryKey: DefaultPrimaryKey,
		byName:     make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		d.byName[f.Name] = i
	}
	if _, ok := d.byName[d.PrimaryKey]; !ok {
		return nil, fmt.Errorf("schema: %s: missing primary key field %q", table, d.PrimaryKey)
	}
	return d, nil
}

// Field returns the named field.
func (d *Descriptor) Field(name string) (Field, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Field{}, false
	}
	return d.Fields[i], true
}

// HasField reports whether name is a column of d.
func (d *Descriptor) HasField(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// Entity is the name used in errors and RPC method names.
func (d *Descriptor) Entity() string {
	return d.Table
}

var fieldCache sync.Map // reflect.Type -> []Field

// FieldsOf returns the db-tagged fields of struct type t, in declaration
// order. Results are cached per type.
func FieldsOf(t reflect.Type) ([]Field, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]Field), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct", t)
	}

	var fields []Field
	seen := make(map[string]bool)
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		name := columnName(sf)
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate field %q", name)
		}
		seen[name] = true

		ft, nullable, ok := semanticType(sf.Type)
		if !ok {
			return nil, fmt.Errorf("field %q: unsupported type %s", name, sf.Type)
		}
		fields = append(fields, Field{Name: name, Type: ft, Nullable: nullable, index: sf.Index})
	}

	fieldCache.Store(t, fields)
	return fields, nil
}

// Columns returns the column names of struct type t.
func Columns(t reflect.Type) ([]string, error) {
	fields, err := FieldsOf(t)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names, nil
}

// Present returns the fields of a partial record that carry a value: every
// non-pointer field, and pointer fields that are not nil. Values are returned
// dereferenced.
func Present(record any) (names []string, values []any, err error) {
	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, nil, fmt.Errorf("nil record")
		}
		v = v.Elem()
	}
	fields, err := FieldsOf(v.Type())
	if err != nil {
		return nil, nil, err
	}
	for _, f := range fields {
		fv := v.FieldByIndex(f.index)
		if fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		names = append(names, f.Name)
		values = append(values, fv.Interface())
	}
	return names, values, nil
}

func columnName(sf reflect.StructField) string {
	tag, ok := sf.Tag.Lookup("db")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

var (
	timeType   = reflect.TypeOf(time.Time{})
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

func semanticType(t reflect.Type) (FieldType, bool, bool) {
	nullable := false
	if t.Kind() == reflect.Ptr {
		nullable = true
		t = t.Elem()
	}
	if t == timeType {
		return Timestamp, nullable, true
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Integer, nullable, true
	case reflect.String:
		return String, nullable, true
	case reflect.Bool:
		return Boolean, nullable, true
	case reflect.Array:
		// Fixed-size identifiers such as uuid.UUID are stored through their
		// driver.Valuer text form.
		if t.Implements(valuerType) {
			return String, nullable, true
		}
	}
	return 0, false, false
}

// Quote returns name as a double-quoted SQL identifier.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
