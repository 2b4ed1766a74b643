package model

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/uno-framework/uno/vars"
)

// Field is one mapped column of a model struct.
type Field struct {
	Name   string
	Column string
	Index  int
	IsPK   bool
	GoType reflect.Type
}

// Schema is the table mapping derived from a struct type. Mapping is driven
// by `uno:"column"` tags; `uno:"id,pk"` marks the primary key, `uno:"-"`
// skips a field, untagged exported fields map to their snake_cased name.
type Schema struct {
	Table  string
	Fields []Field
	PK     Field
	Type   reflect.Type

	byColumn map[string]int
}

type tableNamer interface {
	TableName() string
}

func SchemaOf(v interface{}) (*Schema, error) {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model: %s is not a struct", t.String())
	}
	sch := &Schema{Type: t, byColumn: map[string]int{}}

	if namer, ok := v.(tableNamer); ok {
		sch.Table = namer.TableName()
	} else if namer, ok := reflect.New(t).Interface().(tableNamer); ok {
		sch.Table = namer.TableName()
	} else {
		sch.Table = snakeCase(t.Name())
	}
	if sch.Table == "" {
		return nil, vars.ErrTableNameEmpty
	}

	hasPK := false
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("uno")
		if tag == "-" {
			continue
		}
		column, isPK := splitTag(tag)
		if column == "" {
			column = snakeCase(sf.Name)
		}
		f := Field{Name: sf.Name, Column: column, Index: i, IsPK: isPK, GoType: sf.Type}
		if isPK {
			if hasPK {
				return nil, fmt.Errorf("model: %s declares more than one primary key", t.Name())
			}
			hasPK = true
			sch.PK = f
		}
		sch.byColumn[column] = len(sch.Fields)
		sch.Fields = append(sch.Fields, f)
	}
	if !hasPK {
		return nil, vars.ErrNoPrimaryKey
	}
	return sch, nil
}

func splitTag(tag string) (column string, isPK bool) {
	if tag == "" {
		return "", false
	}
	parts := strings.Split(tag, ",")
	column = parts[0]
	for _, p := range parts[1:] {
		if p == "pk" {
			isPK = true
		}
	}
	return column, isPK
}

// FieldByColumn resolves a column name; used to reject unknown identifiers
// before any SQL is assembled.
func (s *Schema) FieldByColumn(column string) (Field, bool) {
	i, ok := s.byColumn[column]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

func (s *Schema) Columns() []string {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = f.Column
	}
	return cols
}

// CreateTableSQL emits a minimal DDL statement for bootstrap and tests.
func (s *Schema) CreateTableSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", s.Table)
	for i, f := range s.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Column)
		b.WriteString(" ")
		b.WriteString(sqlTypeOf(f.GoType))
		if f.IsPK {
			b.WriteString(" PRIMARY KEY")
		}
	}
	b.WriteString(");")
	return b.String()
}

func sqlTypeOf(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Bool:
		return "BOOLEAN"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "BIGINT"
	case reflect.Float32, reflect.Float64:
		return "DOUBLE PRECISION"
	case reflect.Slice:
		return "BYTEA"
	case reflect.Struct:
		if t.String() == "time.Time" {
			return "TIMESTAMP WITH TIME ZONE"
		}
	}
	return "TEXT"
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && !unicode.IsUpper(rune(s[i-1])) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
