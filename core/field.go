package core

import (
	"fmt"
	"strconv"
	"time"
)

// FieldType represents the type of a field value
type FieldType uint8

const (
	StringType FieldType = iota
	IntType
	Int64Type
	Float64Type
	BoolType
	TimeType
	DurationType
	ErrorType
	GroupType
	AnyType
)

// Field represents a typed key-value pair attached to a record's
// extra data. Formatter substitution looks fields up by key and
// stringifies them per-type.
type Field struct {
	Key     string
	Type    FieldType
	Int64   int64
	Float64 float64
	Str     string
	Any     interface{}
}

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, Type: StringType, Str: value}
}

// Int creates an int field
func Int(key string, value int) Field {
	return Field{Key: key, Type: IntType, Int64: int64(value)}
}

// Int64 creates an int64 field
func Int64(key string, value int64) Field {
	return Field{Key: key, Type: Int64Type, Int64: value}
}

// Float64 creates a float64 field
func Float64(key string, value float64) Field {
	return Field{Key: key, Type: Float64Type, Float64: value}
}

// Bool creates a bool field
func Bool(key string, value bool) Field {
	var i int64
	if value {
		i = 1
	}
	return Field{Key: key, Type: BoolType, Int64: i}
}

// Time creates a time field
func Time(key string, value time.Time) Field {
	return Field{Key: key, Type: TimeType, Int64: value.UnixNano()}
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Type: DurationType, Int64: int64(value)}
}

// Err creates an error field under the conventional "error" key
func Err(value error) Field {
	if value == nil {
		return Field{Key: "error", Type: ErrorType, Str: "<nil>"}
	}
	return Field{Key: "error", Type: ErrorType, Str: value.Error()}
}

// Group creates a nested group of fields
func Group(key string, fields ...Field) Field {
	return Field{Key: key, Type: GroupType, Any: fields}
}

// Any creates a field holding an arbitrary value
func Any(key string, value interface{}) Field {
	return Field{Key: key, Type: AnyType, Any: value}
}

// StringValue returns the string representation of a field's value
func (f Field) StringValue() string {
	switch f.Type {
	case StringType:
		return f.Str
	case IntType, Int64Type:
		return strconv.FormatInt(f.Int64, 10)
	case Float64Type:
		return strconv.FormatFloat(f.Float64, 'f', -1, 64)
	case BoolType:
		return strconv.FormatBool(f.Int64 == 1)
	case TimeType:
		return time.Unix(0, f.Int64).Format(time.RFC3339)
	case DurationType:
		return time.Duration(f.Int64).String()
	case ErrorType:
		return f.Str
	case GroupType:
		fields, _ := f.Any.([]Field)
		s := "{"
		for i, g := range fields {
			if i > 0 {
				s += " "
			}
			s += g.Key + "=" + g.StringValue()
		}
		return s + "}"
	case AnyType:
		return fmt.Sprintf("%v", f.Any)
	default:
		return ""
	}
}

// Value returns the field's value as an interface suitable for
// JSON marshalling.
func (f Field) Value() interface{} {
	switch f.Type {
	case StringType, ErrorType:
		return f.Str
	case IntType, Int64Type:
		return f.Int64
	case Float64Type:
		return f.Float64
	case BoolType:
		return f.Int64 == 1
	case TimeType:
		return time.Unix(0, f.Int64).Format(time.RFC3339Nano)
	case DurationType:
		return time.Duration(f.Int64).String()
	case GroupType:
		fields, _ := f.Any.([]Field)
		m := make(map[string]interface{}, len(fields))
		for _, g := range fields {
			m[g.Key] = g.Value()
		}
		return m
	case AnyType:
		return f.Any
	default:
		return nil
	}
}
