package formatter

import (
	"bytes"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/cascadelog/cascade/core"
)

// JSONFormatter formats records as one JSON object per line.
type JSONFormatter struct {
	// TimestampFormat specifies the time layout (empty for RFC3339Nano)
	TimestampFormat string
	// IncludeCaller enables source location in the output
	IncludeCaller bool
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{TimestampFormat: time.RFC3339Nano}
}

// Format formats a record as JSON
func (f *JSONFormatter) Format(record *core.Record) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	f.FormatRecord(record, buf)

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// FormatRecord formats a record as JSON into the given buffer
// (implements BufferFormatter).
func (f *JSONFormatter) FormatRecord(record *core.Record, buf *bytes.Buffer) {
	layout := f.TimestampFormat
	if layout == "" {
		layout = time.RFC3339Nano
	}

	buf.WriteByte('{')

	buf.WriteString(`"time":"`)
	buf.Write(record.Time.AppendFormat(buf.AvailableBuffer(), layout))
	buf.WriteByte('"')

	buf.WriteString(`,"level":"`)
	buf.WriteString(record.Level.String())
	buf.WriteByte('"')

	buf.WriteString(`,"name":"`)
	appendJSONString(buf, record.Name)
	buf.WriteByte('"')

	buf.WriteString(`,"message":"`)
	appendJSONString(buf, record.Message())
	buf.WriteByte('"')

	if f.IncludeCaller && record.Caller.Defined {
		buf.WriteString(`,"caller":{"file":"`)
		appendJSONString(buf, record.Caller.ShortFile)
		buf.WriteString(`","line":`)
		buf.WriteString(strconv.Itoa(record.Caller.Line))
		if record.Caller.Function != "" {
			buf.WriteString(`,"function":"`)
			appendJSONString(buf, record.Caller.Function)
			buf.WriteByte('"')
		}
		buf.WriteByte('}')
	}

	if record.Err != nil {
		buf.WriteString(`,"error":"`)
		appendJSONString(buf, record.Err.Error())
		buf.WriteByte('"')
	}
	if record.Stack != "" {
		buf.WriteString(`,"stack":"`)
		appendJSONString(buf, record.Stack)
		buf.WriteByte('"')
	}

	for _, field := range record.Extra {
		buf.WriteString(`,"`)
		appendJSONString(buf, field.Key)
		buf.WriteString(`":`)
		appendJSONValue(buf, field)
	}

	buf.WriteByte('}')
}

// appendJSONValue writes a field value with native JSON typing where
// the variant allows it.
func appendJSONValue(buf *bytes.Buffer, field core.Field) {
	switch field.Type {
	case core.IntType, core.Int64Type:
		buf.WriteString(strconv.FormatInt(field.Int64, 10))
	case core.Float64Type:
		buf.WriteString(strconv.FormatFloat(field.Float64, 'f', -1, 64))
	case core.BoolType:
		buf.WriteString(strconv.FormatBool(field.Int64 == 1))
	case core.GroupType:
		buf.WriteByte('{')
		fields, _ := field.Any.([]core.Field)
		for i, g := range fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			appendJSONString(buf, g.Key)
			buf.WriteString(`":`)
			appendJSONValue(buf, g)
		}
		buf.WriteByte('}')
	default:
		buf.WriteByte('"')
		appendJSONString(buf, field.StringValue())
		buf.WriteByte('"')
	}
}

const hexDigits = "0123456789abcdef"

// appendJSONString writes s with JSON string escaping.
func appendJSONString(buf *bytes.Buffer, s string) {
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"':
				buf.WriteString(`\"`)
			case c == '\\':
				buf.WriteString(`\\`)
			case c == '\n':
				buf.WriteString(`\n`)
			case c == '\r':
				buf.WriteString(`\r`)
			case c == '\t':
				buf.WriteString(`\t`)
			case c < 0x20:
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[c>>4])
				buf.WriteByte(hexDigits[c&0xf])
			default:
				buf.WriteByte(c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf.WriteString(`�`)
			i++
			continue
		}
		buf.WriteString(s[i : i+size])
		i += size
	}
}
