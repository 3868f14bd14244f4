package formatter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cascadelog/cascade/core"
)

// Style selects the template grammar of a PatternFormatter.
type Style int

const (
	// PercentStyle uses printf-like named conversions: "%(name)s",
	// with optional width/precision/zero-padding modifiers.
	PercentStyle Style = iota
	// BraceStyle uses plain named substitution: "{name}".
	BraceStyle
	// DollarStyle uses shell-like substitution: "$name" or "${name}".
	DollarStyle
)

// String returns the conventional one-character tag of the style.
func (s Style) String() string {
	switch s {
	case PercentStyle:
		return "%"
	case BraceStyle:
		return "{"
	case DollarStyle:
		return "$"
	default:
		return "?"
	}
}

// DefaultTemplate is the template used when a handler has no explicit
// formatter.
const DefaultTemplate = "%(levelname)s:%(name)s:%(message)s"

// defaultAsctimeLayout renders "2006-01-02 15:04:05,123", with the
// millisecond part appended by the renderer.
const defaultAsctimeLayout = "2006-01-02 15:04:05"

// verb is the conversion type of a percent-style segment.
type verb byte

const (
	verbString verb = 's'
	verbInt    verb = 'd'
	verbFloat  verb = 'f'
)

// segment is one compiled piece of a template: either a literal or a
// field substitution with its percent-style modifiers.
type segment struct {
	literal   string
	field     string
	verb      verb
	leftAlign bool
	zeroPad   bool
	width     int
	precision int // -1 when absent
}

// PatternFormatter renders records through a compiled template.
// It is stateless after construction and safe for concurrent use.
type PatternFormatter struct {
	style         Style
	template      string
	dateLayout    string // "" selects the default asctime rendering
	segments      []segment
	refsErrFields bool
}

type cacheKey struct {
	style    Style
	template string
	datefmt  string
}

// compiled caches one parsed representation per distinct
// (style, template, datefmt). Entries live for the process lifetime;
// template sets are small and static in practice.
var compiled sync.Map // cacheKey -> *PatternFormatter

// New compiles a template in the given style. The optional datefmt is
// a strftime-like sub-format for the "asctime" field. Malformed
// templates and date formats are rejected here, never at render time.
func New(template string, style Style, datefmt string) (*PatternFormatter, error) {
	key := cacheKey{style: style, template: template, datefmt: datefmt}
	if f, ok := compiled.Load(key); ok {
		return f.(*PatternFormatter), nil
	}

	var dateLayout string
	if datefmt != "" {
		layout, err := toGoLayout(datefmt)
		if err != nil {
			return nil, err
		}
		dateLayout = layout
	}

	var (
		segs []segment
		err  error
	)
	switch style {
	case PercentStyle:
		segs, err = parsePercent(template)
	case BraceStyle:
		segs, err = parseBrace(template)
	case DollarStyle:
		segs, err = parseDollar(template)
	default:
		err = fmt.Errorf("unknown formatter style %d", style)
	}
	if err != nil {
		return nil, err
	}

	f := &PatternFormatter{
		style:      style,
		template:   template,
		dateLayout: dateLayout,
		segments:   segs,
	}
	for _, s := range segs {
		if s.field == "error" || s.field == "stack" {
			f.refsErrFields = true
		}
	}

	actual, _ := compiled.LoadOrStore(key, f)
	return actual.(*PatternFormatter), nil
}

// MustNew is New for known-good templates; it panics on a compile
// error and is intended for package-level defaults.
func MustNew(template string, style Style, datefmt string) *PatternFormatter {
	f, err := New(template, style, datefmt)
	if err != nil {
		panic(err)
	}
	return f
}

var defaultFormatter = MustNew(DefaultTemplate, PercentStyle, "")

// Default returns the shared formatter used by handlers without an
// explicit one.
func Default() *PatternFormatter {
	return defaultFormatter
}

// Format formats a record through the compiled template.
func (f *PatternFormatter) Format(record *core.Record) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	f.FormatRecord(record, buf)

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// FormatRecord formats a record into the given buffer (implements
// BufferFormatter).
func (f *PatternFormatter) FormatRecord(record *core.Record, buf *bytes.Buffer) {
	for i := range f.segments {
		s := &f.segments[i]
		if s.field == "" {
			buf.WriteString(s.literal)
			continue
		}
		f.renderField(record, s, buf)
	}

	// Error and stack text render multi-line after the message unless
	// the template placed them itself.
	if !f.refsErrFields {
		if text := record.ErrText(); text != "" {
			buf.WriteByte('\n')
			buf.WriteString(text)
		}
	}
}

// renderField resolves one field and writes it with the segment's
// modifiers applied.
func (f *PatternFormatter) renderField(record *core.Record, s *segment, buf *bytes.Buffer) {
	switch s.verb {
	case verbInt:
		writePaddedInt(buf, f.intField(record, s.field), s)
	case verbFloat:
		prec := s.precision
		if prec < 0 {
			prec = 6
		}
		writePaddedString(buf, strconv.FormatFloat(f.floatField(record, s.field), 'f', prec, 64),
			&segment{width: s.width, leftAlign: s.leftAlign, precision: -1})
	default:
		writePaddedString(buf, f.stringField(record, s.field), s)
	}
}

// stringField resolves a field to its string rendering.
func (f *PatternFormatter) stringField(record *core.Record, name string) string {
	switch name {
	case "message":
		return record.Message()
	case "name":
		if record.Name == "" {
			return "root"
		}
		return record.Name
	case "levelname":
		return record.Level.String()
	case "levelno":
		return strconv.FormatInt(int64(record.Level), 10)
	case "asctime":
		return f.asctime(record)
	case "pathname":
		return record.Caller.File
	case "filename":
		return record.Caller.ShortFile
	case "module":
		return record.Caller.Module
	case "lineno":
		return strconv.Itoa(record.Caller.Line)
	case "funcName":
		return record.Caller.Function
	case "created":
		return strconv.FormatFloat(record.Created(), 'f', -1, 64)
	case "msecs":
		return strconv.Itoa(record.Msecs())
	case "process":
		return strconv.Itoa(record.Process)
	case "processName":
		return filepath.Base(os.Args[0])
	case "thread":
		return strconv.FormatUint(record.Goroutine, 10)
	case "threadName":
		return record.GoroutineName
	case "error":
		if record.Err != nil {
			return record.Err.Error()
		}
		return ""
	case "stack":
		return record.Stack
	default:
		if fld, ok := record.Lookup(name); ok {
			return fld.StringValue()
		}
		return ""
	}
}

// intField resolves the numeric fields usable with the d verb.
func (f *PatternFormatter) intField(record *core.Record, name string) int64 {
	switch name {
	case "levelno":
		return int64(record.Level)
	case "lineno":
		return int64(record.Caller.Line)
	case "msecs":
		return int64(record.Msecs())
	case "process":
		return int64(record.Process)
	case "thread":
		return int64(record.Goroutine)
	default:
		if fld, ok := record.Lookup(name); ok {
			return fld.Int64
		}
		return 0
	}
}

// floatField resolves the fractional fields usable with the f verb.
func (f *PatternFormatter) floatField(record *core.Record, name string) float64 {
	switch name {
	case "created":
		return record.Created()
	case "msecs":
		return float64(record.Msecs())
	default:
		if fld, ok := record.Lookup(name); ok {
			return fld.Float64
		}
		return 0
	}
}

func (f *PatternFormatter) asctime(record *core.Record) string {
	if f.dateLayout != "" {
		return record.Time.Format(f.dateLayout)
	}
	return record.Time.Format(defaultAsctimeLayout) + "," + pad3(record.Msecs())
}

func pad3(n int) string {
	s := strconv.Itoa(n)
	switch len(s) {
	case 1:
		return "00" + s
	case 2:
		return "0" + s
	default:
		return s
	}
}

func writePaddedString(buf *bytes.Buffer, v string, s *segment) {
	if s.precision >= 0 && len(v) > s.precision {
		v = v[:s.precision]
	}
	pad := s.width - len(v)
	if pad <= 0 {
		buf.WriteString(v)
		return
	}
	if s.leftAlign {
		buf.WriteString(v)
		writeRepeat(buf, ' ', pad)
		return
	}
	writeRepeat(buf, ' ', pad)
	buf.WriteString(v)
}

func writePaddedInt(buf *bytes.Buffer, v int64, s *segment) {
	digits := strconv.FormatInt(v, 10)
	pad := s.width - len(digits)
	if pad <= 0 {
		buf.WriteString(digits)
		return
	}
	switch {
	case s.leftAlign:
		buf.WriteString(digits)
		writeRepeat(buf, ' ', pad)
	case s.zeroPad && v >= 0:
		writeRepeat(buf, '0', pad)
		buf.WriteString(digits)
	case s.zeroPad:
		buf.WriteByte('-')
		writeRepeat(buf, '0', pad)
		buf.WriteString(digits[1:])
	default:
		writeRepeat(buf, ' ', pad)
		buf.WriteString(digits)
	}
}

func writeRepeat(buf *bytes.Buffer, c byte, n int) {
	for i := 0; i < n; i++ {
		buf.WriteByte(c)
	}
}
