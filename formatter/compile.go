package formatter

import (
	"fmt"
	"strings"
)

// parsePercent parses printf-like named conversions:
//
//	%(field)[-][0][width][.precision](s|d|f)
//
// "%%" escapes a literal percent sign.
func parsePercent(template string) ([]segment, error) {
	var segs []segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(template); {
		c := template[i]
		if c != '%' {
			lit.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(template) && template[i+1] == '%' {
			lit.WriteByte('%')
			i += 2
			continue
		}
		if i+1 >= len(template) || template[i+1] != '(' {
			return nil, fmt.Errorf("%%-style template %q: bare %% at offset %d (use %%%% for a literal)", template, i)
		}

		end := strings.IndexByte(template[i+2:], ')')
		if end < 0 {
			return nil, fmt.Errorf("%%-style template %q: unclosed field group at offset %d", template, i)
		}
		field := template[i+2 : i+2+end]
		if field == "" {
			return nil, fmt.Errorf("%%-style template %q: empty field name at offset %d", template, i)
		}
		i += 2 + end + 1

		seg := segment{field: field, precision: -1}

		if i < len(template) && template[i] == '-' {
			seg.leftAlign = true
			i++
		}
		if i < len(template) && template[i] == '0' {
			seg.zeroPad = true
			i++
		}
		for i < len(template) && template[i] >= '0' && template[i] <= '9' {
			seg.width = seg.width*10 + int(template[i]-'0')
			i++
		}
		if i < len(template) && template[i] == '.' {
			i++
			seg.precision = 0
			for i < len(template) && template[i] >= '0' && template[i] <= '9' {
				seg.precision = seg.precision*10 + int(template[i]-'0')
				i++
			}
		}
		if i >= len(template) {
			return nil, fmt.Errorf("%%-style template %q: field %q has no conversion type", template, field)
		}
		switch template[i] {
		case 's':
			seg.verb = verbString
		case 'd':
			seg.verb = verbInt
		case 'f':
			seg.verb = verbFloat
		default:
			return nil, fmt.Errorf("%%-style template %q: unsupported conversion %%%c for field %q", template, template[i], field)
		}
		i++

		flush()
		segs = append(segs, seg)
	}
	flush()
	return segs, nil
}

// parseBrace parses plain named substitution: "{field}". "{{" and
// "}}" escape literal braces; no modifiers are supported.
func parseBrace(template string) ([]segment, error) {
	var segs []segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(template); {
		switch c := template[i]; c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				lit.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("{}-style template %q: unclosed substitution at offset %d", template, i)
			}
			field := template[i+1 : i+1+end]
			if field == "" {
				return nil, fmt.Errorf("{}-style template %q: empty field name at offset %d", template, i)
			}
			if j := strings.IndexAny(field, ":!"); j >= 0 {
				return nil, fmt.Errorf("{}-style template %q: field %q: format modifiers are not supported", template, field)
			}
			flush()
			segs = append(segs, segment{field: field, verb: verbString, precision: -1})
			i += 1 + end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				lit.WriteByte('}')
				i += 2
				continue
			}
			return nil, fmt.Errorf("{}-style template %q: stray '}' at offset %d", template, i)
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return segs, nil
}

// parseDollar parses shell-like substitution: "$field" or "${field}".
// "$$" escapes a literal dollar sign; no modifiers are supported.
func parseDollar(template string) ([]segment, error) {
	var segs []segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(template); {
		c := template[i]
		if c != '$' {
			lit.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(template) && template[i+1] == '$' {
			lit.WriteByte('$')
			i += 2
			continue
		}
		if i+1 < len(template) && template[i+1] == '{' {
			end := strings.IndexByte(template[i+2:], '}')
			if end < 0 {
				return nil, fmt.Errorf("$-style template %q: unclosed substitution at offset %d", template, i)
			}
			field := template[i+2 : i+2+end]
			if field == "" {
				return nil, fmt.Errorf("$-style template %q: empty field name at offset %d", template, i)
			}
			flush()
			segs = append(segs, segment{field: field, verb: verbString, precision: -1})
			i += 2 + end + 1
			continue
		}

		j := i + 1
		for j < len(template) && isIdentByte(template[j]) {
			j++
		}
		if j == i+1 {
			return nil, fmt.Errorf("$-style template %q: bare $ at offset %d (use $$ for a literal)", template, i)
		}
		flush()
		segs = append(segs, segment{field: template[i+1 : j], verb: verbString, precision: -1})
		i = j
	}
	flush()
	return segs, nil
}

func isIdentByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
