package formatter

import (
	"fmt"
	"strings"
)

// strftime directives translated to Go reference-time layout elements.
// Only directives with a direct layout equivalent are listed; %f and
// %s need value-dependent rendering and are handled in toGoLayout.
var strftimeDirectives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'e': "_2",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'a': "Mon",
	'A': "Monday",
	'b': "Jan",
	'B': "January",
	'j': "002",
	'z': "-0700",
	'Z': "MST",
}

// toGoLayout converts a strftime-like date format into a Go time
// layout. Unsupported directives are rejected so malformed date
// formats surface at formatter construction rather than render time.
func toGoLayout(datefmt string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(datefmt); i++ {
		c := datefmt[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(datefmt) {
			return "", fmt.Errorf("date format %q ends with a bare %%", datefmt)
		}
		switch d := datefmt[i]; d {
		case '%':
			b.WriteByte('%')
		case 'f':
			// Microseconds, fixed six digits. Go ties fractional
			// seconds to a "." or "," separator; reuse one the
			// template already supplied.
			if s := b.String(); len(s) > 0 && (s[len(s)-1] == '.' || s[len(s)-1] == ',') {
				b.WriteString("000000")
			} else {
				b.WriteString(".000000")
			}
		default:
			layout, ok := strftimeDirectives[d]
			if !ok {
				return "", fmt.Errorf("unsupported date directive %%%c in %q", d, datefmt)
			}
			b.WriteString(layout)
		}
	}
	return b.String(), nil
}
