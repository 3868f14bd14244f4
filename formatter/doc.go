// Package formatter renders records into their final textual form.
//
// The central type is PatternFormatter, which compiles a template in
// one of three mutually exclusive styles:
//
//   - PercentStyle: printf-like named conversions with width,
//     precision and zero-padding modifiers, e.g. "%(levelname)-8s".
//   - BraceStyle: plain named substitution, e.g. "{levelname}".
//   - DollarStyle: shell-like substitution, e.g. "$levelname" or
//     "${levelname}" (no modifiers).
//
// Templates are compiled once per distinct (style, template, datefmt)
// triple and cached in a concurrent map, so repeated construction with
// the same template never re-parses it. The "asctime" field renders
// through a strftime-like date sub-format translated to a Go time
// layout at compile time.
//
// Captured error and stack text is appended on separate lines after
// the rendered template, unless the template references the "error"
// or "stack" fields itself.
//
// JSONFormatter is an alternative line-oriented formatter producing
// one JSON object per record.
package formatter
