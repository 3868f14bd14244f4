// Package streamhandler provides handlers that write formatted
// records to a fixed stream, one line per record.
//
// New targets the process's stdout or stderr; NewWriter accepts any
// io.Writer, which is what tests and custom sinks use. Writes are
// serialized by a handler-owned mutex and rely on the OS's default
// stream buffering. Write failures are swallowed: a broken pipe on
// stderr must never take the application down with it.
package streamhandler
