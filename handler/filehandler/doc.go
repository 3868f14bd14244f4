// Package filehandler provides handlers that append formatted records
// to a file, one line per record.
//
// FileHandler buffers writes through a bufio.Writer but flushes after
// every record, so a crash loses at most the record being written.
// The file is opened at construction and an unwritable path fails
// there, never at first emission. Steady-state write and flush
// failures are swallowed, optionally reported through an error
// callback.
//
// RotatingFileHandler adds size-based rotation with numeric-suffix
// backups: when the file reaches the size limit after a flush,
// app.log becomes app.log.1, an existing app.log.1 becomes app.log.2,
// and so on up to the backup count. A backup count of zero truncates
// in place.
package filehandler
