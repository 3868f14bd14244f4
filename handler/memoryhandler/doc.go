// Package memoryhandler captures records in memory. It is meant for
// tests that assert on what was logged without touching a real sink.
package memoryhandler
