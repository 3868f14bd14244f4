// Package httphandler ships log records to an HTTP endpoint as JSON
// batches. Emission enqueues onto a bounded queue served by one
// background worker; the logging caller never waits on the network.
package httphandler
