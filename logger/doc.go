// Package logger is the public API of cascade. Most users only need
// to import this package.
//
// Loggers form a dot-separated hierarchy rooted at the unnamed root
// logger. GetLogger returns the unique instance for a name, creating
// it and its ancestors on first use:
//
//	log := logger.GetLogger("app.db")
//	log.Info("connected to %s", addr)
//
// A logger without an explicit level inherits the nearest ancestor's
// level; the root logger defaults to WarningLevel. Records accepted
// by a logger are offered to its own handlers and then to every
// ancestor's handlers until propagation is disabled.
//
// Handlers attach to any logger in the tree:
//
//	h, err := filehandler.New("/var/log/app.log", filehandler.Append)
//	if err != nil {
//	    ...
//	}
//	logger.Root().AddHandler(h)
//
// The level gate runs before the record is built, so a filtered-out
// call costs one atomic load and a comparison in the common case.
//
// FlushAll and Shutdown operate on every handler attached anywhere in
// the tree; call Shutdown before process exit so batching handlers
// drain their queues.
package logger
