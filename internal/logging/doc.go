// Package logging wraps zap for ctxpack.
//
// Loggers write JSON or console lines to stderr by default so that stdout
// stays free for bundle output. On top of plain zap the package adds:
//   - a Trace level below Debug
//   - context fields for the active span, bundle ID and request ID
//   - redaction of sensitive field names and value patterns
//   - sampling below Error; errors are never dropped
//
// Usage:
//
//	logger, err := logging.NewLogger(cfg.Logging)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithBundleID(ctx, bundleID)
//	logger.Info(ctx, "bundle built", zap.Int("files", n))
//
// Tests use NewTestLogger, which records entries in memory.
package logging
