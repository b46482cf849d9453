// Package logging provides structured logging for repolens.
//
// # Overview
//
// The package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Console or JSON output on stderr (stdout stays free for tables)
//   - Automatic context field injection (trace_id, repo, operation)
//   - Redaction of token-looking values before they are written
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRepo(ctx, "octo/demo")
//	logger.Warn(ctx, "error accessing directory", zap.String("path", p))
//
// # Testing
//
// NewTestLogger records every entry in memory:
//
//	tl := logging.NewTestLogger()
//	svc := repository.NewService(store, client, tl.Logger)
//	tl.AssertLogged(t, zapcore.WarnLevel, "collection not found")
package logging
