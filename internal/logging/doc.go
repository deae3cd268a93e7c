// Package logging wraps zap with context-aware methods.
//
// Every method takes a context and prepends its correlation fields: the
// active span's trace and span ids, and the chat session, request and turn
// ids set with WithSessionID, WithRequestID and WithTurnID.
//
// Output goes to a console sink (stdout or stderr, JSON or console format,
// passed through RedactingEncoder) and optionally to an OpenTelemetry log
// provider through the otelzap bridge. Entries below error level may be
// sampled; errors never are.
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithSessionID(ctx, sessionID)
//	logger.Info(ctx, "turn completed", zap.Int("updates", n))
package logging
