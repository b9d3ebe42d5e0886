package temporal

import "go.uber.org/zap"

// ZapAdapter bridges the Temporal SDK's keyval logger to zap, so worker and
// workflow logs land in the same stream as the rest of the sync services.
type ZapAdapter struct{ *zap.SugaredLogger }

// NewZapAdapter wraps a zap logger for use as a Temporal SDK logger.
func NewZapAdapter(logger *zap.Logger) *ZapAdapter {
	// Sugared so the SDK's keyvals pass through unchanged.
	return &ZapAdapter{logger.Sugar()}
}

func (z *ZapAdapter) Debug(msg string, keyvals ...interface{}) {
	z.Debugw(msg, keyvals...)
}
func (z *ZapAdapter) Info(msg string, keyvals ...interface{}) { z.Infow(msg, keyvals...) }
func (z *ZapAdapter) Warn(msg string, keyvals ...interface{}) { z.Warnw(msg, keyvals...) }
func (z *ZapAdapter) Error(msg string, keyvals ...interface{}) {
	z.Errorw(msg, keyvals...)
}
