// Package logger builds the zap logger every command and the status API share.
//
// Level accepts debug, info, warn and error. Format json is meant for the scheduled
// service and console for interactive use.
//
//	log, err := logger.New(&cfg.Log)
//
// WithRun tags entries with the id of the sync run they belong to, and WithRayID tags them
// with the request id set by the rayid middleware:
//
//	l := logger.WithRun(log, runID)
//	l.Warn("Entity failed", zap.String("source_id", id), zap.Error(err))
package logger
