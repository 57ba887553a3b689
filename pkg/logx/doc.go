// Package logx provides the process-wide structured logging layer.
//
// It wraps zerolog behind a small Logger value type so components can hold
// loggers that stay "live" across runtime sink/level changes (Service.Apply).
package logx
