// Package logger wraps a process-wide zap logger behind context-first helpers.
// Console output goes to stderr; an optional rotating JSON log file can be teed in.
package logger
