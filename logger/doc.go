// Package logger builds the zap loggers used by careauthd and adapts them to
// echo: a request logger middleware and a bridge for echo's own Logger
// interface.
package logger
