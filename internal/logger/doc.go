// Package logger wraps a global zap sugared logger with context helpers.
//
// Loops store a named logger in their context (WithName, WithKV) and log
// through the package functions (InfoKV, WarnKV, DebugKV), which pick the
// logger up from the context and fall back to the global one.
package logger
