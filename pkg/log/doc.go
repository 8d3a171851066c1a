// Package log is a small wrapper around the standard library logger that
// gives every service its own named logger.
//
// Every line carries a level and the service name:
//
//	2025/01/02 15:04:05.000000 WARN [cache] redis get failed: dial tcp: connection refused
//
// Usage:
//
//	l := log.ForService("search")
//	l.Infof("serving %d items", n)
//	l.Debugf("cache key %s", key) // printed only when debug is enabled
//
// The minimum level is process wide (SetLevel, driven by the log_level
// config value and the --debug flag). Debug output can also be enabled for
// a single service with EnableDebugFor.
//
// The package name collides with the standard library "log"; alias one of
// them when both are needed.
package log
