// Package logging assembles structured slog loggers and formatting helpers used
// across cpsnap.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes typed attribute helpers plus a small set of standard
// field keys so snapshot, cache, and watch code emit lines with the same
// shape. Correlation IDs travel on the context and are attached with
// WithContext. A no-op logger is provided for tests and for components that
// were constructed without one.
package logging
