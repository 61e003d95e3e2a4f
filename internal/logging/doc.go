// Package logging configures slog for amanrag.
//
// By default records go to stderr at warn level so search output stays
// clean. With --debug (or logging.file set in config) JSON records are also
// written to a size-rotated file under ~/.amanrag/logs/.
package logging
