// Package logging configures structured JSON logging for docqa.
//
// Logs go to a size-rotated file under ~/.docqa/logs/ and, unless the
// process speaks a protocol on its standard streams (MCP over stdio),
// are mirrored to stderr.
package logging
