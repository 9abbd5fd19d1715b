// Package logging configures structured JSON logging for songbook.
// Logs go to a size-rotated file under ~/.songbook/logs/ and, optionally,
// to stderr. The --debug flag lowers the level to debug.
package logging
