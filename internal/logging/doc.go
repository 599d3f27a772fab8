// Package logging provides file-based logging with rotation for clicr.
// Logs are written as structured JSON to ~/.clicr/logs/ so interactive
// output stays clean; the --debug flag mirrors them to stderr.
package logging
