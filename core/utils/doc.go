// Package utils provides small conversion helpers shared by the source and destination
// adapters: global id handling, tag splitting, order name parsing and truncation.
package utils
