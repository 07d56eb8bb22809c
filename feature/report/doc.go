// Package report exports the mapping store as a spreadsheet and archives run reports in
// object storage.
package report
