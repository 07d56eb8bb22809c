// Package server holds the status HTTP server configuration.
//
// The serve command owns the server startup; this package only defines the settings it
// reads, such as the listen port, the API key and the stats cache TTL.
package server
