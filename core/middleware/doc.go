// Package middleware groups the fiber handlers that run in front of the status API.
//
// auth rejects requests without the configured X-API-Key header, except for the paths it
// is told to skip (the serve command skips /health). rayid tags each request with an id
// that is echoed in the response and picked up by logger.WithRayID.
package middleware
