// Package handlers provides HTTP request handlers for the media catalog API.
//
// It includes handlers for:
//   - Catalog queries with type, extension, size and path filters
//   - Catalog statistics grouped by media type
//   - Authenticated uploads and rescan triggers
//   - Scan history
//   - Health, liveness, readiness and version endpoints
package handlers
