// Package server exposes the HTTP control surface: simulation start/stop and
// status endpoints for the dashboard, the transcripts API, the websocket
// upgrade path, a health probe, and Prometheus metrics.
//
// Responses use a uniform envelope: {"success": true, "data": ...} on
// success and {"success": false, "error": "..."} on failure.
package server
