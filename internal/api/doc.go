// Package api contains the HTTP handlers for the image generation API:
// authentication, batch creation and retrieval, and the task status
// endpoint the image runner reports back to. Handlers decode and validate
// requests, call services, and map errors to sanitized responses.
package api
