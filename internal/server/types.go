// Package server provides the HTTP surface: request parsing with lenient
// parameter clamping, the encode endpoints, read-only artifact serving and
// the middleware chain.
package server

// VideoResponse is the HTTP response for a successfully created video.
type VideoResponse struct {
	// ID is the opaque identifier of the artifact.
	ID string `json:"id"`
	// Filename is the artifact filename inside the output directory.
	Filename string `json:"filename"`
	// DurationSec is the duration actually used after clamping.
	DurationSec int `json:"duration_sec"`
	// FPS is the frame rate actually used after clamping.
	FPS int `json:"fps"`
	// Width is the output width actually used.
	Width int `json:"width"`
	// Height is the output height actually used.
	Height int `json:"height"`
	// URL is the absolute public URL of the artifact.
	URL string `json:"url"`
	// RelPath is the public-facing relative path of the artifact.
	RelPath string `json:"rel_path"`
	// S3URL is the mirrored S3 location, when configured.
	S3URL string `json:"s3_url,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
