package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/stillcast/stillcast-api/internal/encode"
	"github.com/stillcast/stillcast-api/internal/fetch"
	"github.com/stillcast/stillcast-api/internal/video"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing;
// larger uploads spill to disk.
const maxUploadMemory = 32 << 20

// Creator is the use case the handlers drive.
type Creator interface {
	Create(ctx context.Context, req video.Request) (*video.Result, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	creator    Creator
	validator  *validator.Validate
	logger     *slog.Logger
	bounds     ParamBounds
	baseline   encode.Profile
	compressed encode.Profile
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(creator Creator, bounds ParamBounds, baseline, compressed encode.Profile, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		creator:    creator,
		validator:  validator.New(),
		logger:     logger,
		bounds:     bounds,
		baseline:   baseline,
		compressed: compressed,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateVideo handles POST /videos requests with the baseline profile.
func (h *Handlers) CreateVideo(w http.ResponseWriter, r *http.Request) {
	h.handleCreate(w, r, h.baseline, false)
}

// CreateCompressedVideo handles POST /videos/compressed requests with the
// rate-controlled profile and optional intro segment.
func (h *Handlers) CreateCompressedVideo(w http.ResponseWriter, r *http.Request) {
	h.handleCreate(w, r, h.compressed, true)
}

// handleCreate parses and clamps parameters, resolves the source, and runs
// the encode use case.
func (h *Handlers) handleCreate(w http.ResponseWriter, r *http.Request, profile encode.Profile, withIntro bool) {
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			h.logger.Warn("failed to parse multipart form",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadRequest, "invalid multipart form", "INVALID_FORM")
			return
		}
	}

	src, file, ok := h.resolveSource(w, r, "url", "image")
	if !ok {
		return
	}
	if file != nil {
		defer func() { _ = file.Close() }()
	}

	req := video.Request{
		Source:  src,
		Profile: profile,
		Params: encode.Params{
			DurationSec: h.bounds.duration(r.FormValue("duration")),
			FPS:         h.bounds.fps(r.FormValue("fps")),
			Width:       h.bounds.width(r.FormValue("width")),
			Height:      h.bounds.height(r.FormValue("height")),
		},
	}

	if withIntro {
		req.IntroSec = h.bounds.introDuration(r.FormValue("intro_duration"))
		if req.IntroSec > 0 {
			intro, f, ok := h.resolveOptionalSource(w, r, "intro_url", "intro")
			if !ok {
				return
			}
			if f != nil {
				defer func() { _ = f.Close() }()
			}
			req.Intro = intro
		}
	}

	result, err := h.creator.Create(r.Context(), req)
	if err != nil {
		h.writeCreateError(w, err)
		return
	}

	h.logger.Info("video created",
		slog.String("id", result.ID),
		slog.Int("duration_sec", result.DurationSec),
		slog.Int("fps", result.FPS),
		slog.Int("width", result.Width),
		slog.Int("height", result.Height),
	)

	writeJSON(w, http.StatusOK, VideoResponse{
		ID:          result.ID,
		Filename:    result.Filename,
		DurationSec: result.DurationSec,
		FPS:         result.FPS,
		Width:       result.Width,
		Height:      result.Height,
		URL:         result.URL,
		RelPath:     result.RelPath,
		S3URL:       result.S3URL,
	})
}

// resolveSource extracts the required source: exactly one of the URL
// parameter or the upload field. Reports the client error itself and
// returns ok=false when the request cannot proceed.
func (h *Handlers) resolveSource(w http.ResponseWriter, r *http.Request, urlField, fileField string) (video.Source, multipart.File, bool) {
	rawURL := r.FormValue(urlField)
	file, header, err := r.FormFile(fileField)
	hasFile := err == nil

	switch {
	case rawURL == "" && !hasFile:
		writeError(w, http.StatusBadRequest, "a source URL or an uploaded file is required", "SOURCE_REQUIRED")
		return video.Source{}, nil, false
	case rawURL != "" && hasFile:
		_ = file.Close()
		writeError(w, http.StatusBadRequest, "provide either a source URL or an uploaded file, not both", "AMBIGUOUS_SOURCE")
		return video.Source{}, nil, false
	case hasFile:
		return video.Source{UploadName: header.Filename, Upload: file}, file, true
	default:
		if err := h.validator.Var(rawURL, "url"); err != nil {
			writeError(w, http.StatusBadRequest, "source URL is not a valid URL", "INVALID_URL")
			return video.Source{}, nil, false
		}
		return video.Source{URL: rawURL}, nil, true
	}
}

// resolveOptionalSource extracts an optional source (the intro). Absence is
// fine; an ambiguous or malformed source is still a client error.
func (h *Handlers) resolveOptionalSource(w http.ResponseWriter, r *http.Request, urlField, fileField string) (video.Source, multipart.File, bool) {
	rawURL := r.FormValue(urlField)
	file, header, err := r.FormFile(fileField)
	hasFile := err == nil

	switch {
	case rawURL == "" && !hasFile:
		return video.Source{}, nil, true
	case rawURL != "" && hasFile:
		_ = file.Close()
		writeError(w, http.StatusBadRequest, "provide either an intro URL or an intro upload, not both", "AMBIGUOUS_SOURCE")
		return video.Source{}, nil, false
	case hasFile:
		return video.Source{UploadName: header.Filename, Upload: file}, file, true
	default:
		if err := h.validator.Var(rawURL, "url"); err != nil {
			writeError(w, http.StatusBadRequest, "intro URL is not a valid URL", "INVALID_URL")
			return video.Source{}, nil, false
		}
		return video.Source{URL: rawURL}, nil, true
	}
}

// writeCreateError maps use-case failures onto the error taxonomy: client
// input and validation errors, upstream fetch errors, encode errors. The
// underlying message is passed through for diagnosis; internals like stack
// traces or local paths are never exposed.
func (h *Handlers) writeCreateError(w http.ResponseWriter, err error) {
	var tooLarge *fetch.TooLargeError

	switch {
	case errors.Is(err, video.ErrNoSource):
		writeError(w, http.StatusBadRequest, err.Error(), "SOURCE_REQUIRED")
	case errors.Is(err, fetch.ErrDisallowedType):
		writeError(w, http.StatusBadRequest, err.Error(), "DISALLOWED_TYPE")
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, tooLarge.Error(), "SOURCE_TOO_LARGE")
	case errors.Is(err, fetch.ErrTransfer), errors.Is(err, fetch.ErrTooManyRedirects), errors.Is(err, fetch.ErrBadStatus):
		writeError(w, http.StatusBadGateway, err.Error(), "FETCH_FAILED")
	default:
		h.logger.Error("video creation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, err.Error(), "ENCODE_FAILED")
	}
}

// isMultipart reports whether the request body is multipart form data.
func isMultipart(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(ct)
	return err == nil && mediaType == "multipart/form-data"
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
