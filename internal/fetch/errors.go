package fetch

import (
	"errors"
	"fmt"
)

// Static errors for fetch operations.
var (
	// ErrSourceURLRequired is returned when no source URL is provided.
	ErrSourceURLRequired = errors.New("fetch: source URL is required")
	// ErrDisallowedType is returned when neither the responder's content type
	// nor the source path extension maps to an allowed image type.
	ErrDisallowedType = errors.New("fetch: source is not an allowed image type (jpeg or png)")
	// ErrTooManyRedirects is returned when the source redirects more times
	// than the configured limit.
	ErrTooManyRedirects = errors.New("fetch: too many redirects")
	// ErrBadStatus is returned when the source responds with a non-200 status.
	ErrBadStatus = errors.New("fetch: source returned non-OK status")
	// ErrTransfer wraps network failures (connection, timeout, mid-body read)
	// so callers can classify them as upstream fetch errors.
	ErrTransfer = errors.New("fetch: transfer failed")
)

// TooLargeError is returned when a source's declared or actual size exceeds
// the configured byte cap. Both the observed size and the limit are carried
// for diagnosability; Size is negative when only the cap breach is known.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	if e.Size < 0 {
		return fmt.Sprintf("fetch: source exceeds the %d byte limit", e.Limit)
	}
	return fmt.Sprintf("fetch: source is %d bytes, exceeds the %d byte limit", e.Size, e.Limit)
}

// IsTooLarge reports whether err is a size-cap violation.
func IsTooLarge(err error) bool {
	var tl *TooLargeError
	return errors.As(err, &tl)
}
