package server

import (
	"strconv"
	"strings"
)

// Dimension bounds for requested output sizes. Out-of-range values clamp
// rather than reject, matching the deliberate leniency policy for numeric
// parameters.
const (
	minDimension = 1
	maxDimension = 4096
)

// ParamBounds carries the clamping defaults and limits resolved from
// configuration at startup.
type ParamBounds struct {
	DefaultDurationSec int
	MaxDurationSec     int
	DefaultFPS         int
	MaxFPS             int
	DefaultWidth       int
	DefaultHeight      int
	IntroMaxSec        int
}

// clampInt coerces raw to an integer within [low, high]. Non-numeric or
// empty input falls back to def; out-of-range input snaps to the nearest
// bound. Nothing is ever rejected here.
func clampInt(raw string, def, low, high int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		n = def
	}
	if n < low {
		return low
	}
	if n > high {
		return high
	}
	return n
}

// duration clamps the requested clip duration to [1, max].
func (b ParamBounds) duration(raw string) int {
	return clampInt(raw, b.DefaultDurationSec, 1, b.MaxDurationSec)
}

// fps clamps the requested frame rate to [1, max].
func (b ParamBounds) fps(raw string) int {
	return clampInt(raw, b.DefaultFPS, 1, b.MaxFPS)
}

// width clamps the requested output width.
func (b ParamBounds) width(raw string) int {
	return clampInt(raw, b.DefaultWidth, minDimension, maxDimension)
}

// height clamps the requested output height.
func (b ParamBounds) height(raw string) int {
	return clampInt(raw, b.DefaultHeight, minDimension, maxDimension)
}

// introDuration clamps the intro segment duration to [0, configured max].
// The upper bound is configuration, not a constant: it has moved between
// revisions and stakeholders may widen it again.
func (b ParamBounds) introDuration(raw string) int {
	return clampInt(raw, 0, 0, b.IntroMaxSec)
}
