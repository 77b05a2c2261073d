package encode

import (
	"fmt"
	"strings"
)

// DefaultPadColor fills the area around the scaled image.
const DefaultPadColor = "black"

// Stage is one named filter in the video filter pipeline.
type Stage struct {
	// Name is the filter name (e.g. "scale", "pad", "fps").
	Name string
	// Args are the positional filter arguments, rendered colon-separated.
	Args []string
}

// Render produces the ffmpeg syntax for a single stage.
func (s Stage) Render() string {
	if len(s.Args) == 0 {
		return s.Name
	}
	return s.Name + "=" + strings.Join(s.Args, ":")
}

// Pipeline is an ordered sequence of filter stages. Building the filter
// graph from typed stages instead of string concatenation keeps it testable
// and keeps untrusted parameters out of the graph syntax.
type Pipeline []Stage

// Render produces the full ffmpeg filtergraph string.
func (p Pipeline) Render() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.Render()
	}
	return strings.Join(parts, ",")
}

// ScaleFit scales the source into the w×h box preserving aspect ratio,
// never upscaling past the box.
func ScaleFit(w, h int) Stage {
	return Stage{
		Name: "scale",
		Args: []string{
			fmt.Sprintf("%d", w),
			fmt.Sprintf("%d", h),
			"force_original_aspect_ratio=decrease",
		},
	}
}

// PadCenter pads the frame to exactly w×h, centering the image and filling
// the surround with color.
func PadCenter(w, h int, color string) Stage {
	return Stage{
		Name: "pad",
		Args: []string{
			fmt.Sprintf("%d", w),
			fmt.Sprintf("%d", h),
			"(ow-iw)/2",
			"(oh-ih)/2",
			color,
		},
	}
}

// FPS resamples the stream to the target frame rate.
func FPS(rate int) Stage {
	return Stage{
		Name: "fps",
		Args: []string{fmt.Sprintf("%d", rate)},
	}
}

// FitAndPad is the fixed pipeline every clip goes through: scale into the
// target box, pad to exact dimensions, resample to the target frame rate.
// It guarantees every output has exactly the requested dimensions regardless
// of input aspect ratio.
func FitAndPad(w, h, fps int) Pipeline {
	return Pipeline{
		ScaleFit(w, h),
		PadCenter(w, h, DefaultPadColor),
		FPS(fps),
	}
}
