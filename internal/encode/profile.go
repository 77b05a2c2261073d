package encode

// Profile is the codec parameter set for one encode. Profiles resolve from
// configuration at startup and never vary per request.
type Profile struct {
	// Codec is the video codec name; empty means the container default.
	Codec string
	// CRF is the constant-rate-factor quality target; 0 means unset.
	CRF int
	// Preset is the encoder speed/quality preset; empty means unset.
	Preset string
	// MaxBitrate is the peak bitrate ceiling (e.g. "1M"); empty means unset.
	MaxBitrate string
	// BufSize is the rate-control buffer size matching MaxBitrate.
	BufSize string
	// GOPSize is the keyframe interval in frames; 0 means unset.
	GOPSize int
	// AudioBitrate is the AAC bitrate for the silent track (e.g. "128k").
	AudioBitrate string
	// AudioChannels is 2 for stereo, 1 for mono.
	AudioChannels int
	// FastStart moves container metadata to the front so playback can begin
	// before the full file downloads.
	FastStart bool
}

// CompressedOptions carries the rate-control knobs from configuration.
type CompressedOptions struct {
	Codec        string
	CRF          int
	Preset       string
	MaxBitrate   string
	BufSize      string
	GOPSize      int
	AudioBitrate string
}

// Baseline is the fixed-quality profile: default codec settings, stereo
// silence, fast-start container.
func Baseline() Profile {
	return Profile{
		AudioBitrate:  "128k",
		AudioChannels: 2,
		FastStart:     true,
	}
}

// Compressed is the rate-controlled profile: quality factor, speed preset,
// bitrate ceiling with matching buffer, fixed keyframe interval, mono
// low-bitrate silence. Intended to minimize file size at acceptable quality.
func Compressed(opts CompressedOptions) Profile {
	return Profile{
		Codec:         opts.Codec,
		CRF:           opts.CRF,
		Preset:        opts.Preset,
		MaxBitrate:    opts.MaxBitrate,
		BufSize:       opts.BufSize,
		GOPSize:       opts.GOPSize,
		AudioBitrate:  opts.AudioBitrate,
		AudioChannels: 1,
	}
}
