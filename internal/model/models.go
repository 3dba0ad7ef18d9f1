package model

import "time"

// Derivation kinds. Empty means the file is an original, not derived
// from another indexed file.
const (
	DerivedForNone        = ""
	DerivedForThumbnail   = "thumbnail"
	DerivedForCompression = "compression"
)

// IndexedFile is one unique piece of content, keyed by its primary hash.
// All fields except Corrupt and Metadata are fixed at creation time.
type IndexedFile struct {
	Hash          string // unpadded base32 SHA-512 of the content (primary key)
	SecondaryHash string // unpadded base32 SHA-1, empty unless requested
	Size          int64
	MediaType     string // detected media type, e.g. "image/png"
	Location      string // storage path relative to the store root, derived from Hash
	FirstSeen     time.Time
	Corrupt       bool // set when metadata extraction failed

	// Derivation link to the file this one was computed from, if any.
	DerivedFromHash string
	DerivedFor      string // DerivedForThumbnail, DerivedForCompression or empty

	Metadata *Metadata // nil when no metadata was extracted
}

// FilePath records one location where an IndexedFile's content was observed.
// Rows are immutable; re-observing the same (hash, path, host) is a no-op.
type FilePath struct {
	ID         string // UUID
	FileHash   string // foreign key to IndexedFile.Hash
	Path       string // original absolute path
	Hostname   string // host the path was observed on
	MTime      time.Time
	CTime      time.Time
	ObservedAt time.Time
}

// ImportRun tracks one import invocation (CLI command or watch session).
type ImportRun struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt *time.Time
	Operation  string
	Parameters string
	Status     string // "running", "success" or "error"
}

// Metadata is the type-specific metadata payload stored alongside an
// IndexedFile. Exactly one of Image, Video or Audio is set depending on
// the media type; everything may be absent for unsupported types.
type Metadata struct {
	Image *ImageInfo       `json:"image,omitempty"`
	Video *VideoStreamInfo `json:"video,omitempty"`
	Audio *AudioStreamInfo `json:"audio,omitempty"`

	// DurationMS is the media (or animation) length in milliseconds.
	DurationMS int64 `json:"duration,omitempty"`

	FFProbeVersion string `json:"ffprobe_version,omitempty"`

	// MediaInfo holds supplemental fields from the optional analysis tool,
	// namespaced so they never collide with probe-derived fields.
	MediaInfo map[string]any `json:"mediainfo,omitempty"`
}

// ImageInfo describes a still or animated image.
type ImageInfo struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Thumbhash string `json:"thumbhash,omitempty"` // compact perceptual summary
	Animated  bool   `json:"animated"`
}

// VideoStreamInfo describes the primary video stream as reported by the probe.
type VideoStreamInfo struct {
	Codec     string  `json:"codec,omitempty"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	FrameRate float64 `json:"frame_rate,omitempty"`
	Bitrate   int64   `json:"bitrate,omitempty"`
}

// AudioStreamInfo describes the primary audio stream as reported by the probe.
type AudioStreamInfo struct {
	Codec      string            `json:"codec,omitempty"`
	Bitrate    int64             `json:"bitrate,omitempty"`
	SampleRate int               `json:"sample_rate,omitempty"`
	Channels   int               `json:"channels,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}
