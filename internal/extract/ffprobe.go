package extract

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"findex/internal/config"
	"findex/internal/findex"
	"findex/internal/model"
)

// ProbeExtractor shells out to ffprobe for video and audio metadata.
// Probe-derived width/height/duration are authoritative. An absent or
// failing probe means "unavailable": metadata is skipped, the import
// still succeeds.
type ProbeExtractor struct {
	tool   *Tool
	logger findex.Logger
}

// NewProbeExtractor probes tool availability once and keeps the result.
func NewProbeExtractor(cfg config.ProbeConfig, logger findex.Logger) *ProbeExtractor {
	path := cfg.Path
	if path == "" {
		path = "ffprobe"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ProbeExtractor{
		tool:   NewTool(path, timeout, []string{"-version"}, logger),
		logger: logger,
	}
}

// Available reports whether ffprobe can be invoked.
func (p *ProbeExtractor) Available() bool { return p.tool.Available() }

// probeOutput mirrors the ffprobe JSON we consume.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	CodecType  string            `json:"codec_type"`
	CodecName  string            `json:"codec_name"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	RFrameRate string            `json:"r_frame_rate"`
	BitRate    string            `json:"bit_rate"`
	SampleRate string            `json:"sample_rate"`
	Channels   int               `json:"channels"`
	Duration   string            `json:"duration"`
	Tags       map[string]string `json:"tags"`
}

// Extract runs ffprobe against path. Returns (nil, nil) when the probe
// is unavailable or fails; unavailability is not an import error.
func (p *ProbeExtractor) Extract(path, mediaType string) (*model.Metadata, error) {
	if !p.tool.Available() {
		p.logger.Debug("probe unavailable, skipping media metadata", "path", path)
		return nil, nil
	}

	out, err := p.tool.Run(
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		p.logger.Warn("probe failed, skipping media metadata", "path", path, "error", err)
		return nil, nil
	}

	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		p.logger.Warn("probe output unparsable", "path", path, "error", err)
		return nil, nil
	}

	md := &model.Metadata{FFProbeVersion: p.tool.Version()}
	md.DurationMS = durationMS(parsed)

	for _, st := range parsed.Streams {
		switch st.CodecType {
		case "video":
			if md.Video == nil {
				md.Video = &model.VideoStreamInfo{
					Codec:     st.CodecName,
					Width:     st.Width,
					Height:    st.Height,
					FrameRate: parseFrameRate(st.RFrameRate),
					Bitrate:   parseInt64(st.BitRate),
				}
			}
		case "audio":
			if md.Audio == nil {
				md.Audio = &model.AudioStreamInfo{
					Codec:      st.CodecName,
					Bitrate:    parseInt64(st.BitRate),
					SampleRate: int(parseInt64(st.SampleRate)),
					Channels:   st.Channels,
					Tags:       st.Tags,
				}
			}
		}
	}

	return md, nil
}

// durationMS picks the duration from streams first, then the container
// format, converted from seconds to milliseconds.
func durationMS(parsed probeOutput) int64 {
	raw := ""
	for _, st := range parsed.Streams {
		if st.Duration != "" {
			raw = st.Duration
			break
		}
	}
	if raw == "" {
		raw = parsed.Format.Duration
	}
	if raw == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int64(seconds * 1000)
}

// parseFrameRate parses ffprobe's rational rate notation, e.g. "30000/1001".
func parseFrameRate(raw string) float64 {
	if raw == "" || raw == "0/0" {
		return 0
	}
	num, den, found := strings.Cut(raw, "/")
	if !found {
		v, _ := strconv.ParseFloat(raw, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseInt64(raw string) int64 {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
