package extract

import (
	"strings"

	"findex/internal/config"
	"findex/internal/findex"
	"findex/internal/model"
)

// Router dispatches a file to exactly one extractor variant based on
// its media type. Unknown types get no metadata and no error.
type Router struct {
	image    *ImageExtractor
	probe    *ProbeExtractor
	analysis *AnalysisExtractor
	logger   findex.Logger
}

// NewRouter builds a Router with all extractor variants wired up.
func NewRouter(probeCfg config.ProbeConfig, analysisCfg config.AnalysisConfig, logger findex.Logger) *Router {
	return &Router{
		image:    NewImageExtractor(logger),
		probe:    NewProbeExtractor(probeCfg, logger),
		analysis: NewAnalysisExtractor(analysisCfg, logger),
		logger:   logger,
	}
}

// Extract routes by the major media type. Video and audio get the
// probe first, then supplementary analysis merged in additively.
func (r *Router) Extract(path, mediaType string) (*model.Metadata, error) {
	major, _, _ := strings.Cut(mediaType, "/")
	switch major {
	case "image":
		return r.image.Extract(path, mediaType)
	case "video", "audio":
		md, err := r.probe.Extract(path, mediaType)
		if err != nil {
			return nil, err
		}
		if md == nil {
			md = &model.Metadata{}
		}
		r.analysis.Supplement(path, md)
		if md.Video == nil && md.Audio == nil && md.MediaInfo == nil && md.DurationMS == 0 {
			// Nothing extracted at all; record no metadata.
			return nil, nil
		}
		return md, nil
	default:
		r.logger.Debug("no extractor for media type", "path", path, "media_type", mediaType)
		return nil, nil
	}
}

var _ findex.Extractor = (*Router)(nil)
