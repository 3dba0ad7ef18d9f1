package extract

import (
	"encoding/json"
	"time"

	"findex/internal/config"
	"findex/internal/findex"
	"findex/internal/model"
)

// AnalysisExtractor runs mediainfo for supplementary track details.
// Its output is additive: it lands in the namespaced MediaInfo map and
// never overrides probe-derived fields.
type AnalysisExtractor struct {
	tool   *Tool
	logger findex.Logger
}

// NewAnalysisExtractor probes mediainfo availability once at startup.
func NewAnalysisExtractor(cfg config.AnalysisConfig, logger findex.Logger) *AnalysisExtractor {
	path := cfg.Path
	if path == "" {
		path = "mediainfo"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AnalysisExtractor{
		tool:   NewTool(path, timeout, []string{"--Version"}, logger),
		logger: logger,
	}
}

// Available reports whether mediainfo can be invoked.
func (a *AnalysisExtractor) Available() bool { return a.tool.Available() }

// mediaInfoOutput mirrors mediainfo's --Output=JSON structure.
type mediaInfoOutput struct {
	Media struct {
		Track []map[string]any `json:"track"`
	} `json:"media"`
}

// Supplement attaches mediainfo track data to md, keyed by track type
// ("General", "Video", "Audio", ...). Missing tool or failed run leaves
// md untouched.
func (a *AnalysisExtractor) Supplement(path string, md *model.Metadata) {
	if !a.tool.Available() {
		return
	}

	out, err := a.tool.Run("--Output=JSON", path)
	if err != nil {
		a.logger.Warn("analysis tool failed, skipping supplementary metadata", "path", path, "error", err)
		return
	}

	var parsed mediaInfoOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		a.logger.Warn("analysis output unparsable", "path", path, "error", err)
		return
	}
	if len(parsed.Media.Track) == 0 {
		return
	}

	if md.MediaInfo == nil {
		md.MediaInfo = make(map[string]any)
	}
	for _, track := range parsed.Media.Track {
		kind, _ := track["@type"].(string)
		if kind == "" {
			kind = "Other"
		}
		// First track of each type wins; mediainfo lists General first.
		if _, present := md.MediaInfo[kind]; !present {
			md.MediaInfo[kind] = track
		}
	}
}
