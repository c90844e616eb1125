package api

import "github.com/mgpai22/stitch/internal/manifest"

type SegmentRequest struct {
	Order       int    `json:"order"`
	VideoURL    string `json:"video_url"`
	AudioURL    string `json:"audio_url,omitempty"`
	SubtitleURL string `json:"subtitle_url,omitempty"`
}

type SynthesizeRequest struct {
	Segments       []SegmentRequest `json:"segments"`
	OutputFilename string           `json:"output_filename,omitempty"`
	// Transition in seconds; omitted means the server default.
	Transition *float64 `json:"transition,omitempty"`
}

// ManifestSegments converts the request into segments sorted by order.
func (r SynthesizeRequest) ManifestSegments() []manifest.Segment {
	segs := make([]manifest.Segment, len(r.Segments))
	for i, s := range r.Segments {
		segs[i] = manifest.Segment{
			Order:    s.Order,
			Video:    s.VideoURL,
			Audio:    s.AudioURL,
			Subtitle: s.SubtitleURL,
		}
	}
	manifest.SortSegments(segs)
	return segs
}

type SynthesizeResponse struct {
	Success     bool   `json:"success"`
	OutputPath  string `json:"output_path,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	Message     string `json:"message"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version,omitempty"`
	UptimeS int64  `json:"uptime_s"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
