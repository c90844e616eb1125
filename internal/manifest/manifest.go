// Package manifest reads render manifests: an ordered list of segments
// plus output settings, as YAML or JSON.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Segment references one segment's files by local path or http(s) URL.
type Segment struct {
	Order    int    `yaml:"order" json:"order"`
	Video    string `yaml:"video" json:"video"`
	Audio    string `yaml:"audio,omitempty" json:"audio,omitempty"`
	Subtitle string `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`
}

type Manifest struct {
	Segments []Segment `yaml:"segments" json:"segments"`
	Output   string    `yaml:"output,omitempty" json:"output,omitempty"`
	// Transition in seconds; absent means the configured default.
	Transition *float64 `yaml:"transition,omitempty" json:"transition,omitempty"`
}

// Load reads a manifest file. Relative local references are resolved
// against the manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	m.resolve(filepath.Dir(path))
	return m, nil
}

// Parse decodes YAML or JSON (JSON is valid YAML) and validates it.
// Segments come back stably sorted by Order.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest is empty")
		}
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	SortSegments(m.Segments)
	return &m, nil
}

func (m *Manifest) Validate() error {
	if len(m.Segments) == 0 {
		return fmt.Errorf("manifest has no segments")
	}
	for i, seg := range m.Segments {
		if strings.TrimSpace(seg.Video) == "" {
			return fmt.Errorf("segment %d (order %d) has no video", i, seg.Order)
		}
	}
	if m.Transition != nil && *m.Transition < 0 {
		return fmt.Errorf("transition must not be negative, got %v", *m.Transition)
	}
	return nil
}

// TransitionDuration returns nil when the manifest leaves it unset.
func (m *Manifest) TransitionDuration() *time.Duration {
	if m.Transition == nil {
		return nil
	}
	d := time.Duration(*m.Transition * float64(time.Second))
	return &d
}

// SortSegments orders segments by Order, keeping input order for ties.
func SortSegments(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Order < segments[j].Order
	})
}

func (m *Manifest) resolve(baseDir string) {
	for i := range m.Segments {
		seg := &m.Segments[i]
		seg.Video = resolveRef(baseDir, seg.Video)
		seg.Audio = resolveRef(baseDir, seg.Audio)
		seg.Subtitle = resolveRef(baseDir, seg.Subtitle)
	}
	if m.Output != "" {
		m.Output = resolveRef(baseDir, m.Output)
	}
}

func resolveRef(baseDir, ref string) string {
	if ref == "" || IsRemote(ref) || filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(baseDir, ref)
}

// IsRemote reports whether ref is an http(s) URL.
func IsRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
