package subtitle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mgpai22/stitch/internal/errs"
)

// ParseVTT reads WebVTT text into cues. Header, NOTE, STYLE and REGION
// blocks are ignored, cue identifiers are optional, and cues without text
// are skipped like short SubRip blocks.
func ParseVTT(text string) ([]Cue, error) {
	cues, err := parseVTT(text)
	if err != nil {
		return nil, errs.Format("parse vtt", "", err)
	}
	return cues, nil
}

func parseVTT(text string) ([]Cue, error) {
	text = strings.TrimPrefix(normalizeNewlines(text), "\ufeff")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	blocks := blankLineRun.Split(text, -1)
	if !strings.HasPrefix(blocks[0], "WEBVTT") {
		return nil, fmt.Errorf("missing WEBVTT header")
	}

	var cues []Cue
	for blockNum, block := range blocks[1:] {
		lines := strings.Split(strings.Trim(block, "\n"), "\n")
		if isVTTMetadataBlock(lines[0]) {
			continue
		}

		timing := 0
		if !strings.Contains(lines[0], timecodeSeparator) {
			timing = 1
		}
		if timing >= len(lines) || !strings.Contains(lines[timing], timecodeSeparator) {
			return nil, fmt.Errorf(
				"block %d: %w: %q",
				blockNum+2,
				errs.ErrMissingSeparator,
				lines[0],
			)
		}
		if len(lines) <= timing+1 {
			continue
		}

		start, end, err := parseTimecodeLine(lines[timing], parseVTTTimestamp)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", blockNum+2, err)
		}

		index := len(cues) + 1
		if timing == 1 {
			if n, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
				index = n
			}
		}

		cues = append(cues, Cue{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(lines[timing+1:], "\n"),
		})
	}
	return cues, nil
}

func isVTTMetadataBlock(first string) bool {
	first = strings.TrimSpace(first)
	for _, keyword := range []string{"NOTE", "STYLE", "REGION"} {
		if first == keyword || strings.HasPrefix(first, keyword+" ") {
			return true
		}
	}
	return false
}

// accepts HH:MM:SS.mmm and the short MM:SS.mmm form
func parseVTTTimestamp(value string) (time.Duration, error) {
	clock, millis, ok := strings.Cut(strings.TrimSpace(value), ".")
	if !ok {
		return 0, fmt.Errorf("timestamp %q has no dot before milliseconds", value)
	}
	if strings.Count(clock, ":") == 1 {
		clock = "00:" + clock
	}
	return clockDuration(value, clock, millis)
}
