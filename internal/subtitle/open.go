package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/mgpai22/stitch/internal/errs"
)

// FormatForPath picks the track format from the file extension. A path
// without one is read as SubRip.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt", "":
		return FormatSRT, nil
	case ".vtt":
		return FormatVTT, nil
	case ".ass", ".ssa":
		return FormatASS, nil
	default:
		return "", fmt.Errorf("unsupported subtitle format: %s", filepath.Ext(path))
	}
}

func parserFor(format Format) Parser {
	switch format {
	case FormatVTT:
		return ParserFunc(parseVTT)
	case FormatASS:
		return ParserFunc(parseASS)
	default:
		return ParserFunc(parseSRT)
	}
}

// Open reads a subtitle file once and parses it according to its extension.
func Open(path string) ([]Cue, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, errs.Format("open subtitle", path, err)
	}

	text, err := ReadText(path)
	if err != nil {
		return nil, err
	}

	cues, err := parserFor(format).Parse(text)
	if err != nil {
		return nil, errs.Format("parse "+string(format), path, err)
	}
	return cues, nil
}

// ParseFile reads a SubRip file regardless of its extension.
func ParseFile(path string) ([]Cue, error) {
	text, err := ReadText(path)
	if err != nil {
		return nil, err
	}
	cues, err := parseSRT(text)
	if err != nil {
		return nil, errs.Format("parse srt", path, err)
	}
	return cues, nil
}

// ReadText loads a track as UTF-8. A UTF-8 or UTF-16 byte order mark is
// honored and stripped; input without one is taken as UTF-8.
func ReadText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", errs.IO("read subtitle", path, err)
	}

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", errs.Format("decode subtitle", path, err)
	}
	return string(decoded), nil
}
