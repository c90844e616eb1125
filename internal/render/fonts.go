package render

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/mgpai22/stitch/internal/logging"
)

const (
	builtinScalable = "builtin:goregular"
	builtinBitmap   = "builtin:basicfont-7x13"
)

// loadFace walks the candidates in order and returns the first face that
// loads, then the built-in scalable font, then the 7x13 bitmap font.
func loadFace(candidates []string, size float64, logger *logging.Logger) (font.Face, string) {
	for _, path := range candidates {
		face, err := faceFromFile(path, size)
		if err != nil {
			logger.Debugw("Font candidate unusable", "font", path, "error", err)
			continue
		}
		return face, path
	}

	face, err := faceFromBytes(goregular.TTF, size)
	if err == nil {
		return face, builtinScalable
	}
	logger.Warnw("Built-in scalable font failed, using bitmap font", "error", err)
	return basicfont.Face7x13, builtinBitmap
}

func faceFromFile(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return faceFromBytes(data, size)
}

// accepts a single OpenType/TrueType font or a collection (.ttc/.otc),
// taking the collection's first face
func faceFromBytes(data []byte, size float64) (font.Face, error) {
	parsed, err := opentype.Parse(data)
	if err != nil {
		collection, collErr := opentype.ParseCollection(data)
		if collErr != nil {
			return nil, fmt.Errorf("parse font: %w", err)
		}
		if collection.NumFonts() == 0 {
			return nil, fmt.Errorf("font collection is empty")
		}
		if parsed, err = collection.Font(0); err != nil {
			return nil, fmt.Errorf("read collection face: %w", err)
		}
	}

	return opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// FontLabel returns a short name for logging.
func FontLabel(source string) string {
	if filepath.IsAbs(source) {
		return filepath.Base(source)
	}
	return source
}

// fonts able to render CJK as well as Latin text, in preference order
var fontCandidates = []string{
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/google-noto-cjk/NotoSansCJK-Regular.ttc",
	"/usr/share/fonts/truetype/wqy/wqy-microhei.ttc",
	"/usr/share/fonts/truetype/droid/DroidSansFallbackFull.ttf",
	"/System/Library/Fonts/PingFang.ttc",
	"/System/Library/Fonts/STHeiti Light.ttc",
	"/System/Library/Fonts/STHeiti Medium.ttc",
	"/System/Library/Fonts/Hiragino Sans GB.ttc",
	"C:\\Windows\\Fonts\\msyh.ttc",
	"C:\\Windows\\Fonts\\simhei.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

// DefaultFontCandidates returns a copy of the built-in font search list.
func DefaultFontCandidates() []string {
	return append([]string(nil), fontCandidates...)
}
