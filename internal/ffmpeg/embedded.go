//go:build ffmpeg_embedded

package ffmpeg

import (
	"embed"
	"errors"
	"io"
	"io/fs"
)

// release zips named as in assetForPlatform, placed under assets/ before
// building with -tags ffmpeg_embedded
//
//go:embed assets/*
var embeddedAssets embed.FS

func openEmbeddedAsset(name string) (io.ReadCloser, bool, error) {
	file, err := embeddedAssets.Open("assets/" + name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return file, true, nil
}
