package ffmpeg

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetForPlatform(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         string
		wantErr      bool
	}{
		{"linux", "amd64", "ffmpeg-6.1-linux-64.zip", false},
		{"linux", "arm64", "ffmpeg-6.1-linux-arm-64.zip", false},
		{"darwin", "amd64", "ffmpeg-6.1-macos-64.zip", false},
		{"windows", "amd64", "ffmpeg-6.1-win-64.zip", false},
		{"plan9", "386", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := assetForPlatform(tt.goos, tt.goarch)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBinaryName(t *testing.T) {
	assert.Equal(t, "ffmpeg", binaryName("ffmpeg"))
	assert.Equal(t, "ffprobe", binaryName("FFPROBE.EXE"))
	assert.Equal(t, "", binaryName("ffplay"))
	assert.Equal(t, "", binaryName("readme.txt"))
}

func TestExtractArchive(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "bundle.zip")
	writeZip(t, archivePath, map[string]string{
		"bin/ffmpeg":  "ffmpeg-binary",
		"bin/ffprobe": "ffprobe-binary",
		"README":      "ignored",
	})

	installDir := filepath.Join(dir, "install")
	require.NoError(t, os.MkdirAll(installDir, 0o755))
	require.NoError(t, extractArchive(archivePath, installDir))

	data, err := os.ReadFile(filepath.Join(installDir, "ffmpeg"+executableSuffix()))
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg-binary", string(data))
	_, err = os.Stat(filepath.Join(installDir, "README"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractArchiveRequiresBothBinaries(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "bundle.zip")
	writeZip(t, archivePath, map[string]string{"ffmpeg": "only one"})

	err := extractArchive(archivePath, dir)
	require.Error(t, err)
}

func TestResolveHonorsExplicitPaths(t *testing.T) {
	dir := t.TempDir()
	ffmpegPath := filepath.Join(dir, "my-ffmpeg")
	ffprobePath := filepath.Join(dir, "my-ffprobe")
	require.NoError(t, os.WriteFile(ffmpegPath, []byte("x"), 0o755))
	require.NoError(t, os.WriteFile(ffprobePath, []byte("x"), 0o755))

	paths, err := Resolve(BinaryPaths{FFmpeg: ffmpegPath, FFprobe: ffprobePath})
	require.NoError(t, err)
	assert.Equal(t, ffmpegPath, paths.FFmpeg)
	assert.Equal(t, ffprobePath, paths.FFprobe)
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, body := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}
