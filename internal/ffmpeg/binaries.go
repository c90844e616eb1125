// Package ffmpeg locates the ffmpeg and ffprobe executables used by every
// media stage. Resolution order: explicit configuration, PATH, a bundle
// embedded at build time, then a one-off download into the user cache.
package ffmpeg

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	ffmpegReleaseVersion = "6.1"
	ffmpegReleaseBaseURL = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/download"
)

type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

func (p BinaryPaths) complete() bool {
	return p.FFmpeg != "" && p.FFprobe != ""
}

var (
	resolveMu sync.Mutex
	resolved  = map[BinaryPaths]BinaryPaths{}
)

// Resolve returns usable binary paths. Entries of preferred that are set
// win; a bare name (no separator) is looked up on PATH. Results are
// memoized per preferred value.
func Resolve(preferred BinaryPaths) (BinaryPaths, error) {
	resolveMu.Lock()
	defer resolveMu.Unlock()

	if paths, ok := resolved[preferred]; ok {
		return paths, nil
	}
	paths, err := resolve(preferred)
	if err != nil {
		return BinaryPaths{}, err
	}
	resolved[preferred] = paths
	return paths, nil
}

func resolve(preferred BinaryPaths) (BinaryPaths, error) {
	paths := BinaryPaths{
		FFmpeg:  lookup(preferred.FFmpeg, "ffmpeg"),
		FFprobe: lookup(preferred.FFprobe, "ffprobe"),
	}
	if paths.complete() {
		return paths, nil
	}

	bundled, err := ensureBundle()
	if err != nil {
		return BinaryPaths{}, fmt.Errorf("locate ffmpeg: %w", err)
	}
	if paths.FFmpeg == "" {
		paths.FFmpeg = bundled.FFmpeg
	}
	if paths.FFprobe == "" {
		paths.FFprobe = bundled.FFprobe
	}
	return paths, nil
}

func lookup(preferred, name string) string {
	if preferred != "" {
		if strings.ContainsAny(preferred, `/\`) {
			if fileExists(preferred) {
				return preferred
			}
			return ""
		}
		name = preferred
	}
	if found, err := exec.LookPath(name); err == nil {
		return found
	}
	return ""
}

// ensureBundle installs the pinned release into the user cache dir.
func ensureBundle() (BinaryPaths, error) {
	assetName, err := assetForPlatform(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return BinaryPaths{}, err
	}

	installDir := bundleDir()
	exeSuffix := executableSuffix()
	paths := BinaryPaths{
		FFmpeg:  filepath.Join(installDir, "ffmpeg"+exeSuffix),
		FFprobe: filepath.Join(installDir, "ffprobe"+exeSuffix),
	}
	if binariesExist(paths) {
		return paths, nil
	}

	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return BinaryPaths{}, fmt.Errorf("create ffmpeg cache dir: %w", err)
	}

	embeddedUsed, err := extractEmbedded(assetName, installDir)
	if err != nil {
		return BinaryPaths{}, err
	}
	if !embeddedUsed {
		if err := downloadAndExtract(assetName, installDir); err != nil {
			return BinaryPaths{}, err
		}
	}

	if !binariesExist(paths) {
		return BinaryPaths{}, errors.New("ffmpeg binaries not found after extraction")
	}
	if runtime.GOOS != "windows" {
		for _, bin := range []string{paths.FFmpeg, paths.FFprobe} {
			if err := os.Chmod(bin, 0o755); err != nil {
				return BinaryPaths{}, fmt.Errorf("chmod %s: %w", filepath.Base(bin), err)
			}
		}
	}
	return paths, nil
}

func bundleDir() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil || cacheDir == "" {
		cacheDir = os.TempDir()
	}
	return filepath.Join(
		cacheDir,
		"stitch",
		"ffmpeg",
		ffmpegReleaseVersion,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

func assetForPlatform(goos, goarch string) (string, error) {
	switch {
	case goos == "linux" && goarch == "amd64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-linux-64.zip", nil
	case goos == "linux" && goarch == "arm64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-linux-arm-64.zip", nil
	case goos == "darwin" && goarch == "amd64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-macos-64.zip", nil
	case goos == "windows" && goarch == "amd64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-win-64.zip", nil
	default:
		return "", fmt.Errorf("unsupported platform for bundled ffmpeg: %s/%s", goos, goarch)
	}
}

func downloadAndExtract(assetName, installDir string) error {
	url := fmt.Sprintf("%s/v%s/%s", ffmpegReleaseBaseURL, ffmpegReleaseVersion, assetName)
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("download ffmpeg bundle: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download ffmpeg bundle: unexpected status %s", resp.Status)
	}
	return extractArchiveFromReader(assetName, resp.Body, installDir)
}

func extractEmbedded(assetName, installDir string) (bool, error) {
	reader, ok, err := openEmbeddedAsset(assetName)
	if err != nil || !ok {
		return ok, err
	}
	defer func() { _ = reader.Close() }()

	if err := extractArchiveFromReader(assetName, reader, installDir); err != nil {
		return true, err
	}
	return true, nil
}

// zip needs random access, so the stream is spooled to a temp file first
func extractArchiveFromReader(assetName string, reader io.Reader, installDir string) error {
	tmpFile, err := os.CreateTemp("", "stitch-ffmpeg-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	archivePath := tmpFile.Name()
	defer func() { _ = os.Remove(archivePath) }()

	if _, err := io.Copy(tmpFile, reader); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	if err := extractArchive(archivePath, installDir); err != nil {
		return fmt.Errorf("extract %s: %w", assetName, err)
	}
	return nil
}

func extractArchive(archivePath, installDir string) error {
	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open ffmpeg archive: %w", err)
	}
	defer func() { _ = zipReader.Close() }()

	found := map[string]bool{}
	for _, file := range zipReader.File {
		name := binaryName(filepath.Base(file.Name))
		if name == "" {
			continue
		}
		dest := filepath.Join(installDir, name+executableSuffix())
		if err := extractZipFile(file, dest); err != nil {
			return err
		}
		found[name] = true
	}

	if !found["ffmpeg"] || !found["ffprobe"] {
		return errors.New("ffmpeg archive missing required binaries")
	}
	return nil
}

func extractZipFile(file *zip.File, dest string) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("open ffmpeg archive entry: %w", err)
	}
	defer func() { _ = reader.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create ffmpeg binary: %w", err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, reader); err != nil {
		return fmt.Errorf("write ffmpeg binary: %w", err)
	}
	return nil
}

func binariesExist(paths BinaryPaths) bool {
	return fileExists(paths.FFmpeg) && fileExists(paths.FFprobe)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

// maps an archive entry to "ffmpeg", "ffprobe" or ""
func binaryName(entry string) string {
	entry = strings.TrimSuffix(strings.ToLower(entry), ".exe")
	switch entry {
	case "ffmpeg", "ffprobe":
		return entry
	default:
		return ""
	}
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
