// Package assets turns segment references into local files. Local paths
// pass through; http(s) URLs are downloaded once into a content-addressed
// cache shared between processes.
package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/mgpai22/stitch/internal/errs"
	"github.com/mgpai22/stitch/internal/logging"
	"github.com/mgpai22/stitch/internal/manifest"
)

const (
	defaultTimeout     = 5 * time.Minute
	defaultRetryDelay  = time.Second
	defaultConcurrency = 4
	lockPollInterval   = 100 * time.Millisecond
)

// ErrLocalRef is returned for a local path when Options.RemoteOnly is set.
var ErrLocalRef = errors.New("only http(s) URLs are accepted")

type Options struct {
	CacheDir    string
	// RemoteOnly rejects local paths instead of passing them through.
	RemoteOnly  bool
	Timeout     time.Duration
	Retries     int
	RetryDelay  time.Duration
	Concurrency int
	Client      *http.Client
	Logger      *logging.Logger
}

type Fetcher struct {
	opts Options
}

func NewFetcher(opts Options) *Fetcher {
	if opts.CacheDir == "" {
		opts.CacheDir = filepath.Join(os.TempDir(), "stitch-cache")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Fetcher{opts: opts}
}

// CachePath is where a URL's download lives: sha256 of the URL plus the
// URL path's extension.
func (f *Fetcher) CachePath(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	return filepath.Join(f.opts.CacheDir, hex.EncodeToString(sum[:])+urlExt(ref))
}

// Fetch returns a local path for ref. Local paths are returned unchanged
// unless RemoteOnly is set; the pipeline reports missing files with the
// right error kind itself.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return ref, nil
	}
	if !manifest.IsRemote(ref) {
		if f.opts.RemoteOnly {
			return "", errs.IO("fetch", ref, ErrLocalRef)
		}
		return ref, nil
	}

	if err := os.MkdirAll(f.opts.CacheDir, 0o755); err != nil {
		return "", errs.IO("create cache dir", f.opts.CacheDir, err)
	}

	dest := f.CachePath(ref)
	lock := flock.New(dest + ".lock")
	locked, err := lock.TryLockContext(ctx, lockPollInterval)
	if err != nil {
		return "", errs.IO("lock cache entry", dest, err)
	}
	if !locked {
		return "", errs.IO("lock cache entry", dest, fmt.Errorf("lock not acquired"))
	}
	defer lock.Unlock()

	if fi, err := os.Stat(dest); err == nil && fi.Size() > 0 {
		f.opts.Logger.Debugw("Asset cache hit", "url", ref, "path", dest)
		return dest, nil
	}

	var lastErr error
	for attempt := 0; attempt <= f.opts.Retries; attempt++ {
		if attempt > 0 {
			f.opts.Logger.Warnw("Retrying download", "url", ref, "attempt", attempt+1, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * f.opts.RetryDelay):
			}
		}

		size, err := f.download(ctx, ref, dest)
		if err == nil {
			f.opts.Logger.Infow("Downloaded asset",
				"url", ref,
				"size", humanize.Bytes(uint64(size)),
				"path", dest,
			)
			return dest, nil
		}
		lastErr = err

		var status *StatusError
		if (errors.As(err, &status) && !status.Retryable()) || ctx.Err() != nil {
			break
		}
	}
	return "", errs.IO("download", ref, lastErr)
}

// StatusError is a download answered with a non-200 status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// Retryable reports whether another attempt may succeed.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

func (f *Fetcher) download(ctx context.Context, ref, dest string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return 0, &StatusError{Code: http.StatusBadRequest}
	}

	resp, err := f.opts.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &StatusError{Code: resp.StatusCode}
	}

	tmp := dest + "." + uuid.NewString() + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n == 0 {
		err = fmt.Errorf("empty response body")
	}
	if err != nil {
		os.Remove(tmp)
		return 0, err
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	return n, nil
}

func urlExt(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
