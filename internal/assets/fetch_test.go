package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgpai22/stitch/internal/errs"
	"github.com/mgpai22/stitch/internal/manifest"
)

func newTestFetcher(t *testing.T, retries int) *Fetcher {
	t.Helper()
	return NewFetcher(Options{
		CacheDir:   t.TempDir(),
		Retries:    retries,
		RetryDelay: 10 * time.Millisecond,
		Timeout:    5 * time.Second,
	})
}

func TestFetchLocalPassthrough(t *testing.T) {
	f := newTestFetcher(t, 0)

	got, err := f.Fetch(context.Background(), "/does/not/exist.mp4")
	require.NoError(t, err)
	assert.Equal(t, "/does/not/exist.mp4", got)

	got, err = f.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchDownloadsOnceAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("video bytes"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, 0)
	ref := srv.URL + "/clips/intro.MP4?sig=abc"

	first, err := f.Fetch(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, f.CachePath(ref), first)
	assert.Equal(t, ".mp4", filepath.Ext(first))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(data))

	second, err := f.Fetch(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())

	entries, err := os.ReadDir(f.opts.CacheDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".part"), "leftover temp file %s", e.Name())
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	got, err := newTestFetcher(t, 2).Fetch(context.Background(), srv.URL+"/a.srt")
	require.NoError(t, err)
	assert.FileExists(t, got)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newTestFetcher(t, 3)
	ref := srv.URL + "/missing.mp4"
	_, err := f.Fetch(context.Background(), ref)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindIO))
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), hits.Load())

	_, statErr := os.Stat(f.CachePath(ref))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchRemoteOnlyRejectsLocalPaths(t *testing.T) {
	f := NewFetcher(Options{CacheDir: t.TempDir(), RemoteOnly: true})

	_, err := f.Fetch(context.Background(), "/etc/passwd")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocalRef)
	assert.True(t, errs.IsKind(err, errs.KindIO))

	got, err := f.Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = f.FetchSegments(context.Background(), []manifest.Segment{
		{Video: "relative/clip.mp4"},
	})
	assert.ErrorIs(t, err, ErrLocalRef)
}

func TestStatusErrorRetryable(t *testing.T) {
	assert.True(t, (&StatusError{Code: http.StatusBadGateway}).Retryable())
	assert.True(t, (&StatusError{Code: http.StatusTooManyRequests}).Retryable())
	assert.False(t, (&StatusError{Code: http.StatusNotFound}).Retryable())
	assert.Equal(t, "unexpected status 404 Not Found", (&StatusError{Code: 404}).Error())
}

func TestURLExt(t *testing.T) {
	tests := map[string]string{
		"https://x/a.mp4":          ".mp4",
		"https://x/a.SRT?x=1":      ".srt",
		"https://x/download":       "",
		"https://x/a.weird-ext!":   "",
		"https://x/a.toolongext12": "",
	}
	for ref, want := range tests {
		assert.Equal(t, want, urlExt(ref), ref)
	}
}

func TestFetchSegmentsKeepsOrder(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	f := NewFetcher(Options{CacheDir: t.TempDir(), Concurrency: 2})
	segs := []manifest.Segment{
		{Order: 1, Video: srv.URL + "/a.mp4", Subtitle: srv.URL + "/a.srt"},
		{Order: 2, Video: "/local/b.mp4", Audio: srv.URL + "/b.mp3"},
		{Order: 3, Video: srv.URL + "/c.mp4"},
	}

	got, err := f.FetchSegments(context.Background(), segs)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, f.CachePath(srv.URL+"/a.mp4"), got[0].VideoPath)
	assert.Equal(t, f.CachePath(srv.URL+"/a.srt"), got[0].SubtitlePath)
	assert.Empty(t, got[0].AudioPath)
	assert.Equal(t, "/local/b.mp4", got[1].VideoPath)
	assert.Equal(t, f.CachePath(srv.URL+"/b.mp3"), got[1].AudioPath)
	assert.Equal(t, f.CachePath(srv.URL+"/c.mp4"), got[2].VideoPath)

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestFetchSegmentsStopsOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "bad.mp4") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, 0).FetchSegments(context.Background(), []manifest.Segment{
		{Video: srv.URL + "/good.mp4"},
		{Video: srv.URL + "/bad.mp4"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segment 1")
}
