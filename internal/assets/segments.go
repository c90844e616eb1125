package assets

import (
	"context"
	"fmt"
	"sync"

	"github.com/mgpai22/stitch/internal/manifest"
	"github.com/mgpai22/stitch/internal/segment"
)

type fetchJob struct {
	segment int
	ref     string
	dest    *string
}

// FetchSegments resolves every reference of every segment with at most
// Concurrency downloads in flight. The result keeps the input order.
func (f *Fetcher) FetchSegments(ctx context.Context, segments []manifest.Segment) ([]segment.Source, error) {
	sources := make([]segment.Source, len(segments))

	var jobs []fetchJob
	for i, seg := range segments {
		src := &sources[i]
		for _, j := range []fetchJob{
			{segment: i, ref: seg.Video, dest: &src.VideoPath},
			{segment: i, ref: seg.Audio, dest: &src.AudioPath},
			{segment: i, ref: seg.Subtitle, dest: &src.SubtitlePath},
		} {
			if j.ref != "" {
				jobs = append(jobs, j)
			}
		}
	}

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)

	sem := make(chan struct{}, f.opts.Concurrency)

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}

		mu.Lock()
		hasErr := firstErr != nil
		mu.Unlock()
		if hasErr {
			break
		}

		wg.Add(1)
		go func(j fetchJob) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			hasErr := firstErr != nil
			mu.Unlock()
			if hasErr || ctx.Err() != nil {
				return
			}

			local, err := f.Fetch(ctx, j.ref)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("segment %d: %w", j.segment, err)
				}
				return
			}
			*j.dest = local
		}(job)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sources, nil
}
