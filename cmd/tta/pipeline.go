package main

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mewkiz/tta"
	"github.com/mewkiz/tta/frame"
	"github.com/mewkiz/tta/internal/pcmio"
)

// Frames are coded independently, so the multi-threaded paths run a small
// pipeline: a reader goroutine slices the stream into frames, nthreads
// workers code them with their own frame.Codec, and the calling goroutine
// stitches the results back together in frame order. Ordering is enforced
// by frame index; the jobs channel bounds how far the reader runs ahead.

// encodeFrames compresses the whole PCM stream of r into enc.
func encodeFrames(enc *tta.Encoder, r pcmio.Reader, nthreads int) error {
	hdr := enc.Header
	nchan := int(hdr.NChan)
	flen := enc.FrameLength()
	left := int(hdr.NSamples)

	if nthreads <= 1 {
		buf := make([]int32, flen*nchan)
		for left > 0 {
			n := flen
			if left < n {
				n = left
			}
			if err := fillSamples(r, buf[:n*nchan]); err != nil {
				return err
			}
			if err := enc.WriteFrame(buf[:n*nchan]); err != nil {
				return err
			}
			left -= n
		}
		return nil
	}

	depth, err := frame.DepthFromBits(int(hdr.BitsPerSample))
	if err != nil {
		return err
	}

	type job struct {
		idx      int
		nsamples int
		samples  []int32
	}
	type result struct {
		idx      int
		nsamples int
		data     []byte
		err      error
	}
	jobs := make(chan job, nthreads)
	results := make(chan result, nthreads)

	var g errgroup.Group
	g.Go(func() error {
		defer close(jobs)
		for idx := 0; left > 0; idx++ {
			n := flen
			if left < n {
				n = left
			}
			samples := make([]int32, n*nchan)
			if err := fillSamples(r, samples); err != nil {
				return err
			}
			jobs <- job{idx: idx, nsamples: n, samples: samples}
			left -= n
		}
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < nthreads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codec, err := frame.NewCodec(nchan, depth)
			if err != nil {
				for j := range jobs {
					results <- result{idx: j.idx, err: err}
				}
				return
			}
			for j := range jobs {
				data, err := tta.EncodeFrame(codec, j.samples, nil)
				results <- result{idx: j.idx, nsamples: j.nsamples, data: data, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	next := 0
	pending := make(map[int]result)
	for res := range results {
		pending[res.idx] = res
		for {
			cur, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if firstErr != nil {
				continue
			}
			if cur.err != nil {
				firstErr = cur.err
				continue
			}
			if err := enc.WriteEncodedFrame(cur.data, cur.nsamples); err != nil {
				firstErr = err
			}
		}
	}
	if err := g.Wait(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// decodeFrames decompresses the whole stream of s into w. CRC mismatches
// count as warnings; the affected frame's PCM is still written, matching
// the reference decoder.
func decodeFrames(s *tta.Stream, w pcmio.Writer, path string, nthreads int) error {
	nchan := int(s.Header.NChan)
	flen := s.Header.FrameLength()

	if nthreads <= 1 {
		buf := make([]int32, flen*nchan)
		for fidx := 0; ; fidx++ {
			n, err := s.NextFrame(buf)
			if err == io.EOF {
				return nil
			}
			if errors.Is(err, frame.ErrCRCMismatch) {
				warnf("%s: frame %d: CRC mismatch", path, fidx)
			} else if err != nil {
				return err
			}
			if err := w.WriteSamples(buf[:n]); err != nil {
				return err
			}
		}
	}

	depth, err := frame.DepthFromBits(int(s.Header.BitsPerSample))
	if err != nil {
		return err
	}

	type job struct {
		idx      int
		nsamples int
		data     []byte
	}
	type result struct {
		idx int
		pcm []int32
		n   int
		err error
	}
	jobs := make(chan job, nthreads)
	results := make(chan result, nthreads)

	var g errgroup.Group
	g.Go(func() error {
		defer close(jobs)
		for idx := 0; ; idx++ {
			data, nsamples, err := s.NextRawFrame(nil)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			jobs <- job{idx: idx, nsamples: nsamples, data: data}
		}
	})

	var wg sync.WaitGroup
	for i := 0; i < nthreads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codec, err := frame.NewCodec(nchan, depth)
			if err != nil {
				for j := range jobs {
					results <- result{idx: j.idx, err: err}
				}
				return
			}
			for j := range jobs {
				pcm := make([]int32, j.nsamples*nchan)
				n, err := tta.DecodeFrame(codec, j.data, j.nsamples, pcm)
				results <- result{idx: j.idx, pcm: pcm, n: n, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	next := 0
	pending := make(map[int]result)
	for res := range results {
		pending[res.idx] = res
		for {
			cur, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			idx := next
			next++
			if firstErr != nil {
				continue
			}
			if errors.Is(cur.err, frame.ErrCRCMismatch) {
				warnf("%s: frame %d: CRC mismatch", path, idx)
			} else if cur.err != nil {
				firstErr = cur.err
				continue
			}
			if err := w.WriteSamples(cur.pcm[:cur.n]); err != nil {
				firstErr = err
			}
		}
	}
	if err := g.Wait(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
