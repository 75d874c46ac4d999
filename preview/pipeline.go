// Package preview converts file selections into ordered thumbnail lists.
//
// Every selection starts a new generation. Files are decoded concurrently,
// results are kept in selection order, and the finished list is published
// only if no newer selection has started in the meantime.
package preview

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moyoez/mosaic/tool"
	"github.com/moyoez/mosaic/types"
)

// ErrSuperseded is returned for a batch whose selection was replaced before it finished.
var ErrSuperseded = errors.New("preview batch superseded by a newer selection")

const (
	reasonTimedOut   = "preview timed out"
	reasonUnreadable = "preview unavailable"
)

// Publisher receives every list that becomes current. It is called with the
// pipeline lock held, so it must not block or call back into the pipeline.
type Publisher func(generation uint64, list types.PreviewList)

// Options tunes a Pipeline. Zero values mean no limit.
type Options struct {
	MaxPhotos int
	// MaxPhotosFunc, when set, is read at the start of every batch and wins
	// over MaxPhotos.
	MaxPhotosFunc func() int
	Concurrency   int
	Timeout       time.Duration
}

func (o Options) maxPhotos() int {
	if o.MaxPhotosFunc != nil {
		return o.MaxPhotosFunc()
	}
	return o.MaxPhotos
}

// Pipeline decodes selections and publishes the newest result.
type Pipeline struct {
	decoder Decoder
	publish Publisher
	opts    Options

	generation atomic.Uint64
	mu         sync.Mutex // orders generation changes against publication
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a pipeline. A nil decoder means DataURLDecoder.
func New(decoder Decoder, publish Publisher, opts Options) *Pipeline {
	if decoder == nil {
		decoder = DataURLDecoder{}
	}
	return &Pipeline{
		decoder: decoder,
		publish: publish,
		opts:    opts,
	}
}

// Generation returns the token of the most recently started selection.
func (p *Pipeline) Generation() uint64 {
	return p.generation.Load()
}

// Run decodes sel and publishes the result before returning.
// It returns ErrSuperseded if a newer selection started while it was running.
func (p *Pipeline) Run(ctx context.Context, sel types.FileSelection) (types.PreviewList, error) {
	token, runCtx, cancel := p.begin(ctx)
	defer cancel()
	return p.run(runCtx, token, sel)
}

// Submit starts decoding sel in the background and returns its generation.
// An empty selection is published before Submit returns.
func (p *Pipeline) Submit(ctx context.Context, sel types.FileSelection) uint64 {
	token, runCtx, cancel := p.begin(ctx)
	if len(sel) == 0 {
		defer cancel()
		_, _ = p.run(runCtx, token, sel)
		return token
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		if _, err := p.run(runCtx, token, sel); err != nil {
			tool.DefaultLogger.Debugf("[Preview] Generation %d not published: %v", token, err)
		}
	}()
	return token
}

// Wait blocks until every submitted batch has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Stop cancels the in-flight batch and waits for background work.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pipeline) begin(parent context.Context) (uint64, context.Context, context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	token := p.generation.Add(1)

	var ctx context.Context
	var cancel context.CancelFunc
	if p.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, p.opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	p.cancel = cancel
	return token, ctx, cancel
}

func (p *Pipeline) run(ctx context.Context, token uint64, sel types.FileSelection) (types.PreviewList, error) {
	if len(sel) == 0 {
		list := types.PreviewList{}
		if !p.publishIfCurrent(token, list) {
			return nil, ErrSuperseded
		}
		return list, nil
	}

	if limit := p.opts.maxPhotos(); limit > 0 && len(sel) > limit {
		tool.DefaultLogger.Debugf("[Preview] Selection of %d files capped to %d", len(sel), limit)
		sel = sel[:limit]
	}

	started := time.Now()
	list := make(types.PreviewList, len(sel))
	errs := make([]error, len(sel))
	var g errgroup.Group
	if p.opts.Concurrency > 0 {
		g.SetLimit(p.opts.Concurrency)
	}
	for i, file := range sel {
		i, file := i, file
		g.Go(func() error {
			src, err := p.decoder.Decode(ctx, file)
			if err != nil {
				list[i] = unavailableEntry(file, err)
				errs[i] = err
				return nil
			}
			list[i] = types.PreviewEntry{
				Full: types.PreviewImage{Src: src},
				Name: file.Name,
			}
			return nil
		})
	}
	_ = g.Wait()

	if p.generation.Load() != token {
		return nil, ErrSuperseded
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if !p.publishIfCurrent(token, list) {
		return nil, ErrSuperseded
	}

	if missing := len(list) - list.Available(); missing > 0 {
		for i, err := range errs {
			if err != nil {
				tool.DefaultLogger.Warnf("[Preview] %s: %v", sel[i].Name, err)
			}
		}
		tool.DefaultLogger.Warnf("[Preview] Generation %d published with %d of %d previews unavailable", token, missing, len(list))
	} else {
		tool.DefaultLogger.Debugf("[Preview] Generation %d published %d previews in %s", token, len(list), time.Since(started))
	}
	return list, nil
}

func (p *Pipeline) publishIfCurrent(token uint64, list types.PreviewList) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation.Load() != token {
		return false
	}
	if p.publish != nil {
		p.publish(token, list)
	}
	return true
}

func unavailableEntry(file types.PhotoFile, err error) types.PreviewEntry {
	reason := reasonUnreadable
	if errors.Is(err, context.DeadlineExceeded) {
		reason = reasonTimedOut
	}
	return types.PreviewEntry{
		Name:        file.Name,
		Unavailable: true,
		Reason:      reason,
	}
}
