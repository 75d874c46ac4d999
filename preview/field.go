package preview

import (
	"context"
	"slices"
	"sync"

	"github.com/moyoez/mosaic/types"
)

// Change is emitted every time a field's selection is replaced.
type Change struct {
	Key       string
	Selection types.FileSelection
}

// Field is an observable file-selection input. Each Set replaces the
// selection wholesale and emits a Change on the field's channel.
type Field struct {
	key string
	out chan<- Change

	mu      sync.Mutex
	current types.FileSelection
}

func NewField(key string, out chan<- Change) *Field {
	return &Field{key: key, out: out}
}

func (f *Field) Key() string {
	return f.key
}

// Current returns a copy of the latest selection.
func (f *Field) Current() types.FileSelection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.current)
}

// Set emits sel and stores it once it has been queued. The lock is held while
// sending so changes leave the field in the order they were stored. If ctx
// ends first the previous selection stays current.
func (f *Field) Set(ctx context.Context, sel types.FileSelection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := slices.Clone(sel)
	select {
	case f.out <- Change{Key: f.key, Selection: next}:
		f.current = next
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler reacts to one selection change.
type Handler func(ctx context.Context, change Change)

// Watch feeds every change to handle until ctx ends or changes is closed.
// It is the only consumer of the channel.
func Watch(ctx context.Context, changes <-chan Change, handle Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			handle(ctx, change)
		}
	}
}
