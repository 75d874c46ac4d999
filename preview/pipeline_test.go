package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moyoez/mosaic/tool"
	"github.com/moyoez/mosaic/types"
)

type publication struct {
	gen  uint64
	list types.PreviewList
}

type recorder struct {
	mu        sync.Mutex
	published []publication
	ch        chan publication
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan publication, 32)}
}

func (r *recorder) publish(gen uint64, list types.PreviewList) {
	r.mu.Lock()
	r.published = append(r.published, publication{gen: gen, list: list})
	r.mu.Unlock()
	r.ch <- publication{gen: gen, list: list}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.published)
}

func (r *recorder) next(t *testing.T) publication {
	t.Helper()
	select {
	case p := <-r.ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publication")
	}
	return publication{}
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func threePhotos(t *testing.T) (types.FileSelection, [][]byte) {
	colors := []color.Color{
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 255, A: 255},
		color.RGBA{B: 255, A: 255},
	}
	sel := make(types.FileSelection, len(colors))
	raw := make([][]byte, len(colors))
	for i, c := range colors {
		raw[i] = pngBytes(t, c)
		sel[i] = types.NewPhotoFile(fmt.Sprintf("photo-%d.png", i), "image/png", raw[i])
	}
	return sel, raw
}

func fakeFile(name string) types.PhotoFile {
	return types.NewPhotoFile(name, "image/png", []byte(name))
}

func TestSubmitEmptySelectionPublishesSynchronously(t *testing.T) {
	rec := newRecorder()
	p := New(nil, rec.publish, Options{})

	gen := p.Submit(context.Background(), nil)
	if rec.count() != 1 {
		t.Fatalf("expected immediate publication, got %d", rec.count())
	}
	pub := rec.next(t)
	if pub.gen != gen {
		t.Errorf("generation = %d, want %d", pub.gen, gen)
	}
	if pub.list == nil || len(pub.list) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", pub.list)
	}
}

func TestRunPreservesOrderAndEncodesDataURIs(t *testing.T) {
	sel, raw := threePhotos(t)

	// finish in reverse order to prove results are positional
	delays := map[string]time.Duration{
		"photo-0.png": 30 * time.Millisecond,
		"photo-1.png": 15 * time.Millisecond,
		"photo-2.png": 0,
	}
	dec := DecoderFunc(func(ctx context.Context, f types.PhotoFile) (string, error) {
		time.Sleep(delays[f.Name])
		return DataURLDecoder{}.Decode(ctx, f)
	})
	rec := newRecorder()
	p := New(dec, rec.publish, Options{})

	list, err := p.Run(context.Background(), sel)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	for i, entry := range list {
		if entry.Name != sel[i].Name {
			t.Errorf("entry %d name = %s, want %s", i, entry.Name, sel[i].Name)
		}
		if want := tool.EncodeDataURI("image/png", raw[i]); entry.Full.Src != want {
			t.Errorf("entry %d: wrong payload %.40s", i, entry.Full.Src)
		}
	}
	if rec.count() != 1 {
		t.Errorf("published %d times", rec.count())
	}
}

func TestRunIsIdempotent(t *testing.T) {
	sel, _ := threePhotos(t)
	p := New(nil, nil, Options{})

	first, err := p.Run(context.Background(), sel)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Run(context.Background(), sel)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		if first[i].Full.Src != second[i].Full.Src {
			t.Errorf("entry %d differs between runs", i)
		}
	}
}

func TestNewerSelectionWinsOverSlowerOlderBatch(t *testing.T) {
	release := make(chan struct{})
	dec := DecoderFunc(func(ctx context.Context, f types.PhotoFile) (string, error) {
		if f.Name == "slow.png" {
			<-release // ignores ctx on purpose
		}
		return "data:image/png;base64," + f.Name, nil
	})
	rec := newRecorder()
	p := New(dec, rec.publish, Options{})

	ctx := context.Background()
	older := p.Submit(ctx, types.FileSelection{fakeFile("slow.png")})
	newer := p.Submit(ctx, types.FileSelection{fakeFile("fast.png")})
	if newer <= older {
		t.Fatalf("generations not increasing: %d then %d", older, newer)
	}

	pub := rec.next(t)
	if pub.gen != newer || pub.list[0].Name != "fast.png" {
		t.Fatalf("unexpected publication %+v", pub)
	}

	close(release)
	p.Wait()
	if rec.count() != 1 {
		t.Fatalf("stale batch was published, count = %d", rec.count())
	}
}

func TestRunReportsSuperseded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	dec := DecoderFunc(func(ctx context.Context, f types.PhotoFile) (string, error) {
		if f.Name == "slow.png" {
			close(started)
			<-release
		}
		return "data:image/png;base64,AA==", nil
	})
	p := New(dec, nil, Options{})

	result := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), types.FileSelection{fakeFile("slow.png")})
		result <- err
	}()
	<-started

	if _, err := p.Run(context.Background(), types.FileSelection{fakeFile("fast.png")}); err != nil {
		t.Fatalf("newer run: %v", err)
	}
	close(release)
	if err := <-result; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("older run error = %v, want ErrSuperseded", err)
	}
}

func TestDecodeFailureBecomesPlaceholder(t *testing.T) {
	sel := types.FileSelection{fakeFile("a.png"), fakeFile("broken.png"), fakeFile("c.png")}
	sel[1].Open = func() (io.ReadCloser, error) {
		return nil, errors.New("disk on fire")
	}
	rec := newRecorder()
	p := New(nil, rec.publish, Options{})

	list, err := p.Run(context.Background(), sel)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	if !list[1].Unavailable || list[1].Reason != reasonUnreadable || list[1].Full.Src != "" {
		t.Errorf("entry 1 should be a placeholder: %+v", list[1])
	}
	if list[0].Unavailable || list[2].Unavailable {
		t.Error("healthy entries marked unavailable")
	}
	if list.Available() != 2 {
		t.Errorf("available = %d", list.Available())
	}
	if rec.count() != 1 {
		t.Errorf("expected one publication, got %d", rec.count())
	}
}

func TestTimeoutMarksStalledFiles(t *testing.T) {
	dec := DecoderFunc(func(ctx context.Context, f types.PhotoFile) (string, error) {
		if f.Name == "stuck.png" {
			<-ctx.Done()
			return "", fmt.Errorf("read: %w", ctx.Err())
		}
		return "data:image/png;base64,AA==", nil
	})
	p := New(dec, nil, Options{Timeout: 50 * time.Millisecond})

	list, err := p.Run(context.Background(), types.FileSelection{fakeFile("stuck.png"), fakeFile("ok.png")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !list[0].Unavailable || list[0].Reason != reasonTimedOut {
		t.Errorf("stuck entry = %+v", list[0])
	}
	if list[1].Unavailable {
		t.Errorf("ok entry = %+v", list[1])
	}
}

func TestSelectionCappedAtMaxPhotos(t *testing.T) {
	sel := make(types.FileSelection, 12)
	for i := range sel {
		sel[i] = fakeFile(fmt.Sprintf("%02d.png", i))
	}
	p := New(nil, nil, Options{MaxPhotos: 9})
	list, err := p.Run(context.Background(), sel)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 9 {
		t.Fatalf("len = %d, want 9", len(list))
	}
	if list[8].Name != "08.png" {
		t.Errorf("last entry = %s", list[8].Name)
	}
}

func TestMaxPhotosFuncReadPerBatch(t *testing.T) {
	sel := make(types.FileSelection, 12)
	for i := range sel {
		sel[i] = fakeFile(fmt.Sprintf("%02d.png", i))
	}
	var limit atomic.Int64
	limit.Store(3)
	p := New(nil, nil, Options{MaxPhotos: 9, MaxPhotosFunc: func() int { return int(limit.Load()) }})

	tests := []struct {
		limit int64
		want  int
	}{
		{3, 3},
		{12, 12},
		{0, 12},
	}
	for _, tt := range tests {
		limit.Store(tt.limit)
		list, err := p.Run(context.Background(), sel)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != tt.want {
			t.Errorf("limit %d: len = %d, want %d", tt.limit, len(list), tt.want)
		}
	}
}

func TestConcurrencyLimit(t *testing.T) {
	var active, peak atomic.Int32
	dec := DecoderFunc(func(ctx context.Context, f types.PhotoFile) (string, error) {
		n := active.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
		return "data:image/png;base64,AA==", nil
	})
	sel := make(types.FileSelection, 6)
	for i := range sel {
		sel[i] = fakeFile(fmt.Sprintf("%d.png", i))
	}
	p := New(dec, nil, Options{Concurrency: 2})
	if _, err := p.Run(context.Background(), sel); err != nil {
		t.Fatal(err)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestRunWithCancelledParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := newRecorder()
	p := New(nil, rec.publish, Options{})
	if _, err := p.Run(ctx, types.FileSelection{fakeFile("a.png")}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if rec.count() != 0 {
		t.Error("cancelled batch was published")
	}
}

func TestDataURLDecoderSniffsMissingType(t *testing.T) {
	data := pngBytes(t, color.White)
	src, err := DataURLDecoder{}.Decode(context.Background(), types.NewPhotoFile("x", "", data))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(src, "data:image/png;base64,") {
		t.Errorf("src = %.40s", src)
	}
}

func TestDataURLDecoderWithoutContent(t *testing.T) {
	if _, err := (DataURLDecoder{}).Decode(context.Background(), types.PhotoFile{Name: "meta-only"}); err == nil {
		t.Fatal("expected error for file without content")
	}
}
