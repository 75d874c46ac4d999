package mosaic

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

var (
	red   = color.NRGBA{R: 250, G: 10, B: 10, A: 255}
	green = color.NRGBA{R: 10, G: 250, B: 10, A: 255}
	blue  = color.NRGBA{R: 10, G: 10, B: 250, A: 255}
)

func saveSolid(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	if err := imaging.Save(imaging.New(w, h, c), path); err != nil {
		t.Fatal(err)
	}
}

func near(got color.Color, want color.NRGBA) bool {
	c := color.NRGBAModel.Convert(got).(color.NRGBA)
	d := func(a, b uint8) int {
		if a > b {
			return int(a - b)
		}
		return int(b - a)
	}
	return d(c.R, want.R) < 16 && d(c.G, want.G) < 16 && d(c.B, want.B) < 16
}

func TestCreatePicksNearestLibraryImage(t *testing.T) {
	dir := t.TempDir()
	libDir := filepath.Join(dir, "library")
	outDir := filepath.Join(dir, "out")

	// left half red, right half blue
	src := imaging.New(40, 20, red)
	src = imaging.Paste(src, imaging.New(20, 20, blue), image.Pt(20, 0))
	srcPath := filepath.Join(dir, "source.png")
	if err := imaging.Save(src, srcPath); err != nil {
		t.Fatal(err)
	}

	if err := os.MkdirAll(libDir, 0o755); err != nil {
		t.Fatal(err)
	}
	saveSolid(t, filepath.Join(libDir, "red.png"), 8, 8, color.NRGBA{R: 240, G: 20, B: 20, A: 255})
	saveSolid(t, filepath.Join(libDir, "green.jpg"), 8, 8, green)
	saveSolid(t, filepath.Join(libDir, "blue.png"), 12, 6, color.NRGBA{R: 20, G: 20, B: 240, A: 255})

	out, err := Create(context.Background(), Options{
		SourcePath:  srcPath,
		LibraryPath: libDir,
		Cols:        2,
		Rows:        1,
		OutputDir:   outDir,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if want := filepath.Join(outDir, "source_out.png"); out != want {
		t.Fatalf("output = %s, want %s", out, want)
	}

	result, err := imaging.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	if result.Bounds().Dx() != 40 || result.Bounds().Dy() != 20 {
		t.Fatalf("output size = %v", result.Bounds())
	}
	if got := result.At(10, 10); !near(got, color.NRGBA{R: 240, G: 20, B: 20}) {
		t.Errorf("left tile = %v, want red", got)
	}
	if got := result.At(30, 10); !near(got, color.NRGBA{R: 20, G: 20, B: 240}) {
		t.Errorf("right tile = %v, want blue", got)
	}
}

func TestCreateWithEmptyLibrary(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.png")
	saveSolid(t, srcPath, 10, 10, red)

	_, err := Create(context.Background(), Options{
		SourcePath:  srcPath,
		LibraryPath: filepath.Join(dir, "nothing-here"),
		Cols:        2,
		Rows:        2,
	})
	if !errors.Is(err, ErrEmptyLibrary) {
		t.Fatalf("err = %v, want ErrEmptyLibrary", err)
	}
}

func TestCreateWithMissingSource(t *testing.T) {
	if _, err := Create(context.Background(), Options{SourcePath: filepath.Join(t.TempDir(), "missing.png")}); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestSplitTiles(t *testing.T) {
	tiles, err := SplitTiles(image.Rect(0, 0, 10, 7), 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(tiles) != 6 {
		t.Fatalf("len = %d", len(tiles))
	}
	// column-major, remainder in the last column and row
	if tiles[0] != image.Rect(0, 0, 3, 3) {
		t.Errorf("first tile = %v", tiles[0])
	}
	if tiles[5] != image.Rect(6, 3, 10, 7) {
		t.Errorf("last tile = %v", tiles[5])
	}

	if _, err := SplitTiles(image.Rect(0, 0, 4, 4), 8, 8); err == nil {
		t.Error("expected error when grid is finer than the image")
	}
	if _, err := SplitTiles(image.Rect(0, 0, 4, 4), 0, 1); err == nil {
		t.Error("expected error for zero columns")
	}
}

func TestAverageColor(t *testing.T) {
	img := imaging.New(4, 2, color.NRGBA{R: 200, A: 255})
	img = imaging.Paste(img, imaging.New(2, 2, color.NRGBA{B: 100, A: 255}), image.Pt(2, 0))

	if got := AverageColor(img, image.Rect(0, 0, 2, 2)); got != (RGB{R: 200}) {
		t.Errorf("left = %+v", got)
	}
	if got := AverageColor(img, img.Bounds()); got != (RGB{R: 100, B: 50}) {
		t.Errorf("whole = %+v", got)
	}
	if got := AverageColor(img, image.Rect(10, 10, 12, 12)); got != (RGB{}) {
		t.Errorf("outside = %+v", got)
	}
}

func TestNearest(t *testing.T) {
	library := []libraryImage{
		{path: "dark", average: RGB{10, 10, 10}},
		{path: "orange", average: RGB{250, 120, 0}},
		{path: "light", average: RGB{240, 240, 240}},
	}
	tests := []struct {
		target RGB
		want   string
	}{
		{RGB{0, 0, 0}, "dark"},
		{RGB{230, 100, 20}, "orange"},
		{RGB{255, 255, 255}, "light"},
	}
	for _, tt := range tests {
		if got := library[nearest(tt.target, library)].path; got != tt.want {
			t.Errorf("nearest(%v) = %s, want %s", tt.target, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		source, dir, want string
	}{
		{"in/photo.png", "out", filepath.Join("out", "photo_out.png")},
		{"in/photo.JPG", "out", filepath.Join("out", "photo_out.jpg")},
		{"in/my.photo.jpeg", "", filepath.Join("in", "my.photo_out.jpeg")},
		{"in/raw.webp", "out", filepath.Join("out", "raw_out.png")},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.source, tt.dir); got != tt.want {
			t.Errorf("OutputPath(%s, %s) = %s, want %s", tt.source, tt.dir, got, tt.want)
		}
	}
}

func TestParseGrid(t *testing.T) {
	tests := []struct {
		in         string
		cols, rows int
		wantErr    bool
	}{
		{"32,32", 32, 32, false},
		{" 4, 3 ", 4, 3, false},
		{"4", 0, 0, true},
		{"a,3", 0, 0, true},
		{"0,3", 0, 0, true},
	}
	for _, tt := range tests {
		cols, rows, err := ParseGrid(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseGrid(%q) err = %v", tt.in, err)
			continue
		}
		if cols != tt.cols || rows != tt.rows {
			t.Errorf("ParseGrid(%q) = %d,%d", tt.in, cols, rows)
		}
	}
}
