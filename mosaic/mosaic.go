// Package mosaic builds photo mosaics: a source image is cut into a grid and
// every cell is replaced by the library image whose average colour is closest.
package mosaic

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/moyoez/mosaic/tool"
)

const (
	DefaultCols = 32
	DefaultRows = 32
	jpegQuality = 90
)

var (
	ErrEmptyLibrary = errors.New("no library images found")
	libraryPatterns = []string{"*.png", "*.jpg", "*.jpeg"}
)

// Options describes one mosaic run. Zero Cols or Rows fall back to 32.
type Options struct {
	SourcePath  string
	LibraryPath string
	Cols        int
	Rows        int
	OutputDir   string
}

// RGB is an 8-bit average colour.
type RGB struct {
	R, G, B uint8
}

// Distance is the squared euclidean distance between two colours.
func (c RGB) Distance(o RGB) int {
	dr := int(c.R) - int(o.R)
	dg := int(c.G) - int(o.G)
	db := int(c.B) - int(o.B)
	return dr*dr + dg*dg + db*db
}

type libraryImage struct {
	path    string
	img     image.Image
	average RGB
}

// Create renders the mosaic and returns the path of the written file.
func Create(ctx context.Context, opts Options) (string, error) {
	if opts.Cols <= 0 {
		opts.Cols = DefaultCols
	}
	if opts.Rows <= 0 {
		opts.Rows = DefaultRows
	}

	src, err := imaging.Open(opts.SourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to load source image: %w", err)
	}
	tiles, err := SplitTiles(src.Bounds(), opts.Cols, opts.Rows)
	if err != nil {
		return "", err
	}
	tool.DefaultLogger.Debugf("[Mosaic] Source %s split into %d tiles", opts.SourcePath, len(tiles))

	library, err := loadLibrary(ctx, opts.LibraryPath)
	if err != nil {
		return "", err
	}
	tool.DefaultLogger.Infof("[Mosaic] Loaded %d library images from %s", len(library), opts.LibraryPath)

	out := image.NewRGBA(src.Bounds())
	for _, tile := range tiles {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		best := library[nearest(AverageColor(src, tile), library)]
		filled := imaging.Fill(best.img, tile.Dx(), tile.Dy(), imaging.Center, imaging.Lanczos)
		draw.Draw(out, tile, filled, filled.Bounds().Min, draw.Src)
	}

	outPath := OutputPath(opts.SourcePath, opts.OutputDir)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := imaging.Save(out, outPath, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("failed to write mosaic: %w", err)
	}
	tool.DefaultLogger.Infof("[Mosaic] Output written to %s", outPath)
	return outPath, nil
}

// SplitTiles cuts bounds into cols*rows cells, column by column. The last
// column and row absorb any remainder so the whole image is covered.
func SplitTiles(bounds image.Rectangle, cols, rows int) ([]image.Rectangle, error) {
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("invalid grid %dx%d", cols, rows)
	}
	w, h := bounds.Dx()/cols, bounds.Dy()/rows
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("grid %dx%d is finer than the %dx%d source", cols, rows, bounds.Dx(), bounds.Dy())
	}
	tiles := make([]image.Rectangle, 0, cols*rows)
	for i := 0; i < cols; i++ {
		for j := 0; j < rows; j++ {
			r := image.Rect(i*w, j*h, (i+1)*w, (j+1)*h).Add(bounds.Min)
			if i == cols-1 {
				r.Max.X = bounds.Max.X
			}
			if j == rows-1 {
				r.Max.Y = bounds.Max.Y
			}
			tiles = append(tiles, r)
		}
	}
	return tiles, nil
}

// AverageColor returns the mean colour of img inside r.
func AverageColor(img image.Image, r image.Rectangle) RGB {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return RGB{}
	}
	var cumR, cumG, cumB uint64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			cumR += uint64(cr)
			cumG += uint64(cg)
			cumB += uint64(cb)
		}
	}
	n := uint64(r.Dx() * r.Dy())
	return RGB{
		R: uint8((cumR / n) >> 8),
		G: uint8((cumG / n) >> 8),
		B: uint8((cumB / n) >> 8),
	}
}

// OutputPath is <dir>/<source name>_out<ext>. Sources that imaging cannot
// encode back get a .png extension.
func OutputPath(sourcePath, outputDir string) string {
	ext := strings.ToLower(filepath.Ext(sourcePath))
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	if _, err := imaging.FormatFromExtension(ext); err != nil || ext == "" {
		ext = ".png"
	}
	if outputDir == "" {
		outputDir = filepath.Dir(sourcePath)
	}
	return filepath.Join(outputDir, base+"_out"+ext)
}

// ParseGrid reads "cols,rows".
func ParseGrid(s string) (cols, rows int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("grid %q must look like cols,rows", s)
	}
	cols, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid grid columns: %w", err)
	}
	rows, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid grid rows: %w", err)
	}
	if cols <= 0 || rows <= 0 {
		return 0, 0, fmt.Errorf("grid %q must be positive", s)
	}
	return cols, rows, nil
}

func loadLibrary(ctx context.Context, dir string) ([]libraryImage, error) {
	var files []string
	for _, pattern := range libraryPatterns {
		found, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to list library images: %w", err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrEmptyLibrary)
	}
	slices.Sort(files)

	library := make([]libraryImage, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := imaging.Open(path)
			if err != nil {
				return fmt.Errorf("failed to load library image %s: %w", path, err)
			}
			library[i] = libraryImage{
				path:    path,
				img:     img,
				average: AverageColor(img, img.Bounds()),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return library, nil
}

func nearest(target RGB, library []libraryImage) int {
	best, bestDistance := 0, math.MaxInt
	for i, candidate := range library {
		if d := target.Distance(candidate.average); d < bestDistance {
			best, bestDistance = i, d
		}
	}
	return best
}
