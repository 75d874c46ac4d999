package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/moyoez/mosaic/types"
)

// BufferPhotoFile reads a multipart part fully into memory. Multipart temp files are removed
// when the request ends, so anything previewed after the response must be buffered first.
func BufferPhotoFile(ctx context.Context, header *multipart.FileHeader) (types.PhotoFile, error) {
	file, err := header.Open()
	if err != nil {
		return types.PhotoFile{}, fmt.Errorf("failed to open %s: %w", header.Filename, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			DefaultLogger.Errorf("Failed to close multipart file %s: %v", header.Filename, err)
		}
	}()

	var buf bytes.Buffer
	if header.Size > 0 {
		buf.Grow(int(header.Size))
	}
	if _, err := CopyWithContext(ctx, &buf, file); err != nil {
		return types.PhotoFile{}, fmt.Errorf("failed to read %s: %w", header.Filename, err)
	}

	photo := types.NewPhotoFile(header.Filename, header.Header.Get("Content-Type"), buf.Bytes())
	// the declared size wins so validation sees what the browser reported
	if header.Size > 0 {
		photo.Size = header.Size
	}
	return photo, nil
}

// BufferSelection buffers every part, keeping their order.
func BufferSelection(ctx context.Context, headers []*multipart.FileHeader) (types.FileSelection, error) {
	sel := make(types.FileSelection, 0, len(headers))
	for _, h := range headers {
		photo, err := BufferPhotoFile(ctx, h)
		if err != nil {
			return nil, err
		}
		sel = append(sel, photo)
	}
	return sel, nil
}

// CopyWithContext copies from src to dst while respecting context cancellation.
func CopyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 256*1024)
	var written int64
	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		nr, readErr := src.Read(buf)
		if nr > 0 {
			nw, writeErr := dst.Write(buf[0:nr])
			if nw < 0 || nr < nw {
				nw = 0
				if writeErr == nil {
					writeErr = fmt.Errorf("invalid write result")
				}
			}
			written += int64(nw)
			if writeErr != nil {
				return written, writeErr
			}
			if nr != nw {
				return written, io.ErrShortWrite
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, readErr
		}
	}
}
