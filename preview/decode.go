package preview

import (
	"bytes"
	"context"
	"fmt"

	"github.com/moyoez/mosaic/tool"
	"github.com/moyoez/mosaic/types"
)

// Decoder turns one selected file into a displayable image source.
type Decoder interface {
	Decode(ctx context.Context, file types.PhotoFile) (string, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, file types.PhotoFile) (string, error)

func (f DecoderFunc) Decode(ctx context.Context, file types.PhotoFile) (string, error) {
	return f(ctx, file)
}

// DataURLDecoder reads the whole file and encodes it as a base64 data URI.
// The declared type is used as is; files without one are sniffed.
type DataURLDecoder struct{}

func (DataURLDecoder) Decode(ctx context.Context, file types.PhotoFile) (string, error) {
	if file.Open == nil {
		return "", fmt.Errorf("%s: file has no content", file.Name)
	}
	rc, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("%s: open: %w", file.Name, err)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			tool.DefaultLogger.Errorf("[Preview] Failed to close %s: %v", file.Name, err)
		}
	}()

	var buf bytes.Buffer
	if file.Size > 0 {
		buf.Grow(int(file.Size))
	}
	if _, err := tool.CopyWithContext(ctx, &buf, rc); err != nil {
		return "", fmt.Errorf("%s: read: %w", file.Name, err)
	}

	mediaType := file.Type
	if mediaType == "" {
		mediaType = tool.DetectMediaType(buf.Bytes())
	}
	return tool.EncodeDataURI(mediaType, buf.Bytes()), nil
}
