package types

import (
	"bytes"
	"io"
)

// PhotoFile is a single file handle picked by the user.
// Type is the declared media type, as sent by the browser.
type PhotoFile struct {
	Name string                        `json:"name"`
	Size int64                         `json:"size"`
	Type string                        `json:"type"`
	Open func() (io.ReadCloser, error) `json:"-"`
}

// FileSelection is the ordered set of files chosen in one interaction.
type FileSelection []PhotoFile

// NewPhotoFile wraps an in-memory file.
func NewPhotoFile(name, mediaType string, data []byte) PhotoFile {
	return PhotoFile{
		Name: name,
		Size: int64(len(data)),
		Type: mediaType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Names returns file names in selection order.
func (s FileSelection) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// TotalSize sums the declared sizes.
func (s FileSelection) TotalSize() int64 {
	var total int64
	for _, f := range s {
		total += f.Size
	}
	return total
}
