package types

// PreviewImage holds a displayable image source (a data URI).
type PreviewImage struct {
	Src string `json:"src"`
}

// PreviewEntry is one thumbnail in the preview grid.
// Unavailable entries keep their position but carry no image.
type PreviewEntry struct {
	Full        PreviewImage `json:"full"`
	Name        string       `json:"name,omitempty"`
	Unavailable bool         `json:"unavailable,omitempty"`
	Reason      string       `json:"reason,omitempty"`
}

// PreviewList is ordered like the selection it was built from.
type PreviewList []PreviewEntry

// Available counts entries with an image.
func (l PreviewList) Available() int {
	n := 0
	for _, e := range l {
		if !e.Unavailable {
			n++
		}
	}
	return n
}

// PreviewState is what a session currently displays.
type PreviewState struct {
	Generation uint64      `json:"generation"`
	Images     PreviewList `json:"images"`
}
