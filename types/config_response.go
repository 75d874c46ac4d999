package types

// ConfigResponse is the response body for GET /api/self/v1/config (TLS material left out).
type ConfigResponse struct {
	Title              string   `json:"title"`
	Port               int      `json:"port"`
	Protocol           string   `json:"protocol"`
	MaxPhotos          int      `json:"maxPhotos"`
	MaxFileSize        int64    `json:"maxFileSize"`
	AcceptedTypes      []string `json:"acceptedTypes"`
	AcceptedTypesLabel string   `json:"acceptedTypesLabel"`
	PreviewTimeout     int      `json:"previewTimeout"`
	PreviewConcurrency int      `json:"previewConcurrency"`
	SessionTTL         int      `json:"sessionTTL"`
	UploadRateLimit    int      `json:"uploadRateLimit"`
	MaxRequestBytes    int64    `json:"maxRequestBytes"`
}

// SelectionFileMeta is the metadata-only form of a selected file, as reported by the browser.
type SelectionFileMeta struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// ValidateRequest is the body of POST /api/mosaic/v1/validate.
type ValidateRequest struct {
	Files []SelectionFileMeta `json:"files"`
}

// SelectionResponse is returned after a selection has been accepted for previewing.
type SelectionResponse struct {
	Generation uint64            `json:"generation"`
	Files      int               `json:"files"`
	Errors     map[string]string `json:"errors"`
}

// ConfigPatchRequest is the body of PATCH /api/self/v1/config. Nil fields are left unchanged.
type ConfigPatchRequest struct {
	Title              *string   `json:"title"`
	MaxPhotos          *int      `json:"maxPhotos"`
	MaxFileSize        *int64    `json:"maxFileSize"`
	AcceptedTypes      *[]string `json:"acceptedTypes"`
	AcceptedTypesLabel *string   `json:"acceptedTypesLabel"`
}
