package types

// AppConfig represents the application configuration loaded from config file
type AppConfig struct {
	Title              string   `yaml:"title"`
	Port               int      `yaml:"port"`
	Protocol           string   `yaml:"protocol"`
	MaxPhotos          int      `yaml:"maxPhotos"`
	MaxFileSize        int64    `yaml:"maxFileSize"`        // bytes, decimal units (2MB = 2000000)
	AcceptedTypes      []string `yaml:"acceptedTypes"`      // exact media types, no wildcards
	AcceptedTypesLabel string   `yaml:"acceptedTypesLabel"` // shown as "Only <label>"
	PreviewTimeout     int      `yaml:"previewTimeout"`     // seconds, 0 disables
	PreviewConcurrency int      `yaml:"previewConcurrency"` // 0 means one decode per file
	SessionTTL         int      `yaml:"sessionTTL"`         // minutes
	UploadRateLimit    int      `yaml:"uploadRateLimit"`    // selection uploads per second per client, 0 disables
	MaxRequestBytes    int64    `yaml:"maxRequestBytes"`
	CertPEM            string   `yaml:"certPEM,omitempty"`
	KeyPEM             string   `yaml:"keyPEM,omitempty"`
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log           string
	UseConfigPath string
	UsePort       int
	UseHttps      bool
	UseHttp       bool
	UseTitle      string
	MosaicSource  string // when set, generate a mosaic and exit instead of serving
	MosaicLibrary string
	MosaicGrid    string // "cols,rows"
	MosaicOut     string
}
