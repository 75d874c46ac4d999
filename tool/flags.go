package tool

import (
	"flag"

	"github.com/moyoez/mosaic/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.IntVar(&cfg.UsePort, "usePort", 0, "override listen port")
	flag.BoolVar(&cfg.UseHttps, "useHttps", false, "serve the page over https with a self-signed certificate")
	flag.BoolVar(&cfg.UseHttp, "useHttp", false, "serve the page over plain http")
	flag.StringVar(&cfg.UseTitle, "useTitle", "", "override page title")
	flag.StringVar(&cfg.MosaicSource, "mosaicSource", "", "generate a mosaic from this source image and exit")
	flag.StringVar(&cfg.MosaicLibrary, "mosaicLibrary", "", "directory of library images (*.png, *.jpg, *.jpeg)")
	flag.StringVar(&cfg.MosaicGrid, "mosaicGrid", "32,32", "mosaic grid size as cols,rows")
	flag.StringVar(&cfg.MosaicOut, "mosaicOut", ".", "mosaic output directory")
	flag.Parse()
	return cfg
}

// ApplyFlagOverrides copies flag values that were set onto the loaded config.
func ApplyFlagOverrides(appCfg *types.AppConfig, flags types.Config) {
	if flags.UsePort > 0 {
		appCfg.Port = flags.UsePort
	}
	if flags.UseTitle != "" {
		appCfg.Title = flags.UseTitle
	}
	switch {
	case flags.UseHttps:
		appCfg.Protocol = "https"
	case flags.UseHttp:
		appCfg.Protocol = "http"
	}
}
