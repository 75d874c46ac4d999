package controllers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/mosaic/api/models"
	"github.com/moyoez/mosaic/tool"
	"github.com/moyoez/mosaic/types"
	"github.com/moyoez/mosaic/validate"
)

// HandleStatus reports that the server is up and which limits it enforces.
// GET /api/mosaic/v1/status
func HandleStatus(c *gin.Context) {
	policy := models.GetPolicy()
	c.JSON(http.StatusOK, gin.H{
		"running": true,
		"policy": gin.H{
			"maxPhotos":          policy.MaxPhotos,
			"maxFileSize":        policy.MaxFileSize,
			"maxFileSizeLabel":   validate.FormatSize(policy.MaxFileSize),
			"acceptedTypes":      policy.AcceptedTypes,
			"acceptedTypesLabel": policy.AcceptedTypesLabel,
		},
	})
}

// UserConfigGet returns the effective config without TLS material.
// GET /api/self/v1/config
func UserConfigGet(c *gin.Context) {
	c.JSON(http.StatusOK, configResponse(tool.GetCurrentConfig()))
}

func configResponse(cfg *types.AppConfig) types.ConfigResponse {
	accepted := slices.Clone(cfg.AcceptedTypes)
	if accepted == nil {
		accepted = []string{}
	}
	return types.ConfigResponse{
		Title:              cfg.Title,
		Port:               cfg.Port,
		Protocol:           cfg.Protocol,
		MaxPhotos:          cfg.MaxPhotos,
		MaxFileSize:        cfg.MaxFileSize,
		AcceptedTypes:      accepted,
		AcceptedTypesLabel: cfg.AcceptedTypesLabel,
		PreviewTimeout:     cfg.PreviewTimeout,
		PreviewConcurrency: cfg.PreviewConcurrency,
		SessionTTL:         cfg.SessionTTL,
		UploadRateLimit:    cfg.UploadRateLimit,
		MaxRequestBytes:    cfg.MaxRequestBytes,
	}
}

// UserConfigPatch updates the page title and the validation limits and persists them
// to config.yaml. Listener settings need a restart and are not accepted here.
// PATCH /api/self/v1/config
func UserConfigPatch(c *gin.Context) {
	var body types.ConfigPatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError(err.Error()))
		return
	}

	cfg := *tool.GetCurrentConfig()
	cfg.AcceptedTypes = slices.Clone(cfg.AcceptedTypes)

	if body.Title != nil {
		cfg.Title = *body.Title
	}
	if body.MaxPhotos != nil {
		if *body.MaxPhotos <= 0 {
			c.JSON(http.StatusBadRequest, tool.FastReturnError("maxPhotos must be positive"))
			return
		}
		cfg.MaxPhotos = *body.MaxPhotos
	}
	if body.MaxFileSize != nil {
		if *body.MaxFileSize <= 0 {
			c.JSON(http.StatusBadRequest, tool.FastReturnError("maxFileSize must be positive"))
			return
		}
		cfg.MaxFileSize = *body.MaxFileSize
	}
	if body.AcceptedTypes != nil {
		if len(*body.AcceptedTypes) == 0 {
			c.JSON(http.StatusBadRequest, tool.FastReturnError("acceptedTypes must not be empty"))
			return
		}
		cfg.AcceptedTypes = slices.Clone(*body.AcceptedTypes)
	}
	if body.AcceptedTypesLabel != nil {
		cfg.AcceptedTypesLabel = *body.AcceptedTypesLabel
	}

	tool.PersistAppConfig(&cfg)
	models.SetPolicy(validate.PolicyFromConfig(&cfg))
	tool.DefaultLogger.Infof("[Config] Updated: %d photos, %s each, %s", cfg.MaxPhotos, validate.FormatSize(cfg.MaxFileSize), cfg.AcceptedTypesLabel)
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(configResponse(&cfg)))
}
