package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/mosaic/api/middlewares"
	"github.com/moyoez/mosaic/api/models"
	"github.com/moyoez/mosaic/api/templates"
	"github.com/moyoez/mosaic/tool"
	"github.com/moyoez/mosaic/types"
	"github.com/moyoez/mosaic/validate"
)

// PageData is what the upload page template renders.
type PageData struct {
	Title          string
	Accept         string
	Errors         []*validate.ValidationError
	Images         types.PreviewList
	Generation     uint64
	Submitted      bool
	SubmittedNames []string
}

func newPageData(s *models.Session) PageData {
	cfg := tool.GetCurrentConfig()
	policy := models.GetPolicy()
	data := PageData{
		Title:  cfg.Title,
		Accept: strings.Join(policy.AcceptedTypes, ","),
		Images: types.PreviewList{},
	}
	if data.Title == "" {
		data.Title = "Mosaic"
	}
	if s != nil {
		state := s.State()
		data.Images = state.Images
		data.Generation = state.Generation
		data.Errors = s.Failures()
	}
	return data
}

// HandleIndex renders the upload page with the session's current previews.
// GET /
func HandleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, templates.Index, newPageData(middlewares.CurrentSession(c)))
}
