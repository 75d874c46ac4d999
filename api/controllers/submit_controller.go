package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/mosaic/api/middlewares"
	"github.com/moyoez/mosaic/api/models"
	"github.com/moyoez/mosaic/api/templates"
	"github.com/moyoez/mosaic/tool"
	"github.com/moyoez/mosaic/types"
	"github.com/moyoez/mosaic/validate"
)

const (
	// PhotoField is the multipart field holding the selected photos.
	PhotoField  = "tilePhotoData"
	ruleRequest = validate.Rule("request")
)

// SubmitHandler receives a validated form. The form is not stored anywhere.
type SubmitHandler func(ctx context.Context, sel types.FileSelection) error

// OnSubmit is called for every accepted submission.
var OnSubmit SubmitHandler = LogSubmission

// LogSubmission only logs what was submitted.
func LogSubmission(_ context.Context, sel types.FileSelection) error {
	tool.DefaultLogger.Infof("[Submit] Received %d photos (%d bytes): %v", len(sel), sel.TotalSize(), sel.Names())
	return nil
}

// HandleSubmit validates the posted form and re-renders the page.
// POST /submit
func HandleSubmit(c *gin.Context) {
	s := middlewares.CurrentSession(c)
	sel, err := readSelection(c)
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		status := selectionErrorStatus(err)
		tool.DefaultLogger.Warnf("[Submit] Rejected form: %v", err)
		data := newPageData(s)
		data.Errors = []*validate.ValidationError{validate.NewValidationError(ruleRequest, "Could not read the uploaded photos")}
		c.HTML(status, templates.Index, data)
		return
	}

	failures := models.GetPolicy().ValidateSubmission(sel)
	data := newPageData(s)
	data.Errors = failures
	if len(failures) > 0 {
		tool.DefaultLogger.Debugf("[Submit] %d rule(s) failed: %v", len(failures), validate.Messages(failures))
		c.HTML(http.StatusBadRequest, templates.Index, data)
		return
	}

	if err := OnSubmit(c.Request.Context(), sel); err != nil {
		tool.DefaultLogger.Errorf("[Submit] Handler failed: %v", err)
		c.HTML(http.StatusInternalServerError, templates.Index, data)
		return
	}
	data.Submitted = true
	data.SubmittedNames = sel.Names()
	c.HTML(http.StatusOK, templates.Index, data)
}
