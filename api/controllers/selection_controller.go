package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/mosaic/api/middlewares"
	"github.com/moyoez/mosaic/api/models"
	"github.com/moyoez/mosaic/tool"
	"github.com/moyoez/mosaic/types"
	"github.com/moyoez/mosaic/validate"
)

// HandleSelection replaces the session's selection with the posted files,
// validates them and starts previewing. Previews arrive on the notify socket.
// POST /api/mosaic/v1/selection
func HandleSelection(c *gin.Context) {
	s := middlewares.CurrentSession(c)
	if s == nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("No session"))
		return
	}

	sel, err := readSelection(c)
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		tool.DefaultLogger.Warnf("[Selection] %s: %v", s.ID, err)
		status := selectionErrorStatus(err)
		if status == http.StatusRequestEntityTooLarge {
			c.JSON(status, tool.FastReturnErrorWithData(err.Error(), map[string]any{
				"limit": tool.GetCurrentConfig().MaxRequestBytes,
			}))
			return
		}
		c.JSON(status, tool.FastReturnError(err.Error()))
		return
	}

	failures := models.GetPolicy().Validate(sel)
	gen, err := s.Select(c.Request.Context(), sel, failures)
	if err != nil {
		tool.DefaultLogger.Warnf("[Selection] %s: failed to queue selection: %v", s.ID, err)
		c.JSON(http.StatusServiceUnavailable, tool.FastReturnErrorWithData("Failed to queue selection", map[string]any{
			"errors": validate.Messages(failures),
		}))
		return
	}
	tool.DefaultLogger.Debugf("[Selection] %s: %d files queued as generation %d", s.ID, len(sel), gen)

	c.JSON(http.StatusOK, types.SelectionResponse{
		Generation: gen,
		Files:      len(sel),
		Errors:     validate.Messages(failures),
	})
}

// HandleValidate checks file metadata without receiving the files.
// POST /api/mosaic/v1/validate
func HandleValidate(c *gin.Context) {
	var body types.ValidateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError(err.Error()))
		return
	}
	sel := make(types.FileSelection, len(body.Files))
	for i, f := range body.Files {
		sel[i] = types.PhotoFile{Name: f.Name, Size: f.Size, Type: f.Type}
	}
	failures := models.GetPolicy().Validate(sel)
	c.JSON(http.StatusOK, gin.H{
		"valid":  len(failures) == 0,
		"errors": validate.Messages(failures),
	})
}

// HandleGetPreviews returns the session's last published previews.
// GET /api/mosaic/v1/previews
func HandleGetPreviews(c *gin.Context) {
	s := middlewares.CurrentSession(c)
	if s == nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("No session"))
		return
	}
	state := s.State()
	if state.Images == nil {
		state.Images = types.PreviewList{}
	}
	c.JSON(http.StatusOK, state)
}

// readSelection buffers the photo field of a multipart request, keeping file order.
// A form without the field yields an empty selection and http.ErrMissingFile.
func readSelection(c *gin.Context) (types.FileSelection, error) {
	limit := tool.GetCurrentConfig().MaxRequestBytes
	if limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return types.FileSelection{}, fmt.Errorf("failed to parse form: %w", err)
	}
	headers := form.File[PhotoField]
	if len(headers) == 0 {
		return types.FileSelection{}, http.ErrMissingFile
	}
	return tool.BufferSelection(c.Request.Context(), headers)
}

func selectionErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
