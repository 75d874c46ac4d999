package tool

import (
	"maps"

	"github.com/gin-gonic/gin"
)

// FastReturnError is the JSON body of every failed API request.
func FastReturnError(msg string) gin.H {
	return gin.H{
		"error": msg,
	}
}

// FastReturnSuccessWithData wraps a result as {"data": ...}.
func FastReturnSuccessWithData(data any) gin.H {
	return gin.H{
		"data": data,
	}
}

// FastReturnErrorWithData adds fields next to "error", e.g. the rule messages
// of a selection that could not be queued. An "error" key in data is ignored.
func FastReturnErrorWithData(msg string, data map[string]any) gin.H {
	resp := gin.H{}
	maps.Copy(resp, data)
	resp["error"] = msg
	return resp
}
