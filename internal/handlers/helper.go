package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/SAP-F-2025/proctor-service/internal/services"
	"github.com/gin-gonic/gin"
)

var errEmptyImage = errors.New("empty image payload")

func ParseStringIDParam(c *gin.Context, param string) string {
	idStr := c.Param(param)
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return ""
	}
	return idStr
}

// decodeImage accepts raw base64 or a data URL ("data:image/jpeg;base64,...")
func decodeImage(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if i := strings.Index(payload, ","); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+1:]
	}
	if payload == "" {
		return nil, errEmptyImage
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errEmptyImage
	}
	return data, nil
}

// currentIdentity returns the caller set by Authenticate. The route groups
// guarantee it is present.
func currentIdentity(c *gin.Context) *services.Identity {
	if v, ok := c.Get(ctxIdentity); ok {
		if id, ok := v.(*services.Identity); ok {
			return id
		}
	}
	return nil
}
