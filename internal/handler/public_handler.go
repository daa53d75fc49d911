package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pagedrop/internal/service"
)

// ShowPublicPage serves the stored HTML of a published page byte for byte.
func (a *API) ShowPublicPage(c *gin.Context) {
	content, err := a.pages.Resolve(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, service.ErrPageUnavailable) {
			c.String(http.StatusNotFound, "Page not found or unpublished")
			return
		}
		c.Error(err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(content))
}
