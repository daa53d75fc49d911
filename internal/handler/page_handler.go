package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pagedrop/internal/service"
)

type createPagePayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type updatePagePayload struct {
	Title       service.Optional[string] `json:"title"`
	Content     service.Optional[string] `json:"content"`
	IsPublished service.Optional[bool]   `json:"isPublished"`
}

type publishPayload struct {
	IsPublished *bool `json:"isPublished"`
}

// CreatePage stores a new page and returns it with its slug.
func (a *API) CreatePage(c *gin.Context) {
	var payload createPagePayload
	if !bindJSON(c, &payload, "Invalid request body") {
		return
	}

	page, err := a.pages.CreatePage(c.Request.Context(), service.CreatePageInput{
		Title:   payload.Title,
		Content: payload.Content,
	})
	if err != nil {
		respondPageError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// ListPages returns one page of the admin listing, newest first.
func (a *API) ListPages(c *gin.Context) {
	query := service.ListQuery{
		Page:  parsePositiveInt(c.Query("page"), 1),
		Limit: parsePositiveInt(c.Query("limit"), service.DefaultListLimit),
	}

	list, err := a.pages.ListPages(c.Request.Context(), query)
	if err != nil {
		respondPageError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":       list.Total,
		"pages":       list.Items,
		"totalPages":  list.TotalPages,
		"currentPage": list.CurrentPage,
		"limit":       list.Limit,
	})
}

// GetPage returns a single page for the editor.
func (a *API) GetPage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid page id")
		return
	}

	page, err := a.pages.GetPage(c.Request.Context(), id)
	if err != nil {
		respondPageError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// UpdatePage applies whichever of title, content and isPublished are present.
func (a *API) UpdatePage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid page id")
		return
	}

	var payload updatePagePayload
	if !bindJSON(c, &payload, "Invalid request body") {
		return
	}

	page, err := a.pages.UpdatePage(c.Request.Context(), id, service.PageUpdate{
		Title:       payload.Title,
		Content:     payload.Content,
		IsPublished: payload.IsPublished,
	})
	if err != nil {
		respondPageError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// TogglePublish sets the publish flag only.
func (a *API) TogglePublish(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid page id")
		return
	}

	var payload publishPayload
	if !bindJSON(c, &payload, "Invalid request body") {
		return
	}
	if payload.IsPublished == nil {
		respondError(c, http.StatusBadRequest, "isPublished is required")
		return
	}

	page, err := a.pages.TogglePublish(c.Request.Context(), id, *payload.IsPublished)
	if err != nil {
		respondPageError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// DeletePage removes a page permanently.
func (a *API) DeletePage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid page id")
		return
	}

	if err := a.pages.DeletePage(c.Request.Context(), id); err != nil {
		respondPageError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deleted successfully"})
}
