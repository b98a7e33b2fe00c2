package controllers

import (
	"errors"
	"net/http"
	"strings"

	"catalogadmin/images"

	"github.com/gin-gonic/gin"
)

func (api *API) UploadImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, "missing-file")
		return
	}

	if file.Size > api.Images.MaxBytes() {
		sendError(c, http.StatusRequestEntityTooLarge, "image-too-large")
		return
	}

	f, err := file.Open()
	if err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	defer f.Close()

	upload, err := api.Images.Upload(c.Request.Context(), f)
	switch {
	case errors.Is(err, images.ErrTooLarge):
		sendError(c, http.StatusRequestEntityTooLarge, "image-too-large")
		return
	case errors.Is(err, images.ErrNotImage), errors.Is(err, images.ErrEmpty):
		sendError(c, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusCreated, upload)
}

func (api *API) GetImage(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	info, body, err := api.Images.Open(c.Request.Context(), key)
	if errors.Is(err, images.ErrNotFound) {
		sendError(c, http.StatusNotFound, "image-not-found")
		return
	}
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer body.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, info.Size, contentType, body, map[string]string{
		"Cache-Control": "public, max-age=86400",
	})
}

func (api *API) DeleteImage(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	removed, err := api.Images.Remove(c.Request.Context(), key)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		sendError(c, http.StatusNotFound, "image-not-found")
		return
	}

	c.JSON(http.StatusOK, genericOK)
}
