package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func (api *API) GetNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": api.Feed.Recent()})
}

func (api *API) GetAudit(c *gin.Context) {
	if api.Journal == nil {
		sendError(c, http.StatusServiceUnavailable, "audit-disabled")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	var resources []string
	if resource := c.Query("resource"); resource != "" {
		resources = strings.Split(resource, ",")
	}

	entries, err := api.Journal.Recent(c.Request.Context(), limit, resources...)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries, "total": len(entries)})
}
