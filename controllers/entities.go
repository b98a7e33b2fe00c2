package controllers

import (
	"context"
	"net/http"
	"strconv"

	"catalogadmin/catalog"
	"catalogadmin/editcache"
	"catalogadmin/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Row is an entity that can be edited in the table and exported.
type Row interface {
	models.Entity
	models.Exportable
}

// Searcher is the backend's paginated, filtered list.
type Searcher[T any] interface {
	ListFiltered(ctx context.Context, f catalog.Filter) (catalog.Page[T], error)
}

// EntityHandler binds one resource's edit cache to HTTP.
type EntityHandler[T Row] struct {
	ctl    *editcache.Controller[T]
	search Searcher[T]
	plural string
	view   func(ctx context.Context, v editcache.View[T]) interface{}
}

type newRowResponse[T any] struct {
	Adding bool `json:"isAdding"`
	NewRow T    `json:"newRow"`
}

func NewEntityHandler[T Row](ctl *editcache.Controller[T], search Searcher[T], plural string) *EntityHandler[T] {
	return &EntityHandler[T]{ctl: ctl, search: search, plural: plural}
}

// WithView decorates snapshots before they are sent.
func (h *EntityHandler[T]) WithView(fn func(ctx context.Context, v editcache.View[T]) interface{}) *EntityHandler[T] {
	h.view = fn
	return h
}

func (h *EntityHandler[T]) Controller() *editcache.Controller[T] { return h.ctl }

func (h *EntityHandler[T]) Register(group *gin.RouterGroup) {
	group.GET("", h.GetSnapshot)
	group.POST("/refresh", h.Refresh)
	group.GET("/search", h.Search)
	group.GET("/export", h.Export)

	group.POST("/new", h.AddNewRow)
	group.PUT("/new", h.SetNewRow)
	group.POST("/new/save", h.SaveNewRow)
	group.DELETE("/new", h.CancelNewRow)

	group.POST("/:id/reload", h.Reload)
	group.POST("/:id/edit", h.StartEdit)
	group.PUT("/:id/draft", h.UpdateDraft)
	group.POST("/:id/save", h.SaveEdit)
	group.POST("/:id/cancel", h.CancelEdit)
	group.DELETE("/:id", h.Delete)
}

func (h *EntityHandler[T]) snapshot(ctx context.Context) interface{} {
	v := h.ctl.Snapshot()
	if h.view != nil {
		return h.view(ctx, v)
	}
	return v
}

func (h *EntityHandler[T]) GetSnapshot(c *gin.Context) {
	sendCached(c, h.snapshot(c.Request.Context()))
}

func (h *EntityHandler[T]) Refresh(c *gin.Context) {
	if err := h.ctl.Refresh(c.Request.Context()); err != nil {
		sendFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, h.snapshot(c.Request.Context()))
}

func (h *EntityHandler[T]) Search(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))

	result, err := h.search.ListFiltered(c.Request.Context(), catalog.Filter{
		Page:     page,
		PageSize: pageSize,
		Name:     c.Query("filterName"),
	})
	if err != nil {
		sendFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *EntityHandler[T]) Reload(c *gin.Context) {
	item, err := h.ctl.Reload(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *EntityHandler[T]) StartEdit(c *gin.Context) {
	id := c.Param("id")
	if err := h.ctl.StartEdit(id); err != nil {
		sendFailure(c, err)
		return
	}

	h.sendDraft(c, id)
}

func (h *EntityHandler[T]) UpdateDraft(c *gin.Context) {
	id := c.Param("id")

	var payload T
	if err := c.ShouldBindJSON(&payload); err != nil {
		logrus.WithError(err).Warnf("Invalid %s payload", h.plural)
		sendError(c, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.ctl.UpdateDraft(id, payload); err != nil {
		sendFailure(c, err)
		return
	}

	h.sendDraft(c, id)
}

func (h *EntityHandler[T]) SaveEdit(c *gin.Context) {
	item, err := h.ctl.SaveEdit(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *EntityHandler[T]) CancelEdit(c *gin.Context) {
	id := c.Param("id")
	if err := h.ctl.CancelEdit(id); err != nil {
		sendFailure(c, err)
		return
	}

	h.sendDraft(c, id)
}

func (h *EntityHandler[T]) Delete(c *gin.Context) {
	if err := h.ctl.Delete(c.Request.Context(), c.Param("id")); err != nil {
		sendFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, genericOK)
}

func (h *EntityHandler[T]) AddNewRow(c *gin.Context) {
	h.ctl.AddNewRow()
	h.sendNewRow(c)
}

func (h *EntityHandler[T]) SetNewRow(c *gin.Context) {
	var payload T
	if err := c.ShouldBindJSON(&payload); err != nil {
		logrus.WithError(err).Warnf("Invalid %s payload", h.plural)
		sendError(c, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.ctl.SetNewRow(payload); err != nil {
		sendFailure(c, err)
		return
	}

	h.sendNewRow(c)
}

func (h *EntityHandler[T]) SaveNewRow(c *gin.Context) {
	created, err := h.ctl.SaveNewRow(c.Request.Context())
	if err != nil {
		sendFailure(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *EntityHandler[T]) CancelNewRow(c *gin.Context) {
	h.ctl.CancelNewRow()
	c.JSON(http.StatusOK, genericOK)
}

func (h *EntityHandler[T]) Export(c *gin.Context) {
	items := h.ctl.Items()

	var header []string
	rows := make([][]interface{}, 0, len(items))
	for _, item := range items {
		header = item.ExportHeader()
		rows = append(rows, item.ExportRow())
	}

	handleExcel(c, h.plural, header, rows)
}

func (h *EntityHandler[T]) sendDraft(c *gin.Context, id string) {
	draft, ok := h.ctl.Draft(id)
	if !ok {
		sendFailure(c, editcache.ErrNoDraft)
		return
	}

	c.JSON(http.StatusOK, draft)
}

func (h *EntityHandler[T]) sendNewRow(c *gin.Context) {
	v := h.ctl.Snapshot()
	c.JSON(http.StatusOK, newRowResponse[T]{Adding: v.Adding, NewRow: v.NewRow})
}
