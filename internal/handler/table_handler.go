package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mshelf/internal/gateway"
	"github.com/xxxsen/mshelf/internal/pkg/response"
)

// TableHandler exposes one gateway.Table over http. The owner always comes
// from the token, never from the request body.
type TableHandler[T any] struct {
	table    gateway.Table[T]
	setOwner func(row *T, ownerID string)
	validate func(row T) error
}

func NewTableHandler[T any](table gateway.Table[T], setOwner func(*T, string), validate func(T) error) *TableHandler[T] {
	return &TableHandler[T]{table: table, setOwner: setOwner, validate: validate}
}

func (h *TableHandler[T]) List(c *gin.Context) {
	items, err := h.table.Select(c.Request.Context(), getUserID(c), c.Query("order"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}

func (h *TableHandler[T]) Create(c *gin.Context) {
	var row T
	if err := c.ShouldBindJSON(&row); err != nil {
		badRequest(c, "invalid request")
		return
	}
	h.setOwner(&row, getUserID(c))
	if h.validate != nil {
		if err := h.validate(row); err != nil {
			handleError(c, err)
			return
		}
	}
	created, err := h.table.Insert(c.Request.Context(), row)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, created)
}

func (h *TableHandler[T]) Update(c *gin.Context) {
	var patch gateway.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if err := h.table.Update(c.Request.Context(), getUserID(c), c.Param("id"), patch); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *TableHandler[T]) Delete(c *gin.Context) {
	if err := h.table.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *TableHandler[T]) register(group *gin.RouterGroup, name string) {
	group.GET("/"+name, h.List)
	group.POST("/"+name, h.Create)
	group.PATCH("/"+name+"/:id", h.Update)
	group.DELETE("/"+name+"/:id", h.Delete)
}
