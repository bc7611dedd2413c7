package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mshelf/internal/middleware"
	"github.com/xxxsen/mshelf/internal/model"
)

type RouterDeps struct {
	Notes     *TableHandler[model.Note]
	Links     *TableHandler[model.Link]
	Todos     *TableHandler[model.Todo]
	Files     *TableHandler[model.FileAsset]
	Objects   *ObjectHandler
	Metrics   http.Handler
	JWTSecret []byte
	// UploadWindow rate limits object uploads per user; zero disables it.
	UploadWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.Use(middleware.RequestID())

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	deps.Notes.register(authGroup, "notes")
	deps.Links.register(authGroup, "links")
	deps.Todos.register(authGroup, "todos")
	deps.Files.register(authGroup, "files")

	authGroup.PUT("/objects", middleware.RateLimit(deps.UploadWindow), deps.Objects.Put)
	authGroup.DELETE("/objects", deps.Objects.Remove)
	authGroup.GET("/objects/signed", deps.Objects.Signed)
	authGroup.GET("/objects/public", deps.Objects.Public)

	api.GET("/blobs/*key", deps.Objects.Blob)
	api.GET("/public/*key", deps.Objects.PublicBlob)
	if deps.Metrics != nil {
		api.GET("/metrics", gin.WrapH(deps.Metrics))
	}
}
