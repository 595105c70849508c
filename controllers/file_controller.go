package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogapi/storage"
	"github.com/cppla/blogapi/utils"
)

// FileController serves stored thumbnails and avatars by filename.
type FileController struct {
	files storage.ThumbnailStore
}

// NewFileController creates a FileController.
func NewFileController(files storage.ThumbnailStore) *FileController {
	return &FileController{files: files}
}

// Serve streams the file named by the :name path parameter.
func (f *FileController) Serve(ctx *gin.Context) {
	obj, err := f.files.Open(ctx.Request.Context(), ctx.Param("name"))
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) || errors.Is(err, storage.ErrInvalidName) {
			utils.Fail(ctx, utils.NotFound(40420, "file not found"))
			return
		}
		utils.Fail(ctx, utils.Storage(50040, "failed to open file", err))
		return
	}
	defer obj.Body.Close()

	ctx.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj.Body, nil)
}
