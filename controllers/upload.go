package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/utils"
)

// formUpload opens the named multipart file. A missing file, or a form that is not
// multipart at all, yields a nil upload; a body that fails to parse is a 400.
// The returned close func must be called once the service is done with the body.
func formUpload(ctx *gin.Context, field string) (*services.Upload, func(), error) {
	header, err := ctx.FormFile(field)
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return nil, func() {}, nil
	case err != nil:
		return nil, func() {}, utils.BadRequest(40003, "Malformed multipart form.")
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*services.Upload, func(), error) {
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, utils.Unhandled(50030, "failed to read upload", err)
	}
	return &services.Upload{
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        f,
	}, func() { _ = f.Close() }, nil
}
