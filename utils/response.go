package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Status  int         `json:"status,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	resp := JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
	if status >= http.StatusBadRequest {
		resp.Status = status
	}
	ctx.JSON(status, resp)
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Created returns a standard 201 response.
func Created(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusCreated, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// Fail maps err onto the error envelope. Errors that are not AppErrors become 500s.
func Fail(ctx *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Unhandled(50000, "internal server error", err)
	}
	if appErr.Status >= http.StatusInternalServerError {
		Sugar.Errorw("request failed", "path", ctx.Request.URL.Path, "kind", appErr.Kind, "err", appErr)
	}
	_ = ctx.Error(appErr)
	Error(ctx, appErr.Status, appErr.Code, appErr.Message)
}
