package util

import (
	"chapter_tracker_backend/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty"`
}

func SuccessBody(data interface{}) Response {
	return Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	}
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessBody(data))
}

func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: message,
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	HandleError(c, NewBadRequestError(message))
}

func TooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{
		Code:      http.StatusTooManyRequests,
		Message:   "Too many requests. Try again in a minute.",
		ErrorCode: ErrCodeTooManyRequests,
	})
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

// HandleError AppError 原样返回，其他错误只记录日志并返回通用 500
func HandleError(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != ErrCodeInternal {
		c.AbortWithStatusJSON(appErr.Status, Response{
			Code:      appErr.Status,
			Message:   appErr.Message,
			ErrorCode: appErr.Code,
		})
		return
	}
	LogInternalError(c, err)
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.Error(err),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
		Code:      http.StatusInternalServerError,
		Message:   "Internal server error",
		ErrorCode: ErrCodeInternal,
	})
}
