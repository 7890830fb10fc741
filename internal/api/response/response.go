package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 业务错误码，0 代表成功
const (
	CodeSuccess      = 0
	CodeError        = -1
	CodeUnauthorized = 401
	CodeNotFound     = 404
)

// Response 管理 API 的统一响应结构 (webhook 不走这个)
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: CodeSuccess, Msg: "success", Data: data})
}

// Error 错误响应，404 单独给业务码
func Error(c *gin.Context, httpStatus int, msg string) {
	code := CodeError
	if httpStatus == http.StatusNotFound {
		code = CodeNotFound
	}
	c.JSON(httpStatus, Response{Code: code, Msg: msg})
}

// Unauthorized 鉴权失败并终止后续 handler
func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Code: CodeUnauthorized, Msg: msg})
}
