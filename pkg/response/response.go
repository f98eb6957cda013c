package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 所有接口共用的响应包体
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 业务成功，HTTP 200 + code 0
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 参数/权限/系统类错误，HTTP 状态码与业务码一并给出
func Error(c *gin.Context, httpCode int, errCode int, msg string) {
	c.JSON(httpCode, Response{
		Code:    errCode,
		Message: msg,
	})
}

// Fail 业务规则拒绝：请求本身合法，HTTP 200，业务码非 0。
// 库存不足、订单状态不允许、支付被网关拒绝等都走这里。
func Fail(c *gin.Context, errCode int, msg string) {
	c.JSON(http.StatusOK, Response{
		Code:    errCode,
		Message: msg,
	})
}
