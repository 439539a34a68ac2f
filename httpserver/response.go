package httpserver

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const successMessage = "OK"

type APIResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Result  interface{} `json:"result,omitempty"`
}

func writeSuccess(c echo.Context, status int, result interface{}) error {
	return c.JSON(status, APIResponse{
		Code:    strconv.Itoa(status),
		Message: successMessage,
		Result:  result,
	})
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error interface{} `json:"error"`
}
