// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"encoding/json"
	"net/http"
	"time"

	"account-service/internal/auth"
	"account-service/internal/logger"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorData `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Timestamp: time.Now().UTC()})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data, Timestamp: time.Now().UTC()})
}

// Error classifies err and writes it. Server-side failures are logged with
// full detail; the client only sees the public message.
func Error(c *gin.Context, err error) {
	status, body := build(c.Request, err)
	c.AbortWithStatusJSON(status, body)
}

// WriteError is Error for plain net/http handlers.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := build(r, err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func build(r *http.Request, err error) (int, Response) {
	status := auth.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.LogError(r.Context(), "request failed", err, map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": status,
		})
	}

	return status, Response{
		Success: false,
		Error: &ErrorData{
			Code:    auth.Code(err),
			Message: auth.PublicMessage(err),
		},
		Timestamp: time.Now().UTC(),
	}
}
