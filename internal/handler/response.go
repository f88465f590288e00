package handler

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/p1m/productivity-suite/internal/model"
)

const (
	requestStartHeader = "X-Request-Start-Time"
	requestStartKey    = "request_start"
)

func writeSuccess(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope(c, 1, status, message, data))
}

func writeFailure(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope(c, 0, status, message, data))
}

func abortFailure(c *gin.Context, status int, message string, data any) {
	c.AbortWithStatusJSON(status, envelope(c, 0, status, message, data))
}

func envelope(c *gin.Context, success, status int, message string, data any) model.ApiResponse {
	return model.ApiResponse{
		Success: success,
		Code:    status,
		Meta: model.ResponseMeta{
			Method:   c.Request.Method,
			Endpoint: c.Request.URL.Path,
		},
		Data:     data,
		Message:  message,
		Duration: requestDuration(c, time.Now()),
	}
}

// requestDuration is the number of seconds since the client-supplied
// X-Request-Start-Time (epoch seconds), else since the request entered the router.
func requestDuration(c *gin.Context, now time.Time) float64 {
	start, ok := headerStartTime(c.GetHeader(requestStartHeader))
	if !ok {
		if t, exists := c.Get(requestStartKey); exists {
			if ts, isTime := t.(time.Time); isTime {
				start, ok = ts, true
			}
		}
	}
	if !ok {
		return 0
	}
	d := now.Sub(start).Seconds()
	if d < 0 {
		return 0
	}
	return d
}

func headerStartTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs <= 0 {
		return time.Time{}, false
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)), true
}

func unauthorized(c *gin.Context, detail string) {
	abortFailure(c, http.StatusUnauthorized, "Unauthorized", detail)
}
