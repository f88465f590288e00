package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/p1m/productivity-suite/internal/model"
)

// 헬스체크 엔드포인트
//
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} model.PingResponse
// @Router /ping [get]
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, model.PingResponse{Message: "pong"})
}

// 루트 엔드포인트
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, model.RootResponse{
		Status:  "ok",
		Message: "Productivity suite API server is running",
	})
}
