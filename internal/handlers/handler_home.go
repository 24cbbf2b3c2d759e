package handlers

import (
	"net/http"

	"github.com/SscSPs/shope_lite/internal/dto"
	"github.com/gin-gonic/gin"
)

// getHome godoc
// @Summary Show the status of server.
// @Description get the status of server.
// @Tags root
// @Accept */*
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Router / [get]
func getHome(c *gin.Context) {
	c.JSON(http.StatusOK, dto.Success("Shope Lite API is running", nil))
}

// getHealth godoc
// @Summary Liveness check
// @Tags root
// @Produce plain
// @Success 200 {string} string "OK"
// @Router /health [get]
func getHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
