package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/klil-music/conservatory-api/internal/middleware"
	"github.com/klil-music/conservatory-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

func boolQuery(c *gin.Context, name string) *bool {
	switch c.Query(name) {
	case "true", "1":
		val := true
		return &val
	case "false", "0":
		val := false
		return &val
	}
	return nil
}
