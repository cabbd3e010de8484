package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/middleware"
	"github.com/noah-isme/sma-results-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return nil
	}
	return claims
}

// requestContext resolves the acting teacher and school from verified claims. An empty
// context is returned for anonymous requests and rejected by the services.
func requestContext(c *gin.Context) models.RequestContext {
	return models.RequestContextFromClaims(claimsFromContext(c))
}
