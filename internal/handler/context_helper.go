package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/maktab-fin-api/internal/middleware"
	"github.com/noah-isme/maktab-fin-api/internal/models"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// asOfFromQuery reads the optional as_of query parameter. Every ledger read
// is evaluated against an explicit instant; absent the parameter, that
// instant is request time.
func asOfFromQuery(c *gin.Context) (time.Time, error) {
	raw := c.Query("as_of")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	asOf, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "as_of must be RFC3339")
	}
	return asOf.UTC(), nil
}
