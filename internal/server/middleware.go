package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/docrender/internal/document/domain"
)

const contextDocumentKindKey = "document_kind"

// DocumentKind tags the request with the kind of document it builds so the
// request log carries it.
func DocumentKind(kind domain.DocumentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextDocumentKindKey, string(kind))
		c.Next()
	}
}

func parseOrderID(c *gin.Context) (int64, error) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, newValidationError("id", "invalid_id", "invalid order id")
	}
	return id, nil
}
