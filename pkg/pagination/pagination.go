// Package pagination parses limit/offset query parameters and builds list metadata.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/claims-fraud/pkg/common"
)

const (
	DefaultLimit  = 20
	MaxLimit      = 100
	DefaultOffset = 0
)

// Params is a normalized page request
type Params struct {
	Limit  int
	Offset int
}

// ParseParams reads ?limit= and ?offset=. Missing, malformed or out-of-range
// values fall back to the defaults; limit is capped at MaxLimit.
func ParseParams(c *gin.Context) Params {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = DefaultLimit
	}
	offset, err := strconv.Atoi(c.Query("offset"))
	if err != nil {
		offset = DefaultOffset
	}
	limit, offset = Normalize(limit, offset)
	return Params{Limit: limit, Offset: offset}
}

// Normalize applies the defaults and the limit cap to an already parsed page.
func Normalize(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = DefaultOffset
	}
	return limit, offset
}

// BuildMeta describes one page of a list of total items
func BuildMeta(limit, offset int, total int64) *common.Meta {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &common.Meta{
		Limit:      limit,
		Offset:     offset,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    HasMore(offset, limit, total),
	}
}

// HasMore reports whether items remain after this page
func HasMore(offset, limit int, total int64) bool {
	return int64(offset+limit) < total
}

// GetCurrentPage returns the 1-based page number of offset
func GetCurrentPage(offset, limit int) int {
	if limit <= 0 {
		return 1
	}
	return offset/limit + 1
}
