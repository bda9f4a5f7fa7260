package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{query: "", limit: DefaultLimit, offset: DefaultOffset},
		{query: "limit=10&offset=20", limit: 10, offset: 20},
		{query: "limit=0", limit: DefaultLimit, offset: DefaultOffset},
		{query: "limit=-10", limit: DefaultLimit, offset: DefaultOffset},
		{query: "limit=200", limit: MaxLimit, offset: DefaultOffset},
		{query: "limit=100", limit: 100, offset: DefaultOffset},
		{query: "offset=-10", limit: DefaultLimit, offset: DefaultOffset},
		{query: "limit=abc&offset=xyz", limit: DefaultLimit, offset: DefaultOffset},
		{query: "limit=10.5", limit: DefaultLimit, offset: DefaultOffset},
		{query: "limit=1", limit: 1, offset: DefaultOffset},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request, _ = http.NewRequest(http.MethodGet, "/?"+tt.query, nil)

			params := ParseParams(c)
			assert.Equal(t, Params{Limit: tt.limit, Offset: tt.offset}, params)
		})
	}
}

func TestBuildMeta(t *testing.T) {
	tests := []struct {
		limit, offset int
		total         int64
		pages         int
		hasMore       bool
	}{
		{limit: 10, offset: 0, total: 100, pages: 10, hasMore: true},
		{limit: 10, offset: 90, total: 100, pages: 10, hasMore: false},
		{limit: 10, offset: 0, total: 25, pages: 3, hasMore: true},
		{limit: 10, offset: 0, total: 10, pages: 1, hasMore: false},
		{limit: 10, offset: 0, total: 11, pages: 2, hasMore: true},
		{limit: 10, offset: 0, total: 0, pages: 0, hasMore: false},
		{limit: 0, offset: 0, total: 100, pages: 0, hasMore: true},
	}

	for _, tt := range tests {
		meta := BuildMeta(tt.limit, tt.offset, tt.total)
		assert.Equal(t, tt.limit, meta.Limit)
		assert.Equal(t, tt.offset, meta.Offset)
		assert.Equal(t, tt.total, meta.Total)
		assert.Equal(t, tt.pages, meta.TotalPages, "limit=%d total=%d", tt.limit, tt.total)
		assert.Equal(t, tt.hasMore, meta.HasMore, "offset=%d limit=%d total=%d", tt.offset, tt.limit, tt.total)
	}
}

func TestGetCurrentPage(t *testing.T) {
	assert.Equal(t, 1, GetCurrentPage(0, 10))
	assert.Equal(t, 2, GetCurrentPage(10, 10))
	assert.Equal(t, 2, GetCurrentPage(15, 10))
	assert.Equal(t, 10, GetCurrentPage(90, 10))
	assert.Equal(t, 1, GetCurrentPage(10, 0))
}
