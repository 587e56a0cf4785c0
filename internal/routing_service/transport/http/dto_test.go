package http

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

func TestParsePage(t *testing.T) {
	r := httptest.NewRequest("GET", "/?page=2&pageSize=25", nil)
	page := parsePage(r)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 25, page.PageSize)
	assert.Equal(t, 50, page.Offset())

	r = httptest.NewRequest("GET", "/?pageSize=all", nil)
	page = parsePage(r)
	assert.True(t, page.All())
	assert.Equal(t, 0, page.Offset())

	// Defaults apply when parameters are missing or malformed.
	r = httptest.NewRequest("GET", "/?page=-3&pageSize=bogus", nil)
	page = parsePage(r)
	assert.Equal(t, 0, page.Page)
	assert.Equal(t, 50, page.PageSize)
}

func TestListResponsePagination(t *testing.T) {
	resp := listResponse([]string{}, 101, domain.PageRequest{Page: 0, PageSize: 50})
	assert.Equal(t, 3, resp.TotalPages)

	resp = listResponse([]string{}, 101, domain.PageRequest{PageSize: domain.PageSizeAll})
	assert.Equal(t, 1, resp.TotalPages)
	assert.Equal(t, 101, resp.PageSize)
}
