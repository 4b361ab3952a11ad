package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePageClampsOversizedLimit(t *testing.T) {
	page, size := NormalizePage(0, 500)

	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)
}

func TestNewPaginationReportsAppliedLimit(t *testing.T) {
	p := NewPagination(1, 500, 200)

	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 10, p.TotalPages)
	assert.Equal(t, 200, p.TotalCount)
}

func TestNewPaginationEmptyResultStillOnePage(t *testing.T) {
	p := NewPagination(1, 20, 0)

	assert.Equal(t, 1, p.TotalPages)
}
