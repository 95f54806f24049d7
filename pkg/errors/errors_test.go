package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", Clone(ErrNotFound, "equipment not found"))
	assert.True(t, Is(wrapped, ErrNotFound))
	assert.False(t, Is(wrapped, ErrConflict))
	assert.False(t, Is(nil, ErrNotFound))
}

func TestCloneKeepsStatus(t *testing.T) {
	clone := Clone(ErrConflict, "inventory number already exists")
	assert.Equal(t, http.StatusConflict, clone.Status)
	assert.Equal(t, "conflict", ErrConflict.Message)
}
