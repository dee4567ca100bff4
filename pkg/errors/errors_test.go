package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found sentinel", ErrNotFound, http.StatusNotFound},
		{"wrapped invalid query", fmt.Errorf("paging: %w", ErrInvalidQuery), http.StatusBadRequest},
		{"not initialized", ErrNotInitialized, http.StatusServiceUnavailable},
		{"invalid catalogue", ErrInvalidCatalogue, http.StatusUnprocessableEntity},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"app error wins", NotFoundf("post %q", "x"), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := InvalidQueryf("page must be >= 1, got %d", 0)
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.Equal(t, "invalid query parameters: page must be >= 1, got 0", err.Error())
}
