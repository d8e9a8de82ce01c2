package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := DuplicateBook("Dune", "Herbert")

	assert.True(t, Is(err, ErrDuplicateBook))
	assert.False(t, Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "Dune")
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, CodeIO, "write file")

	assert.True(t, Is(err, ErrIO))
	assert.True(t, Is(err, cause))
	assert.Equal(t, "write file: disk full", err.Error())
}

func TestPersistence(t *testing.T) {
	t.Run("wraps plain errors", func(t *testing.T) {
		err := Persistence(fmt.Errorf("connection refused"), "insert book")
		assert.True(t, Is(err, ErrPersistenceFailure))
		assert.Equal(t, CodePersistenceFailure, CodeOf(err))
	})

	t.Run("passes coded errors through", func(t *testing.T) {
		err := Persistence(ErrNotAuthenticated, "insert book")
		assert.Equal(t, CodeNotAuthenticated, CodeOf(err))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Persistence(nil, "noop"))
	})
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeDuplicateBook, http.StatusConflict},
		{CodeNotAuthenticated, http.StatusUnauthorized},
		{CodePersistenceFailure, http.StatusServiceUnavailable},
		{CodeUnsupportedFormat, http.StatusUnsupportedMediaType},
		{CodeCorruptDocument, http.StatusUnprocessableEntity},
		{CodeInvalidLocation, http.StatusUnprocessableEntity},
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}
