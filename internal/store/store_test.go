package store

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrorMessage(t *testing.T) {
	assert.Equal(t, "Erreur 404", NewError(http.StatusNotFound).Error())
	assert.Equal(t, "Erreur 500", NewError(http.StatusInternalServerError).Error())
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 404, StatusOf(fmt.Errorf("list: %w", NewError(404))))
	assert.Equal(t, 404, StatusOf(ErrNotFound))
	assert.Equal(t, 500, StatusOf(errors.New("boom")))
}
