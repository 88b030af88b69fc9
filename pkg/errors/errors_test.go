package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrSameStyle.HTTPStatus)
	assert.Equal(t, http.StatusBadRequest, ErrEmptyPrompt.HTTPStatus)
	assert.Equal(t, http.StatusBadRequest, ErrUnknownStage.HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, ErrRulesLoadFailed.HTTPStatus)
	assert.Equal(t, http.StatusTooManyRequests, ErrTooManyRequests.HTTPStatus)
}

func TestWithDetailDoesNotMutate(t *testing.T) {
	e := ErrSameStyle.WithDetail("traditional").WithSuggestions("pick another style")
	assert.Empty(t, ErrSameStyle.Detail)
	assert.Empty(t, ErrSameStyle.Suggestions)
	assert.Equal(t, "traditional", e.Detail)
	assert.Equal(t, []string{"pick another style"}, e.Suggestions)
}

func TestAsAppError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("transfer: %w", ErrSameStyle)
	assert.True(t, IsAppError(wrapped))
	assert.True(t, HasCode(wrapped, CodeSameStyle))
	assert.Equal(t, CodeSameStyle, AsAppError(wrapped).Code)

	plain := fmt.Errorf("boom")
	assert.False(t, IsAppError(plain))
	assert.Equal(t, CodeUnknown, AsAppError(plain).Code)
}
