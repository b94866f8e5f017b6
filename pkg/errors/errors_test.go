package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeInvalidParam, http.StatusBadRequest},
		{CodeTenantRequired, http.StatusBadRequest},
		{CodeTokenExpired, http.StatusUnauthorized},
		{CodeJobNotFound, http.StatusNotFound},
		{CodeJobStateInvalid, http.StatusConflict},
		{CodeTooManyRequests, http.StatusTooManyRequests},
		{CodeRequestCanceled, 499},
		{CodeDatabaseError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatus, "code %s", tt.code)
	}
}

func TestWithDetail_DoesNotMutateShared(t *testing.T) {
	e := ErrInvalidParam.WithDetail("limit must be <= 100")

	assert.Equal(t, "limit must be <= 100", e.Detail)
	assert.Empty(t, ErrInvalidParam.Detail)
}

func TestIsAndAs(t *testing.T) {
	base := stderrors.New("boom")
	err := fmt.Errorf("handler: %w", ErrJobNotFound.WithError(base))

	assert.True(t, IsAppError(err))
	assert.True(t, stderrors.Is(err, ErrJobNotFound))
	assert.False(t, stderrors.Is(err, ErrAssetNotFound))
	assert.True(t, stderrors.Is(err, base))
	assert.Equal(t, CodeJobNotFound, AsAppError(err).Code)

	plain := AsAppError(base)
	assert.Equal(t, CodeUnknown, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.HTTPStatus)
}
