package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"statadvisor/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestWrap_PreservesCode(t *testing.T) {
	base := NotFound("session")
	wrapped := Wrap(base, "failed to rank session")

	assert.Equal(t, CodeNotFound, GetCode(wrapped))
	assert.Equal(t, "failed to rank session: session not found", wrapped.Error())
	var appErr *AppError
	assert.True(t, stderrors.As(wrapped, &appErr))
}

func TestWrap_ForeignErrorBecomesInternal(t *testing.T) {
	sentinel := stderrors.New("boom")
	wrapped := Wrapf(sentinel, "loading %s", "catalog")

	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.True(t, Is(wrapped, sentinel))
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestGetCode_ThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", InvalidInput("sample_size must be an integer"))
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.Equal(t, CodeInternalError, GetCode(stderrors.New("plain")))
	assert.Equal(t, "", GetCode(nil))
}

func TestGetCode_DomainSentinels(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: abc", core.ErrSessionNotFound), CodeNotFound},
		{fmt.Errorf("%w: bad yaml", core.ErrInvalidCatalog), CodeValidationError},
		{core.NewValidationError("sample_size", "must not be negative"), CodeInvalidInput},
		{fmt.Errorf("%w: status 502", core.ErrUpstream), CodeExternalService},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(tt.err))
			assert.Equal(t, tt.want, GetCode(Wrap(tt.err, "context")), "Wrap keeps the derived code")
		})
	}
}

func TestDatabaseError_KeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := DatabaseError("failed to list catalogs", cause)

	assert.Equal(t, CodeDatabaseError, GetCode(err))
	assert.Equal(t, CodeDatabaseError, GetCode(Wrap(err, "listing")))
	assert.True(t, Is(err, cause))
	assert.Equal(t, "failed to list catalogs: connection refused", err.Error())
}
