package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	"blendcaja/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWith_MatchesSentinelAndKeepsSentinelClean(t *testing.T) {
	err := apperrors.ErrPendingSalesExist.With("count", int64(2))

	assert.True(t, errors.Is(err, apperrors.ErrPendingSalesExist))
	assert.False(t, errors.Is(err, apperrors.ErrSessionNotOpen))
	assert.Equal(t, int64(2), err.Details["count"])
	assert.Empty(t, apperrors.ErrPendingSalesExist.Details, "sentinel must not be mutated")
}

func TestWrap_SurvivesFmtWrapping(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := fmt.Errorf("close session: %w", apperrors.ErrAuthServiceUnavailable.Wrap(cause))

	assert.True(t, errors.Is(err, apperrors.ErrAuthServiceUnavailable))
	assert.True(t, errors.Is(err, cause))

	kind, ok := apperrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindAuthServiceUnavailable, kind)
	assert.Contains(t, err.Error(), "dial tcp: timeout")
}

func TestKindOf_PlainError(t *testing.T) {
	_, ok := apperrors.KindOf(errors.New("boom"))
	assert.False(t, ok)
}
