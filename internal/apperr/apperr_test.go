package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad input")))
	assert.Equal(t, KindForbidden, KindOf(Forbidden("no")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("missing")))
	assert.Equal(t, KindUpstream, KindOf(Upstream("NoSuchKey", errors.New("gone"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindInternal, KindOf(Internal(errors.New("boom"))))
}

func TestKindOfWrapped(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NotFound("story %q not found", "abc"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))

	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, `story "abc" not found`, e.Msg)
}

func TestUpstreamCarriesType(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	e := Upstream("StorageError", cause)

	assert.Equal(t, "StorageError", e.UpstreamType)
	assert.ErrorIs(t, e, cause)
}

func TestInternalHidesDetail(t *testing.T) {
	e := Internal(errors.New("pq: duplicate key"))
	assert.Equal(t, "internal server error", e.Msg)
	assert.Contains(t, e.Error(), "duplicate key")
}
