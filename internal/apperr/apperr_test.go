package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, TargetNotFound, KindOf(New(TargetNotFound, "Post not found")))
	assert.Equal(t, InvalidSelfReference, KindOf(fmt.Errorf("toggle: %w", New(InvalidSelfReference, "x"))))
	assert.Equal(t, PersistenceUnavailable, KindOf(errors.New("dial tcp: refused")))
}

func TestIsMatchesOnKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(Unauthenticated, "Authentication is required", nil))
	assert.True(t, errors.Is(err, New(Unauthenticated, "")))
	assert.False(t, errors.Is(err, New(Forbidden, "")))
}

func TestFromKeepsTaggedErrors(t *testing.T) {
	tagged := New(Forbidden, "Can't delete this post")
	assert.Same(t, tagged, From(tagged, "ignored"))

	raw := errors.New("connection reset")
	got := From(raw, "Failed to toggle like")
	assert.Equal(t, PersistenceUnavailable, got.Kind)
	assert.ErrorIs(t, got, raw)
	assert.Nil(t, From(nil, "x"))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		Unauthenticated:               http.StatusUnauthorized,
		InvalidSelfReference:          http.StatusBadRequest,
		Invalid:                       http.StatusBadRequest,
		TargetNotFound:                http.StatusNotFound,
		Forbidden:                     http.StatusForbidden,
		ConflictAlreadyInDesiredState: http.StatusOK,
		PersistenceUnavailable:        http.StatusServiceUnavailable,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), kind)
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Post not found", Message(New(TargetNotFound, "Post not found")))
	assert.Equal(t, "Something went wrong", Message(errors.New("boom")))
}
