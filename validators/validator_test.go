package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anonto42/threadline/backend/internal/apperr"
	"github.com/anonto42/threadline/backend/internal/models"
)

func TestValidate(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&models.CreatePostRequest{Message: "hi"}))

	err := v.Validate(&models.CreatePostRequest{})
	assert.Equal(t, apperr.Invalid, apperr.KindOf(err))
	assert.Equal(t, "Message failed on the 'required' rule", apperr.Message(err))

	err = v.Validate(&models.BatchStateRequest{TargetIDs: []string{"p1", ""}})
	assert.Equal(t, apperr.Invalid, apperr.KindOf(err))
}
