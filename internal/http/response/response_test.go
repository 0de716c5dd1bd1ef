package response

import (
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/user-service/internal/models"
)

func TestOKWithData(t *testing.T) {
	resp := OKWithData(map[string]any{"token": "abc"})
	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.Equal(t, map[string]any{"token": "abc"}, resp.Data)
}

func TestError(t *testing.T) {
	resp := Error("boom")
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "boom", resp.Error)
	assert.Nil(t, resp.Data)
}

func TestUserFrom(t *testing.T) {
	u := &models.User{
		ID:           3,
		Name:         "Alice",
		Email:        "a@x.com",
		PasswordHash: "hash",
		Roles:        []models.Role{{ID: 1, Name: "user"}},
	}
	assert.Equal(t, User{ID: 3, Name: "Alice", Email: "a@x.com", Roles: []string{"user"}}, UserFrom(u))
}

func TestValidationError(t *testing.T) {
	type request struct {
		Name     string `validate:"required"`
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=6"`
		Nick     string `validate:"max=3"`
	}

	err := validator.New().Struct(request{Email: "not-an-email", Password: "123", Nick: "toolong"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t,
		"field Name is a required field, "+
			"field Email must be a valid email, "+
			"field Password must be at least 6 characters long, "+
			"field Nick must be at most 3 characters long",
		resp.Error)
}
