package user_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/user"
)

func TestPasswordPolicyError(t *testing.T) {
	tests := []struct {
		name string
		pwd  string
		want string
	}{
		{"too short", "Ab1!", "password must contain at least 8 characters"},
		{"whitespace", "Abc 123!xyz", "password must not contain whitespace"},
		{"all numeric", "1234567890", "password cannot be entirely numeric"},
		{"no special", "Abcdef123", "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		{"no upper", "abcdef123!", "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		{"like the username", "Jdoe1234!", "password cannot be similar to user attributes"},
		{"common", "P@ssw0rd", "password is too common"},
		{"fine", "Sup3r-S3cret!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, user.PasswordPolicyError(tt.pwd, "Jane Doe", "jdoe1234", "jane@example.com"))
		})
	}
}

func TestInitValidators(t *testing.T) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	tests := []struct {
		name       string
		obj        interface{}
		wantFields map[string]string
	}{
		{"no username nor email", user.NewUser{Name: "Jane", Password: "Sup3r-S3cret!", PasswordConfirm: "Sup3r-S3cret!"},
			map[string]string{"username": "one of username or email is required", "email": "one of username or email is required"}},
		{"weak password", user.NewUser{Name: "Jane", Username: "jane", Password: "password", PasswordConfirm: "password"},
			map[string]string{"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"}},
		{"valid", user.NewUser{Name: "Jane", Username: "jane", Password: "Sup3r-S3cret!", PasswordConfirm: "Sup3r-S3cret!"}, nil},
		{"update without password", user.UpdateUser{Name: "Jane"}, nil},
		{"update with a short password", user.UpdateUser{Name: "Jane", Password: "Ab1!", PasswordConfirm: "Ab1!"},
			map[string]string{"password": "password must contain at least 8 characters"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.obj)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			verrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "got %v", err)
			got := make(map[string]string)
			for _, fe := range verrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.wantFields, got)
		})
	}
}
