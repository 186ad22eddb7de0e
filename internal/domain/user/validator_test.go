package user

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordValidator_ValidatePassword(t *testing.T) {
	validator := NewPasswordValidator()

	tests := []struct {
		name        string
		password    string
		wantErr     bool
		expectedErr string
	}{
		{
			name:        "too short",
			password:    "Abc123!",
			wantErr:     true,
			expectedErr: "password must be at least 8 characters",
		},
		{
			name:        "no uppercase",
			password:    "abc123!@",
			wantErr:     true,
			expectedErr: "password must contain at least one uppercase letter",
		},
		{
			name:        "no lowercase",
			password:    "ABC123!@",
			wantErr:     true,
			expectedErr: "password must contain at least one lowercase letter",
		},
		{
			name:        "no digit",
			password:    "Abcdef!@",
			wantErr:     true,
			expectedErr: "password must contain at least one digit",
		},
		{
			name:        "no special char",
			password:    "Abcdef12",
			wantErr:     true,
			expectedErr: "password must contain at least one special character",
		},
		{
			name:     "strong with multiple chars",
			password: "P@ssw0rd123!",
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidatePassword(tt.password)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPasswordValidator_ValidateRegister(t *testing.T) {
	validator := NewPasswordValidator()

	tests := []struct {
		name           string
		req            RegisterRequest
		wantErr        bool
		expectedErrMsg string
	}{
		{
			name: "valid registration",
			req:  RegisterRequest{Email: "ann@example.com", Password: "Secret1!", Role: RolePatient},
		},
		{
			name: "role may be empty",
			req:  RegisterRequest{Email: "ann@example.com", Password: "Secret1!"},
		},
		{
			name:           "missing email",
			req:            RegisterRequest{Password: "Secret1!"},
			wantErr:        true,
			expectedErrMsg: "email is required",
		},
		{
			name:           "email too long",
			req:            RegisterRequest{Email: strings.Repeat("a", 250) + "@x.io", Password: "Secret1!"},
			wantErr:        true,
			expectedErrMsg: "email",
		},
		{
			name:           "invalid password",
			req:            RegisterRequest{Email: "ann@example.com", Password: "abc"},
			wantErr:        true,
			expectedErrMsg: "password validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateRegister(tt.req)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErrMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPasswordValidator_ValidateLogin(t *testing.T) {
	validator := NewPasswordValidator()

	assert.NoError(t, validator.ValidateLogin(Credentials{Email: "ann@example.com", Password: "x"}))
	assert.EqualError(t, validator.ValidateLogin(Credentials{Email: "ann@example.com"}), "password is required")
}

func TestNewPasswordValidator(t *testing.T) {
	v := NewPasswordValidator()
	assert.True(t, v.requireSpecialChar)
	assert.True(t, v.requireDigit)
	assert.True(t, v.requireUpper)
	assert.True(t, v.requireLower)
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RolePatient.Valid())
	assert.True(t, RoleProvider.Valid())
	assert.False(t, Role("admin").Valid())
}
