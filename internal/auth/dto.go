package auth

import (
	"strings"

	"github.com/veyra-chat/veyra/internal"
)

type RegisterDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (d *RegisterDTO) Validate() error {
	d.Username = strings.TrimSpace(d.Username)
	if len(d.Username) < 3 || len(d.Username) > 32 {
		return internal.NewValidationError("username must be between 3 and 32 characters")
	}
	if strings.ContainsAny(d.Username, " \t\n") {
		return internal.NewValidationError("username must not contain whitespace")
	}
	if len(d.Password) < 8 {
		return internal.NewValidationError("password must be at least 8 characters")
	}
	return nil
}

type LoginDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (d *LoginDTO) Validate() error {
	d.Username = strings.TrimSpace(d.Username)
	if d.Username == "" || d.Password == "" {
		return internal.NewValidationError("username and password are required")
	}
	return nil
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d *RefreshTokenDTO) Validate() error {
	if d.RefreshToken == "" {
		return internal.NewValidationError("refresh_token is required")
	}
	return nil
}
