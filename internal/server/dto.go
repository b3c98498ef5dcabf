package server

import (
	"strings"

	"github.com/veyra-chat/veyra/internal"
)

type CreateServerDTO struct {
	Name           string `json:"name"`
	InviteRequired bool   `json:"invite_required"`
}

func (d *CreateServerDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" || len(d.Name) > 100 {
		return internal.NewValidationError("server name must be between 1 and 100 characters")
	}
	return nil
}

type JoinServerDTO struct {
	InviteCode string `json:"invite_code"`
}

type BanDTO struct {
	Reason string `json:"reason"`
}
