package role

import (
	"strings"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/permissions"
)

type CreateRoleDTO struct {
	Name        string                 `json:"name"`
	Color       string                 `json:"color"`
	Position    int                    `json:"position"`
	Permissions permissions.Permission `json:"permissions"`
}

func (d *CreateRoleDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" || len(d.Name) > 64 {
		return internal.NewValidationError("role name must be between 1 and 64 characters")
	}
	if d.Position < 1 {
		return internal.NewValidationError("role position must be positive")
	}
	if d.Permissions&^permissions.All != 0 {
		return internal.NewValidationError("permissions contain unknown bits")
	}
	return nil
}

// UpdateRoleDTO uses pointers so absent fields stay untouched.
type UpdateRoleDTO struct {
	Name        *string                 `json:"name"`
	Color       *string                 `json:"color"`
	Position    *int                    `json:"position"`
	Permissions *permissions.Permission `json:"permissions"`
}

func (d *UpdateRoleDTO) Validate() error {
	if d.Name != nil {
		trimmed := strings.TrimSpace(*d.Name)
		if trimmed == "" || len(trimmed) > 64 {
			return internal.NewValidationError("role name must be between 1 and 64 characters")
		}
		d.Name = &trimmed
	}
	if d.Position != nil && *d.Position < 1 {
		return internal.NewValidationError("role position must be positive")
	}
	if d.Permissions != nil && *d.Permissions&^permissions.All != 0 {
		return internal.NewValidationError("permissions contain unknown bits")
	}
	return nil
}
