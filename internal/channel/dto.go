package channel

import (
	"strings"

	"github.com/veyra-chat/veyra/internal"
	"github.com/veyra-chat/veyra/internal/permissions"
)

type CreateChannelDTO struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Topic    string `json:"topic"`
	Category string `json:"category"`
	Position int    `json:"position"`
}

func (d *CreateChannelDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" || len(d.Name) > 100 {
		return internal.NewValidationError("channel name must be between 1 and 100 characters")
	}
	if d.Type == "" {
		d.Type = TypeText
	}
	if d.Type != TypeText && d.Type != TypeVoice {
		return internal.NewValidationError("channel type must be text or voice")
	}
	return nil
}

type UpdateChannelDTO struct {
	Name     *string `json:"name"`
	Topic    *string `json:"topic"`
	Category *string `json:"category"`
	Position *int    `json:"position"`
}

func (d *UpdateChannelDTO) Validate() error {
	if d.Name != nil {
		trimmed := strings.TrimSpace(*d.Name)
		if trimmed == "" || len(trimmed) > 100 {
			return internal.NewValidationError("channel name must be between 1 and 100 characters")
		}
		d.Name = &trimmed
	}
	return nil
}

type SetOverrideDTO struct {
	Allow permissions.Permission `json:"allow"`
	Deny  permissions.Permission `json:"deny"`
}

// Validate enforces the override well-formedness rules: only overridable bits,
// and no bit both allowed and denied.
func (d *SetOverrideDTO) Validate() error {
	if d.Allow&^permissions.ChannelOverridable != 0 || d.Deny&^permissions.ChannelOverridable != 0 {
		return internal.NewValidationError("override contains non-overridable permission bits")
	}
	if d.Allow&d.Deny != 0 {
		return internal.NewValidationError("a permission bit cannot be both allowed and denied")
	}
	return nil
}
