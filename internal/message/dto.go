package message

import (
	"strings"

	"github.com/veyra-chat/veyra/internal"
)

const maxContentLength = 4000

type CreateMessageDTO struct {
	Content string `json:"content"`
}

func (d *CreateMessageDTO) Validate() error {
	if strings.TrimSpace(d.Content) == "" {
		return internal.NewValidationError("message content is required")
	}
	if len(d.Content) > maxContentLength {
		return internal.NewValidationError("message content is too long")
	}
	return nil
}

type UpdateMessageDTO struct {
	Content string `json:"content"`
}

func (d *UpdateMessageDTO) Validate() error {
	if strings.TrimSpace(d.Content) == "" {
		return internal.NewValidationError("message content is required")
	}
	if len(d.Content) > maxContentLength {
		return internal.NewValidationError("message content is too long")
	}
	return nil
}

// ListMessagesQuery is cursor pagination over a channel's history, newest
// first.
type ListMessagesQuery struct {
	Before string
	Limit  int
}
