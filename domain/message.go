package domain

import (
	"fmt"
	"kimp-board/errors"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// AnonymousNickname is the placeholder author of every chat message.
const AnonymousNickname = "익명"

var validate = validator.New()

// ChatMessage is an immutable entry of the chat stream.
// Seq is assigned by the store and is the only ordering key;
// Timestamp is formatted on the sender's clock and is display only.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	Seq       uint64    `json:"seq"`
	Nickname  string    `json:"nickname"`
	Message   string    `json:"message"`
	Timestamp string    `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`
	Lang      string    `json:"lang,omitempty"`
}

// Line renders the message the way the chat log shows it.
func (m ChatMessage) Line() string {
	return fmt.Sprintf("[%s] %s: %s", m.Timestamp, m.Nickname, m.Message)
}

// OutgoingMessage is what a client asks the store to append.
type OutgoingMessage struct {
	Nickname  string `json:"nickname" validate:"required,max=32"`
	Message   string `json:"message" validate:"required"`
	Timestamp string `json:"timestamp" validate:"required"`
}

// Validate checks the struct tags and caps the content at maxContentLength runes (0 disables the cap).
func (m OutgoingMessage) Validate(maxContentLength int) error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
	}
	if maxContentLength > 0 && utf8.RuneCountInString(m.Message) > maxContentLength {
		return fmt.Errorf("%w: message longer than %d characters", errors.ErrInvalidMessage, maxContentLength)
	}
	return nil
}

// FormatTimestamp formats t like the ko-KR locale does: "2024. 01. 05. 오후 03:04:05".
func FormatTimestamp(t time.Time) string {
	meridiem := "오전"
	if t.Hour() >= 12 {
		meridiem = "오후"
	}
	return fmt.Sprintf("%s %s %s", t.Format("2006. 01. 02."), meridiem, t.Format("03:04:05"))
}
