package repositories

import (
	"fmt"
	"kimp-board/domain"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Wire layout of a stored chat message. Field numbers must never be reused.
const (
	fieldID        protowire.Number = 1
	fieldSeq       protowire.Number = 2
	fieldNickname  protowire.Number = 3
	fieldMessage   protowire.Number = 4
	fieldTimestamp protowire.Number = 5
	fieldCreatedAt protowire.Number = 6
	fieldLang      protowire.Number = 7
)

func marshalMessage(message domain.ChatMessage) []byte {
	var b []byte
	b = appendString(b, fieldID, message.ID.String())
	b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, message.Seq)
	b = appendString(b, fieldNickname, message.Nickname)
	b = appendString(b, fieldMessage, message.Message)
	b = appendString(b, fieldTimestamp, message.Timestamp)
	b = protowire.AppendTag(b, fieldCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(message.CreatedAt.UnixNano()))
	if message.Lang != "" {
		b = appendString(b, fieldLang, message.Lang)
	}
	return b
}

func appendString(b []byte, num protowire.Number, value string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, value)
}

func unmarshalMessage(b []byte) (domain.ChatMessage, error) {
	var message domain.ChatMessage
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return domain.ChatMessage{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch typ {
		case protowire.BytesType:
			value, n := protowire.ConsumeString(b)
			if n < 0 {
				return domain.ChatMessage{}, protowire.ParseError(n)
			}
			b = b[n:]
			if err := setString(&message, num, value); err != nil {
				return domain.ChatMessage{}, err
			}
		case protowire.VarintType:
			value, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return domain.ChatMessage{}, protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case fieldSeq:
				message.Seq = value
			case fieldCreatedAt:
				message.CreatedAt = time.Unix(0, int64(value)).UTC()
			}
		default:
			// Unknown field kinds are skipped for forward compatibility
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return domain.ChatMessage{}, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return message, nil
}

func setString(message *domain.ChatMessage, num protowire.Number, value string) error {
	switch num {
	case fieldID:
		id, err := uuid.Parse(value)
		if err != nil {
			return fmt.Errorf("invalid message id %q: %w", value, err)
		}
		message.ID = id
	case fieldNickname:
		message.Nickname = value
	case fieldMessage:
		message.Message = value
	case fieldTimestamp:
		message.Timestamp = value
	case fieldLang:
		message.Lang = value
	}
	return nil
}
