//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"kimp-board/domain"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

const (
	messagePrefix   = "msg:"
	sequenceKey     = "seq:messages"
	sequenceLease   = 100
	maxSeqKeyDigits = "99999999999999999999"
)

type IMessageRepository interface {
	StoreMessage(message domain.ChatMessage) (domain.ChatMessage, error)
	GetMessages(after uint64, limit *int) ([]domain.ChatMessage, error)
	GetLatestMessages(limit int) ([]domain.ChatMessage, error)
	GetMessage(seq uint64) (domain.ChatMessage, bool, error)
}

// MessageRepository is the append-only chat log.
// Each message gets the next value of a Badger sequence as its Seq.
type MessageRepository struct {
	mu       sync.Mutex
	db       *badger.DB
	sequence *badger.Sequence
	log      *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	sequence, err := db.GetSequence([]byte(sequenceKey), sequenceLease)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, sequence: sequence, log: log}, nil
}

// Close returns the unused part of the leased sequence range.
func (m *MessageRepository) Close() error {
	return m.sequence.Release()
}

// StoreMessage assigns the next Seq and persists the message.
// The key is formatted as "msg:{seq_padded}" with 20-digit zero padding so
// the lexicographical order of keys is the insertion order.
// Storing is serialized, a key is always committed after every smaller Seq.
func (m *MessageRepository) StoreMessage(message domain.ChatMessage) (domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.sequence.Next()
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("next message sequence: %w", err)
	}
	// Badger sequences start at 0, Seq 0 is reserved for "from the beginning"
	message.Seq = next + 1

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message.Seq), marshalMessage(message))
	})
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return message, nil
}

// GetMessages returns messages with Seq > after in ascending order.
// A nil limit returns everything.
func (m *MessageRepository) GetMessages(after uint64, limit *int) ([]domain.ChatMessage, error) {
	// No Seq can be bigger, and after+1 would wrap to the first key
	if after == math.MaxUint64 {
		return nil, nil
	}
	var messages []domain.ChatMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(messageKey(after + 1)); it.ValidForPrefix(prefix); it.Next() {
			if limit != nil && len(messages) == *limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *limit))
				break
			}
			message, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// GetLatestMessages returns the last limit messages, still in ascending order.
func (m *MessageRepository) GetLatestMessages(limit int) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration starts past the biggest possible key
		for it.Seek([]byte(messagePrefix + maxSeqKeyDigits)); it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				break
			}
			message, err := decodeItem(it.Item())
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

func (m *MessageRepository) GetMessage(seq uint64) (domain.ChatMessage, bool, error) {
	var message domain.ChatMessage
	found := false
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(messageKey(seq))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		message, err = decodeItem(item)
		found = err == nil
		return err
	})
	return message, found, err
}

func decodeItem(item *badger.Item) (domain.ChatMessage, error) {
	var message domain.ChatMessage
	err := item.Value(func(value []byte) error {
		var err error
		message, err = unmarshalMessage(value)
		return err
	})
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("decode %s: %w", item.Key(), err)
	}
	return message, nil
}

func messageKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", messagePrefix, seq))
}
