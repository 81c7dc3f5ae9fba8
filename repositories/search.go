package repositories

import (
	"context"
	"fmt"
	"kimp-board/domain"
	"log/slog"
	"strconv"

	"github.com/blugelabs/bluge"
)

const (
	fieldContent  = "message"
	fieldAuthor   = "nickname"
	fieldLanguage = "lang"
)

type ISearchIndex interface {
	Index(message domain.ChatMessage) error
	Search(ctx context.Context, query string, limit int) ([]uint64, error)
}

// SearchIndex is a full-text index over chat message content.
// Documents are keyed by Seq, the message itself lives in the repository.
type SearchIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchIndex(writer *bluge.Writer, log *slog.Logger) *SearchIndex {
	return &SearchIndex{writer: writer, log: log}
}

func (s *SearchIndex) Index(message domain.ChatMessage) error {
	doc := bluge.NewDocument(strconv.FormatUint(message.Seq, 10)).
		AddField(bluge.NewTextField(fieldContent, message.Message)).
		AddField(bluge.NewKeywordField(fieldAuthor, message.Nickname).StoreValue())
	if message.Lang != "" {
		doc.AddField(bluge.NewKeywordField(fieldLanguage, message.Lang).StoreValue())
	}
	return s.writer.Update(doc.ID(), doc)
}

// Search returns the Seq of the best matching messages, best score first.
func (s *SearchIndex) Search(ctx context.Context, query string, limit int) ([]uint64, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("search reader: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Warn("Unable to close search reader", "error", err)
		}
	}()

	request := bluge.NewTopNSearch(limit, bluge.NewMatchQuery(query).SetField(fieldContent))
	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var seqs []uint64
	match, err := matches.Next()
	for err == nil && match != nil {
		var parseErr error
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field != "_id" {
				return true
			}
			var seq uint64
			seq, parseErr = strconv.ParseUint(string(value), 10, 64)
			if parseErr == nil {
				seqs = append(seqs, seq)
			}
			return false
		})
		if err == nil {
			err = parseErr
		}
		if err == nil {
			match, err = matches.Next()
		}
	}
	if err != nil {
		return nil, err
	}
	return seqs, nil
}
