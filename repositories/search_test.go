package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/stretchr/testify/require"
)

func Test_Search_Finds_Indexed_Messages(t *testing.T) {
	req := require.New(t)
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	req.NoError(err)
	defer writer.Close()
	index := NewSearchIndex(writer, slog.Default())

	// Given three indexed messages
	at := time.Now().UTC()
	for i, content := range []string{"bitcoin to the moon", "ethereum gas is high", "the moon is bright tonight"} {
		message := newMessage("Alice", content, at)
		message.Seq = uint64(i + 1)
		req.NoError(index.Index(message))
	}

	// When searching a word two of them contain
	seqs, err := index.Search(context.Background(), "moon", 10)

	// Then both are returned and nothing else
	req.NoError(err)
	req.ElementsMatch([]uint64{1, 3}, seqs)

	// And an unknown word matches nothing
	seqs, err = index.Search(context.Background(), "dogecoin", 10)
	req.NoError(err)
	req.Empty(seqs)
}

func Test_Search_Respects_Limit(t *testing.T) {
	req := require.New(t)
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	req.NoError(err)
	defer writer.Close()
	index := NewSearchIndex(writer, slog.Default())

	for i := 0; i < 5; i++ {
		message := newMessage("Bob", "buy the dip", time.Now().UTC())
		message.Seq = uint64(i + 1)
		req.NoError(index.Index(message))
	}

	seqs, err := index.Search(context.Background(), "dip", 2)
	req.NoError(err)
	req.Len(seqs, 2)
}
