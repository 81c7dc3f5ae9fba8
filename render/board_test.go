package render

import (
	"testing"

	"kimp-board/domain"

	"github.com/stretchr/testify/require"
)

func sampleCoins() []domain.DisplayCoin {
	return []domain.DisplayCoin{
		{Market: "KRW-BTC", Name: "비트코인", Code: "BTC", Price: 95_000_000, ChangePercent: 1.2, VolumeLabel: "3억"},
		{Market: "KRW-ETH", Name: "이더리움", Code: "ETH", Price: 4_500_000, ChangePercent: -0.4, VolumeLabel: "1억"},
		{Market: "KRW-XRP", Name: "리플", Code: "XRP", Price: 850, ChangePercent: 0, VolumeLabel: "0억"},
	}
}

func TestBoard_Render_One_Row_Per_Coin_In_Order(t *testing.T) {
	req := require.New(t)
	board := NewBoard(NewFormatter("ko"))

	board.Render(sampleCoins())

	snapshot := board.Snapshot()
	req.Len(snapshot.Rows, 3)
	req.Equal("BTC", snapshot.Rows[0].Code)
	req.Equal("ETH", snapshot.Rows[1].Code)
	req.Equal("XRP", snapshot.Rows[2].Code)
	req.Equal(uint64(1), snapshot.Renders)
	req.False(snapshot.UpdatedAt.IsZero())
}

func TestBoard_Render_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	board := NewBoard(NewFormatter("ko"))

	// When rendering the same batch twice
	board.Render(sampleCoins())
	first := board.Snapshot().Rows
	board.Render(sampleCoins())
	second := board.Snapshot().Rows

	// Then the visible table is identical, no accumulation
	req.Equal(first, second)
	req.Len(second, 3)
}

func TestBoard_Render_Replaces_Previous_Rows(t *testing.T) {
	req := require.New(t)
	board := NewBoard(NewFormatter("ko"))

	board.Render(sampleCoins())
	board.Render(sampleCoins()[:1])

	rows := board.Snapshot().Rows
	req.Len(rows, 1)
	req.Equal("BTC", rows[0].Code)
}

func TestBoard_Render_Empty_Input(t *testing.T) {
	req := require.New(t)
	board := NewBoard(NewFormatter("ko"))

	// Given an initial board
	req.NotNil(board.Snapshot().Rows)
	req.Empty(board.Snapshot().Rows)

	// When rendering nothing after a batch
	board.Render(sampleCoins())
	board.Render(nil)

	// Then the body is empty, without placeholder row
	req.Empty(board.Snapshot().Rows)
}

func TestBoard_Snapshot_Is_A_Copy(t *testing.T) {
	req := require.New(t)
	board := NewBoard(NewFormatter("ko"))
	board.Render(sampleCoins())

	snapshot := board.Snapshot()
	snapshot.Rows[0].Code = "HACK"

	req.Equal("BTC", board.Snapshot().Rows[0].Code)
}

type countingRenderer struct {
	batches [][]domain.DisplayCoin
}

func (c *countingRenderer) Render(coins []domain.DisplayCoin) {
	c.batches = append(c.batches, coins)
}

func TestMulti_Render(t *testing.T) {
	req := require.New(t)
	first, second := &countingRenderer{}, &countingRenderer{}

	Multi{first, second}.Render(sampleCoins())

	req.Len(first.batches, 1)
	req.Len(second.batches, 1)
	req.Equal(sampleCoins(), second.batches[0])
}
