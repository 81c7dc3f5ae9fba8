// Package render draws ticker rows: an in-memory table body for the HTTP
// snapshot and a terminal table for the console.
package render

import (
	"kimp-board/contract"
	"kimp-board/domain"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Snapshot is a copy of the table body at one point in time.
type Snapshot struct {
	Rows      []Row     `json:"rows"`
	Renders   uint64    `json:"renders"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Board holds the current table body. Every Render replaces all rows.
type Board struct {
	mu        sync.RWMutex
	formatter Formatter
	rows      []Row
	renders   uint64
	updatedAt time.Time
}

func NewBoard(formatter Formatter) *Board {
	return &Board{formatter: formatter, rows: []Row{}}
}

func (b *Board) Render(coins []domain.DisplayCoin) {
	rows := lo.Map(coins, func(coin domain.DisplayCoin, _ int) Row {
		return b.formatter.Row(coin)
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows = rows
	b.renders++
	b.updatedAt = time.Now().UTC()
}

func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Snapshot{
		Rows:      append([]Row{}, b.rows...),
		Renders:   b.renders,
		UpdatedAt: b.updatedAt,
	}
}

// Multi renders the same batch on every renderer, in order.
type Multi []contract.TableRenderer

func (m Multi) Render(coins []domain.DisplayCoin) {
	for _, renderer := range m {
		renderer.Render(coins)
	}
}
