package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTerminal_Render(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	terminal := NewTerminal(&out, NewFormatter("ko"), false, false)

	terminal.Render(sampleCoins())

	output := out.String()
	req.Contains(output, "비트코인 (BTC)")
	req.Contains(output, "95,000,000")
	req.Contains(output, "+1.20%")
	req.Contains(output, "-0.40%")
	req.Contains(output, "+0.00%")
	req.Contains(output, "3억")
	req.NotContains(output, clearScreen)

	// Rows keep the batch order
	req.Less(strings.Index(output, "BTC"), strings.Index(output, "ETH"))
	req.Less(strings.Index(output, "ETH"), strings.Index(output, "XRP"))
}

func TestTerminal_Render_Twice_Draws_Same_Frame(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	terminal := NewTerminal(&out, NewFormatter("ko"), false, true)

	terminal.Render(sampleCoins())
	first := out.String()
	terminal.Render(sampleCoins())

	// Then each frame starts with a screen clear and both frames are identical
	req.True(strings.HasPrefix(first, clearScreen))
	req.Equal(first+first, out.String())
}

func TestTerminal_Render_Empty(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	terminal := NewTerminal(&out, NewFormatter("ko"), false, false)

	terminal.Render(nil)

	req.Contains(out.String(), "현재가")
	req.NotContains(out.String(), "억")
}
