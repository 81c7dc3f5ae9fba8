package render

import (
	"fmt"
	"io"
	"kimp-board/domain"
	"sync"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

const clearScreen = "\033[H\033[2J"

var header = []string{"코인", "현재가", "김프", "전일대비", "거래대금"}

// Terminal draws the whole table on every render.
type Terminal struct {
	mu          sync.Mutex
	out         io.Writer
	formatter   Formatter
	colours     bool
	clearScreen bool
}

func NewTerminal(out io.Writer, formatter Formatter, colours, clearScreen bool) *Terminal {
	return &Terminal{out: out, formatter: formatter, colours: colours, clearScreen: clearScreen}
}

func (t *Terminal) Render(coins []domain.DisplayCoin) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.clearScreen {
		fmt.Fprint(t.out, clearScreen)
	}

	table := tablewriter.NewWriter(t.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})
	table.SetBorder(false)
	table.SetHeaderLine(true)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetTablePadding("\t")

	for _, coin := range coins {
		row := t.formatter.Row(coin)
		table.Append([]string{
			fmt.Sprintf("%s (%s)", row.Name, row.Code),
			row.Price,
			t.paint(row.Premium),
			t.paint(row.Change),
			row.Volume,
		})
	}
	table.Render()
}

// paint follows the Korean market convention: rising in red, falling in blue.
func (t *Terminal) paint(cell Cell) string {
	if !t.colours {
		return cell.Text
	}
	if cell.Class == Positive {
		return color.FgRed.Render(cell.Text)
	}
	return color.FgBlue.Render(cell.Text)
}
