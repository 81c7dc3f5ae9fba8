package chat

import (
	"fmt"
	"io"
	"sync"

	"github.com/gookit/color"
)

// Input is the text field the user types into.
type Input interface {
	Text() string
	Clear()
}

// MessageLog is the scrolling list of chat lines.
type MessageLog interface {
	AppendLine(line string)
	Warn(line string)
	ScrollToBottom()
}

// InputBuffer is an Input fed by whatever reads the keyboard.
type InputBuffer struct {
	mu   sync.Mutex
	text string
}

func (b *InputBuffer) SetText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
}

func (b *InputBuffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

func (b *InputBuffer) Clear() {
	b.SetText("")
}

// LogView keeps the chat lines and a scroll offset over a window of height lines.
// Lines are echoed to out when it is not nil.
type LogView struct {
	mu      sync.Mutex
	out     io.Writer
	colours bool
	height  int
	lines   []string
	offset  int
}

func NewLogView(out io.Writer, height int, colours bool) *LogView {
	if height <= 0 {
		height = 1
	}
	return &LogView{out: out, height: height, colours: colours}
}

func (v *LogView) AppendLine(line string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lines = append(v.lines, line)
	v.write(line)
}

// Warn shows a non-fatal notice in the log.
func (v *LogView) Warn(line string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lines = append(v.lines, "! "+line)
	if v.colours {
		line = color.FgYellow.Render(line)
	}
	v.write("! " + line)
}

func (v *LogView) write(line string) {
	if v.out == nil {
		return
	}
	_, _ = fmt.Fprintln(v.out, line)
}

// ScrollToBottom moves the window to its maximum offset.
func (v *LogView) ScrollToBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset = v.maxOffset()
}

func (v *LogView) maxOffset() int {
	return max(0, len(v.lines)-v.height)
}

func (v *LogView) Offset() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset
}

// AtBottom reports whether the last line is visible.
func (v *LogView) AtBottom() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset == v.maxOffset()
}

func (v *LogView) Lines() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.lines...)
}

// Visible returns the lines inside the window.
func (v *LogView) Visible() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	end := min(len(v.lines), v.offset+v.height)
	return append([]string(nil), v.lines[v.offset:end]...)
}
