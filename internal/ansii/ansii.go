package ansii

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

type ANSI string

const (
	reset       ANSI = "\033[0m"
	plain       ANSI = ""
	bold        ANSI = "\033[1m"
	underline   ANSI = "\033[4m"
	red         ANSI = "\033[31m"
	green       ANSI = "\033[32m"
	yellow      ANSI = "\033[33m"
	blue        ANSI = "\033[34m"
	purple      ANSI = "\033[35m"
	cyan        ANSI = "\033[36m"
	white       ANSI = "\033[37m"
	clearScreen ANSI = "\033[2J"
	cursorHome  ANSI = "\033[H"
	hideCursor  ANSI = "\033[?25l"
	showCursor  ANSI = "\033[?25h"
)

// Offset is a terminal cell, zero based from the top left.
type Offset struct {
	X int
	Y int
}

type style struct {
	Reset     ANSI
	Plain     ANSI
	Bold      ANSI
	Underline ANSI
}

type color struct {
	Red    ANSI
	Green  ANSI
	Yellow ANSI
	Blue   ANSI
	Purple ANSI
	Cyan   ANSI
	White  ANSI
}

type screen struct {
	ClearScreen ANSI
	CursorHome  ANSI
	HideCursor  ANSI
	ShowCursor  ANSI
}

type ascii struct {
	Block string
}

var (
	Styles = style{Bold: bold, Underline: underline, Reset: reset, Plain: plain}
	Colors = color{Red: red, Green: green, Yellow: yellow, Blue: blue, Purple: purple, Cyan: cyan, White: white}
	Screen = screen{ClearScreen: clearScreen, CursorHome: cursorHome, HideCursor: hideCursor, ShowCursor: showCursor}
	Blocks = ascii{Block: "█"}
)

// GetTermSize reports the size of the terminal on stdout.
func GetTermSize() (width int, height int, err error) {
	return term.GetSize(int(os.Stdout.Fd()))
}

// MakeTermRaw puts stdin in raw mode so keys arrive unbuffered.
func MakeTermRaw() (*term.State, error) {
	return term.MakeRaw(int(os.Stdin.Fd()))
}

func RestoreTerm(prev *term.State) error {
	return term.Restore(int(os.Stdin.Fd()), prev)
}

func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// PlaceCursor moves to offset. Terminals count from 1.
func (s screen) PlaceCursor(offset Offset) ANSI {
	return ANSI(fmt.Sprintf("\033[%d;%dH", offset.Y+1, offset.X+1))
}

// DrawBox fills a width x height block of cells whose top left cell is offset.
func DrawBox(builder *strings.Builder, offset Offset, height int, width int, style ANSI) {
	builder.WriteString(string(style))
	for hIdx := 0; hIdx < height; hIdx++ {
		builder.WriteString(string(Screen.PlaceCursor(Offset{X: offset.X, Y: offset.Y + hIdx})))
		builder.WriteString(strings.Repeat(Blocks.Block, width))
	}
	builder.WriteString(string(Styles.Reset))
}

func DrawPixelStyle(builder *strings.Builder, offset Offset, style ANSI) {
	builder.WriteString(string(style))
	builder.WriteString(string(Screen.PlaceCursor(offset) + ANSI(Blocks.Block)))
	builder.WriteString(string(Styles.Reset))
}

// DrawText writes s at offset in style.
func DrawText(builder *strings.Builder, offset Offset, s string, style ANSI) {
	builder.WriteString(string(Screen.PlaceCursor(offset)))
	builder.WriteString(string(style))
	builder.WriteString(s)
	builder.WriteString(string(Styles.Reset))
}
