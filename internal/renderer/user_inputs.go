package renderer

type UiAction rune

const (
	Unknown   UiAction = iota
	Interrupt UiAction = 3  // Ctrl-C; raw mode swallows SIGINT
	Quit      UiAction = 81 // 'Q'
	Up        UiAction = 87 // 'W'
	Down      UiAction = 83 // 'S'
	UpArrow   UiAction = 8593
	DownArrow UiAction = 8595
)

// ProcessInput maps one raw read from stdin to the actions it contains. Arrow
// keys arrive as ESC [ A and ESC [ B.
func ProcessInput(buf []byte) []UiAction {
	var actions []UiAction
	for i := 0; i < len(buf); i++ {
		c := buf[i]
		if c == 27 && i+2 < len(buf) && buf[i+1] == '[' {
			switch buf[i+2] {
			case 'A':
				actions = append(actions, UpArrow)
			case 'B':
				actions = append(actions, DownArrow)
			default:
				actions = append(actions, Unknown)
			}
			i += 2
			continue
		}
		// Convert to UpperCase
		if c >= 'a' && c <= 'z' {
			c -= 32
		}
		switch action := UiAction(c); action {
		case Quit, Up, Down, Interrupt:
			actions = append(actions, action)
		default:
			actions = append(actions, Unknown)
		}
	}
	return actions
}
