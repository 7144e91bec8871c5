package app

import (
	"github.com/gdamore/tcell/v2"
)

// PopupInput runs a modal one-line input box over the grid. It returns the
// entered text and true on Enter, or false if the user pressed Esc.
func (a *App) PopupInput(s tcell.Screen, prompt, initial string) (string, bool) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)

	promptRunes := []rune(prompt)
	buf := []rune(initial)
	pos := len(buf)

	draw := func() {
		a.Draw(s)
		w, h := s.Size()
		contentW := maxInt(20, len(promptRunes)+len(buf)+2)
		if contentW > w-4 {
			contentW = w - 4
		}
		boxW := contentW + 4
		boxH := 3
		left := (w - boxW) / 2
		top := (h - boxH) / 2
		drawFrame(s, left, top, boxW, boxH, style)

		x := left + 2
		y := top + 1
		for i, r := range promptRunes {
			s.SetContent(x+i, y, r, nil, style)
		}
		x += len(promptRunes) + 1

		field := boxW - 4 - len(promptRunes)
		shown := buf
		start := 0
		if len(shown) > field {
			if pos > field {
				start = pos - field
			}
			shown = shown[start : start+field]
		}
		for i, r := range shown {
			s.SetContent(x+i, y, r, nil, style)
		}
		s.ShowCursor(x+pos-start, y)
		s.Show()
	}

	draw()
	for {
		switch ev := s.PollEvent().(type) {
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEsc:
				s.HideCursor()
				return "", false
			case tcell.KeyEnter:
				s.HideCursor()
				return string(buf), true
			case tcell.KeyBackspace, tcell.KeyBackspace2:
				if pos > 0 {
					buf = append(buf[:pos-1], buf[pos:]...)
					pos--
				}
			case tcell.KeyDelete:
				if pos < len(buf) {
					buf = append(buf[:pos], buf[pos+1:]...)
				}
			case tcell.KeyLeft:
				if pos > 0 {
					pos--
				}
			case tcell.KeyRight:
				if pos < len(buf) {
					pos++
				}
			case tcell.KeyHome:
				pos = 0
			case tcell.KeyEnd:
				pos = len(buf)
			default:
				if r := ev.Rune(); r != 0 {
					buf = append(buf[:pos], append([]rune{r}, buf[pos:]...)...)
					pos++
				}
			}
			draw()
		case *tcell.EventResize:
			s.Sync()
			draw()
		}
	}
}
