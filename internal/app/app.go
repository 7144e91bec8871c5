package app

import (
	"fmt"

	"lotus/internal/cell"
	"lotus/internal/ref"
	"lotus/internal/sheet"
	"lotus/internal/storage"

	"github.com/gdamore/tcell/v2"
)

type App struct {
	Sheet *sheet.Spreadsheet

	// layout
	LeftGutter   int
	StatusLines  int
	DefaultWidth int
	ColWidths    []int

	// cursor / view
	CurRow  int
	CurCol  int
	ViewRow int
	ViewCol int

	// UI state
	Mode      string // normal | insert
	InputBuf  string
	StatusMsg string
	FilePath  string
	Quit      bool

	HelpVisible bool
}

func NewApp() *App {
	a := &App{
		Sheet:        sheet.New(),
		LeftGutter:   6,
		StatusLines:  2,
		DefaultWidth: 10,
		Mode:         "normal",
	}
	for i := 0; i < 16; i++ {
		a.ColWidths = append(a.ColWidths, a.DefaultWidth)
	}
	return a
}

func (a *App) EnsureColExists(c int) {
	for len(a.ColWidths) <= c {
		a.ColWidths = append(a.ColWidths, a.DefaultWidth)
	}
}

// ----------------------------- Events / Input -----------------------------

func (a *App) HandleKeyEvent(s tcell.Screen, ev *tcell.EventKey) {
	if a.Mode == "insert" {
		a.handleInsertKey(ev)
		return
	}
	if a.HelpVisible {
		a.HelpVisible = false
		return
	}

	a.StatusMsg = ""
	mod := ev.Modifiers()
	switch ev.Key() {
	case tcell.KeyCtrlC:
		a.Quit = true
	case tcell.KeyUp:
		if a.CurRow > 0 {
			a.CurRow--
		}
	case tcell.KeyDown:
		if a.CurRow < ref.MaxRows-1 {
			a.CurRow++
		}
	case tcell.KeyLeft:
		if mod&tcell.ModCtrl != 0 {
			if a.ColWidths[a.CurCol] > 4 {
				a.ColWidths[a.CurCol]--
			}
		} else if a.CurCol > 0 {
			a.CurCol--
		}
	case tcell.KeyRight:
		if mod&tcell.ModCtrl != 0 {
			a.ColWidths[a.CurCol]++
		} else if a.CurCol < ref.MaxCols-1 {
			a.CurCol++
			a.EnsureColExists(a.CurCol)
		}
	case tcell.KeyHome:
		a.CurRow, a.CurCol = 0, 0
	case tcell.KeyPgUp:
		vr, _ := a.visibleCells(s)
		a.CurRow = maxInt(0, a.CurRow-vr)
	case tcell.KeyPgDn:
		vr, _ := a.visibleCells(s)
		a.CurRow = minInt(ref.MaxRows-1, a.CurRow+vr)
	case tcell.KeyEnter, tcell.KeyF2:
		a.startEdit()
	case tcell.KeyDelete:
		a.report(a.Sheet.ClearCell(a.CurRow, a.CurCol))
	case tcell.KeyF4:
		a.promptFormat(s)
	case tcell.KeyF5:
		a.report(a.Sheet.InsertCol(a.CurCol))
	case tcell.KeyF6:
		a.report(a.Sheet.DeleteCol(a.CurCol))
	case tcell.KeyF7:
		a.report(a.Sheet.InsertRow(a.CurRow))
	case tcell.KeyF8:
		a.report(a.Sheet.DeleteRow(a.CurRow))
	case tcell.KeyF9:
		stats := a.Sheet.Recalculate()
		a.StatusMsg = fmt.Sprintf("recalculated %d cells in %s", stats.CellsEvaluated, stats.Elapsed)
	case tcell.KeyF10:
		a.toggleMode()
	case tcell.KeyF11:
		a.cycleOrder()
	case tcell.KeyCtrlS:
		a.promptSave(s)
	case tcell.KeyCtrlO:
		a.promptLoad(s)
	default:
		switch r := ev.Rune(); r {
		case '?':
			a.HelpVisible = true
		case 0:
		default:
			// typing replaces the cell, Lotus style
			a.Mode = "insert"
			a.InputBuf = string(r)
		}
	}
}

func (a *App) handleInsertKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEsc:
		a.Mode = "normal"
		a.InputBuf = ""
	case tcell.KeyEnter:
		a.report(a.Sheet.SetCell(a.CurRow, a.CurCol, a.InputBuf))
		a.Mode = "normal"
		a.InputBuf = ""
		if a.CurRow < ref.MaxRows-1 {
			a.CurRow++
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(a.InputBuf) > 0 {
			a.InputBuf = a.InputBuf[:len(a.InputBuf)-1]
		}
	default:
		if r := ev.Rune(); r != 0 {
			a.InputBuf += string(r)
		}
	}
}

func (a *App) startEdit() {
	a.Mode = "insert"
	a.InputBuf = ""
	if c := a.Sheet.GetCellIfExists(a.CurRow, a.CurCol); c != nil {
		a.InputBuf = c.Raw
	}
}

func (a *App) toggleMode() {
	if a.Sheet.RecalcMode() == sheet.Automatic {
		a.Sheet.SetRecalcMode(sheet.Manual)
	} else {
		a.Sheet.SetRecalcMode(sheet.Automatic)
	}
}

func (a *App) cycleOrder() {
	switch a.Sheet.RecalcOrder() {
	case sheet.Natural:
		a.Sheet.SetRecalcOrder(sheet.ColumnWise)
	case sheet.ColumnWise:
		a.Sheet.SetRecalcOrder(sheet.RowWise)
	default:
		a.Sheet.SetRecalcOrder(sheet.Natural)
	}
}

func (a *App) report(err error) {
	if err != nil {
		a.StatusMsg = err.Error()
	}
}

func (a *App) promptFormat(s tcell.Screen) {
	current := ""
	if c := a.Sheet.GetCellIfExists(a.CurRow, a.CurCol); c != nil {
		current = c.Format
	}
	if code, ok := a.PopupInput(s, "Format (G,F2,S2,C2,\",2\",P2,D1-9,T1-4,H,+):", current); ok {
		a.report(a.Sheet.SetFormat(a.CurRow, a.CurCol, code))
	}
}

func (a *App) promptSave(s tcell.Screen) {
	if path, ok := a.PopupInput(s, "Save CSV:", a.FilePath); ok && path != "" {
		if err := storage.SaveCSV(a.Sheet, path, false); err != nil {
			a.StatusMsg = err.Error()
			return
		}
		a.FilePath = path
		a.StatusMsg = "saved " + path
	}
}

func (a *App) promptLoad(s tcell.Screen) {
	if path, ok := a.PopupInput(s, "Load CSV:", a.FilePath); ok && path != "" {
		if err := storage.LoadCSV(a.Sheet, path); err != nil {
			a.StatusMsg = err.Error()
			return
		}
		a.FilePath = path
		a.StatusMsg = "loaded " + path
	}
}

// ----------------------------- Drawing -----------------------------

func (a *App) Draw(s tcell.Screen) {
	s.Clear()
	w, h := s.Size()
	gridH := h - a.StatusLines - 1 // one line for column headers

	headerStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	cellStyle := tcell.StyleDefault
	cursorStyle := tcell.StyleDefault.Reverse(true)

	// column headers
	x := a.LeftGutter
	for c := a.ViewCol; c < len(a.ColWidths) && x < w; c++ {
		name := ref.IndexToCol(c)
		drawText(s, x+(a.ColWidths[c]-len(name))/2, 0, name, headerStyle)
		x += a.ColWidths[c] + 1
	}

	// rows
	for i := 0; i < gridH; i++ {
		r := a.ViewRow + i
		y := 1 + i
		drawText(s, 0, y, fmt.Sprintf("%*d", a.LeftGutter-1, r+1), headerStyle)
		x = a.LeftGutter
		for c := a.ViewCol; c < len(a.ColWidths) && x < w; c++ {
			st := cellStyle
			if r == a.CurRow && c == a.CurCol {
				st = cursorStyle
			}
			drawText(s, x, y, a.cellText(r, c, a.ColWidths[c]), st)
			x += a.ColWidths[c] + 1
		}
	}

	a.drawStatus(s, w, h)
	if a.Mode == "insert" {
		drawText(s, 0, h-1, "> "+a.InputBuf, cellStyle)
		s.ShowCursor(2+len(a.InputBuf), h-1)
	} else {
		s.HideCursor()
	}
	if a.HelpVisible {
		a.drawHelp(s, w, h)
	}
	s.Show()
}

// cellText renders one cell clipped and padded to the column width, with
// numbers right-aligned and labels following their alignment sigil.
func (a *App) cellText(r, c, width int) string {
	cl := a.Sheet.GetCellIfExists(r, c)
	if cl == nil {
		return pad("", width)
	}
	v := a.Sheet.GetValue(r, c)
	text := cell.ParseFormatCode(cl.Format).Format(v, width)
	if len(text) > width {
		return text[:width]
	}
	if v.IsNumber() {
		return fmt.Sprintf("%*s", width, text)
	}
	switch cl.Align {
	case cell.AlignRight:
		return fmt.Sprintf("%*s", width, text)
	case cell.AlignCenter:
		left := (width - len(text)) / 2
		return pad(pad("", left)+text, width)
	case cell.AlignRepeat:
		if text == "" {
			return pad("", width)
		}
		out := ""
		for len(out) < width {
			out += text
		}
		return out[:width]
	default:
		return pad(text, width)
	}
}

func (a *App) drawStatus(s tcell.Screen, w, h int) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	flagStyle := tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)

	raw := ""
	if c := a.Sheet.GetCellIfExists(a.CurRow, a.CurCol); c != nil {
		raw = c.Raw
	}
	addr := ref.Addr{Row: a.CurRow, Col: a.CurCol}
	drawText(s, 0, h-2, fmt.Sprintf("%s: %s", addr, raw), style)

	mode := "AUTO"
	if a.Sheet.RecalcMode() == sheet.Manual {
		mode = "MANUAL"
	}
	order := [...]string{"NATURAL", "COLWISE", "ROWWISE"}[a.Sheet.RecalcOrder()]
	right := fmt.Sprintf("[%s/%s]  ?=help", mode, order)
	drawText(s, w-len(right), h-2, right, style)

	flags := ""
	if a.Sheet.NeedsRecalc() {
		flags += " CALC"
	}
	if a.Sheet.HasCircularRefs() {
		flags += " CIRC"
	}
	if flags != "" {
		drawText(s, w-len(right)-len(flags)-2, h-2, flags, flagStyle)
	}
	if a.Mode != "insert" && a.StatusMsg != "" {
		drawText(s, 0, h-1, a.StatusMsg, style)
	}
}

var helpLines = []string{
	"arrows  move        Enter/F2  edit cell     Del  clear cell",
	"F4  format code     F5/F6     ins/del col   F7/F8  ins/del row",
	"F9  recalculate     F10       auto/manual   F11  recalc order",
	"Ctrl+S  save CSV    Ctrl+O    load CSV      Ctrl+C  quit",
}

func (a *App) drawHelp(s tcell.Screen, w, h int) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	boxW := 0
	for _, l := range helpLines {
		boxW = maxInt(boxW, len(l))
	}
	boxW += 4
	boxH := len(helpLines) + 2
	left := (w - boxW) / 2
	top := (h - boxH) / 2
	drawFrame(s, left, top, boxW, boxH, style)
	for i, l := range helpLines {
		drawText(s, left+2, top+1+i, l, style)
	}
}

func (a *App) EnsureCursorVisible(s tcell.Screen) {
	_, h := s.Size()
	gridH := h - a.StatusLines - 1
	if a.CurRow < a.ViewRow {
		a.ViewRow = a.CurRow
	}
	if a.CurRow >= a.ViewRow+gridH {
		a.ViewRow = a.CurRow - gridH + 1
	}
	if a.CurCol < a.ViewCol {
		a.ViewCol = a.CurCol
	}
	for a.colRight(s, a.CurCol) && a.ViewCol < a.CurCol {
		a.ViewCol++
	}
}

// colRight reports whether the cursor column extends past the screen edge.
func (a *App) colRight(s tcell.Screen, col int) bool {
	w, _ := s.Size()
	x := a.LeftGutter
	for c := a.ViewCol; c <= col && c < len(a.ColWidths); c++ {
		x += a.ColWidths[c] + 1
	}
	return x > w
}

func (a *App) visibleCells(s tcell.Screen) (rows, cols int) {
	w, h := s.Size()
	rows = maxInt(1, h-a.StatusLines-1)
	x := a.LeftGutter
	for c := a.ViewCol; c < len(a.ColWidths) && x < w; c++ {
		x += a.ColWidths[c] + 1
		cols++
	}
	return rows, maxInt(1, cols)
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, r := range text {
		s.SetContent(x+i, y, r, nil, style)
	}
}

func drawFrame(s tcell.Screen, left, top, w, h int, style tcell.Style) {
	for y := top; y < top+h; y++ {
		for x := left; x < left+w; x++ {
			s.SetContent(x, y, ' ', nil, style)
		}
	}
	for x := left; x < left+w; x++ {
		s.SetContent(x, top, tcell.RuneHLine, nil, style)
		s.SetContent(x, top+h-1, tcell.RuneHLine, nil, style)
	}
	for y := top; y < top+h; y++ {
		s.SetContent(left, y, tcell.RuneVLine, nil, style)
		s.SetContent(left+w-1, y, tcell.RuneVLine, nil, style)
	}
	s.SetContent(left, top, tcell.RuneULCorner, nil, style)
	s.SetContent(left+w-1, top, tcell.RuneURCorner, nil, style)
	s.SetContent(left, top+h-1, tcell.RuneLLCorner, nil, style)
	s.SetContent(left+w-1, top+h-1, tcell.RuneLRCorner, nil, style)
}

func pad(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s[:width]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
