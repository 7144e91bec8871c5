package main

import (
	"fmt"
	"os"

	"lotus/internal/app"
	"lotus/internal/storage"

	"github.com/gdamore/tcell/v2"
)

func main() {
	a := app.NewApp()

	if len(os.Args) > 1 {
		a.FilePath = os.Args[1]
		if err := storage.LoadCSV(a.Sheet, a.FilePath); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "cannot load %s: %v\n", a.FilePath, err)
			os.Exit(1)
		}
	}

	s, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot create screen: %v\n", err)
		os.Exit(1)
	}
	if err := s.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "cannot init screen: %v\n", err)
		os.Exit(1)
	}
	defer s.Fini()
	s.Clear()

	for !a.Quit {
		a.EnsureCursorVisible(s)
		a.Draw(s)
		switch ev := s.PollEvent().(type) {
		case *tcell.EventKey:
			a.HandleKeyEvent(s, ev)
		case *tcell.EventResize:
			s.Sync()
		}
	}
}
