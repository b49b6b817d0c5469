package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`   ____                  _   _ _            `, "#34d399"},
	{`  / __ \                | | | (_)           `, "#2dd4bf"},
	{` | |  | |_   _  ___  ___| |_| |_ _ __   ___ `, "#22d3ee"},
	{` | |  | | | | |/ _ \/ __| __| | | '_ \ / _ \`, "#38bdf8"},
	{` | |__| | |_| |  __/\__ \ |_| | | | | |  __/`, "#60a5fa"},
	{`  \___\_\\__,_|\___||___/\__|_|_|_| |_|\___|`, "#818cf8"},
}

// PrintBanner writes the Questline banner, coloured when w's terminal allows it.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
