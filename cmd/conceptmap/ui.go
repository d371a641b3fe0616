package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	Brand  = color.New(color.FgHiGreen, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Warn   = color.New(color.FgYellow)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
)

func statusIcon(ok bool) string {
	if ok {
		return Good.Sprint("✓")
	}
	return Bad.Sprint("✗")
}

func warnIcon() string { return Warn.Sprint("⚠") }

func banner(w io.Writer, subtitle string) {
	fmt.Fprintf(w, "%s %s\n\n", Brand.Sprint("conceptmap"), Subtle.Sprint(subtitle))
}
