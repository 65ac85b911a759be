package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Hussein-Mazeh/fritzer/internal/fritzbox"
	"github.com/Hussein-Mazeh/fritzer/internal/service"
)

func renderSwitches(w io.Writer, list []service.SwitchStatus) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no switches found")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Nr", "AIN", "Name", "State"})
	for i, s := range list {
		t.AppendRow(table.Row{i + 1, s.AIN, s.Name, stateText(s.State)})
	}
	t.Render()
}

func stateText(s fritzbox.SwitchState) string {
	switch s {
	case fritzbox.SwitchOn:
		return text.FgGreen.Sprint(s.String())
	case fritzbox.SwitchOff:
		return text.FgRed.Sprint(s.String())
	default:
		return text.FgYellow.Sprint(s.String())
	}
}
