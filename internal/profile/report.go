package profile

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

// WriteText renders r as the text report of spec §6: coverage, flat
// profile, and call-graph sections, columns "count, wall ms, profile
// time, block name [hex-id]".
func WriteText(w io.Writer, r *Report) {
	var totalSamples int64
	for _, s := range r.Self {
		totalSamples += s
	}

	fmt.Fprintf(w, "Coverage: %d blocks, %s samples\n\n", len(r.Names), humanize.Comma(totalSamples))

	fmt.Fprintln(w, "Flat profile:")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for id, name := range r.Names {
		fmt.Fprintf(w, "%12s  %8dms  %8dms  %s [%#x]\n",
			humanize.Comma(r.Calls[id]), r.Self[id], r.Total[id], name, id)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Call graph:")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for id, edges := range r.edgesBy {
		fmt.Fprintf(w, "%s [%#x]\n", r.Names[id], id)
		for to, e := range edges {
			if e.calls == 0 {
				continue
			}
			fmt.Fprintf(w, "    -> %s [%#x]  %s calls  %dms\n",
				r.Names[to], to, humanize.Comma(e.calls), e.time)
		}
	}
}
