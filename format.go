package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cratesync/cratesync/internal/crate"
	isync "github.com/cratesync/cratesync/internal/sync"
)

// existingCratesDisplayLimit caps how many pre-existing crate names the
// plan output lists before summarizing.
const existingCratesDisplayLimit = 10

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// printPlan renders the sync plan. Read-only: the plan is never mutated.
func printPlan(w io.Writer, plan *isync.Plan, showTracks bool) {
	fmt.Fprintf(w, "Music root:  %s\n", plan.MusicRoot)
	fmt.Fprintf(w, "Serato root: %s\n\n", plan.SeratoRoot)
	fmt.Fprintln(w, "Crates to create:")

	if len(plan.Crates) == 0 {
		fmt.Fprintln(w, "  (no crates to create)")
	}

	for _, node := range plan.Crates {
		printCrate(w, node, 0, showTracks)
	}

	fmt.Fprintf(w, "\nTotal crates: %d\n", plan.TotalCrates)
	fmt.Fprintf(w, "Total tracks: %d\n", plan.TotalTracks)

	printExisting(w, plan.ExistingCrates)
}

// printCrate renders one node and its children, indented by depth.
func printCrate(w io.Writer, node *crate.Node, depth int, showTracks bool) {
	indent := strings.Repeat("  ", depth)

	trackInfo := "(empty)"
	if len(node.Tracks) > 0 {
		trackInfo = fmt.Sprintf("(%d tracks)", len(node.Tracks))
	}

	fmt.Fprintf(w, "%s- %s %s\n", indent, node.Name, trackInfo)

	if showTracks {
		for _, track := range node.Tracks {
			fmt.Fprintf(w, "%s    + %s\n", indent, track)
		}
	}

	for _, child := range node.Children {
		printCrate(w, child, depth+1, showTracks)
	}
}

// printExisting lists crates already present at the destination, truncated
// past the display limit.
func printExisting(w io.Writer, existing []string) {
	if len(existing) == 0 {
		return
	}

	fmt.Fprintf(w, "\nExisting crates in Serato (%d):\n", len(existing))

	names := append([]string(nil), existing...)
	sort.Strings(names)

	for i, name := range names {
		if i == existingCratesDisplayLimit {
			fmt.Fprintf(w, "  ... and %d more\n", len(names)-existingCratesDisplayLimit)
			break
		}

		fmt.Fprintf(w, "  - %s\n", name)
	}
}
