package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cratesync/cratesync/internal/config"
	"github.com/cratesync/cratesync/internal/crate"
)

// Guide command flags.
var (
	flagGuideMusicRoot  string
	flagGuideExtensions string
	flagGuideMaxDepth   int
)

func newGuideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guide",
		Short: "Print a guide for creating the crates manually in Serato",
		Long: `Print the folder structure with track counts as a checklist for creating
the crates by hand through Serato's Files panel. Read-only: nothing is
written anywhere.`,
		RunE: runGuide,
	}

	cmd.Flags().StringVarP(&flagGuideMusicRoot, "music-root", "m", "", "root folder containing music")
	cmd.Flags().StringVarP(&flagGuideExtensions, "extensions", "e", "", "comma-separated audio extensions")
	cmd.Flags().IntVar(&flagGuideMaxDepth, "max-depth", 2, "maximum folder depth to show")

	return cmd
}

func runGuide(_ *cobra.Command, _ []string) error {
	root := flagGuideMusicRoot
	if root == "" {
		root = resolvedCfg.MusicRoot
	}

	musicRoot, err := resolveMusicRoot(root)
	if err != nil {
		return err
	}

	extCSV := resolvedCfg.Extensions
	if flagGuideExtensions != "" {
		extCSV = flagGuideExtensions
	}

	builder := crate.NewBuilder(config.ParseExtensions(extCSV), false, resolvedCfg.Delimiter, buildLogger())

	printGuide(os.Stdout, builder, musicRoot, flagGuideMaxDepth)

	return nil
}

// printGuide renders the folder tree with track counts and instructions.
func printGuide(w io.Writer, builder *crate.Builder, musicRoot string, maxDepth int) {
	fmt.Fprintln(w, "Create each folder below as a crate in Serato's Files panel")
	fmt.Fprintln(w, "(right-click > Create Crate, or drag the folder to the Crates panel).")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s/ (%d tracks)\n", filepath.Base(musicRoot), countGuideTracks(builder, musicRoot))

	total := printGuideTree(w, builder, musicRoot, "", 0, maxDepth)

	fmt.Fprintf(w, "\nTotal folders to create as crates: %d\n", total+1)
}

// printGuideTree prints subfolders as a box-drawing tree, returning how
// many folders were shown.
func printGuideTree(w io.Writer, builder *crate.Builder, folder, prefix string, depth, maxDepth int) int {
	if depth > maxDepth {
		return 0
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return 0
	}

	var dirs []string

	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			dirs = append(dirs, entry.Name())
		}
	}

	total := 0

	for i, name := range dirs {
		last := i == len(dirs)-1

		connector := "├── "
		childPrefix := prefix + "│   "
		if last {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		path := filepath.Join(folder, name)

		trackInfo := "(empty)"
		if n := countGuideTracks(builder, path); n > 0 {
			trackInfo = fmt.Sprintf("(%d tracks)", n)
		}

		fmt.Fprintf(w, "%s%s%s %s\n", prefix, connector, name, trackInfo)
		total++

		if depth < maxDepth {
			total += printGuideTree(w, builder, path, childPrefix, depth+1, maxDepth)
		}
	}

	return total
}

// countGuideTracks counts matching audio files directly inside folder.
func countGuideTracks(builder *crate.Builder, folder string) int {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return 0
	}

	count := 0

	for _, entry := range entries {
		if !entry.IsDir() && builder.IsAudioFile(entry.Name()) {
			count++
		}
	}

	return count
}
