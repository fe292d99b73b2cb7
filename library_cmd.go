package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cratesync/cratesync/internal/config"
	"github.com/cratesync/cratesync/internal/library"
	isync "github.com/cratesync/cratesync/internal/sync"
)

// flagLibraryDir overrides the platform-default Serato Library folder.
var flagLibraryDir string

func newLibraryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage Serato's library database",
	}

	cmd.PersistentFlags().StringVar(&flagLibraryDir, "library-dir", "", "Serato Library folder (default platform cache location)")

	cmd.AddCommand(newLibraryInitCmd())
	cmd.AddCommand(newLibraryListCmd())
	cmd.AddCommand(newLibraryPurgeCmd())
	cmd.AddCommand(newLibraryClearCmd())

	return cmd
}

// libraryDir resolves the Library folder from the flag or platform default.
func libraryDir() string {
	if flagLibraryDir != "" {
		return flagLibraryDir
	}

	return config.SeratoLibraryDir()
}

// libraryDBPath is the path of the library store the tool writes to.
func libraryDBPath() string {
	return filepath.Join(libraryDir(), "root.sqlite")
}

func newLibraryInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a fresh library database with the crate schema",
		Long: `Create an empty library database at the Library folder. Intended for
fixtures and testing; Serato creates the real database itself.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := libraryDBPath()

			store, err := library.Create(cmd.Context(), path, buildLogger())
			if err != nil {
				return err
			}
			defer store.Close()

			statusf("Library database created: %s\n", path)

			return nil
		},
	}
}

func newLibraryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List top-level user crates in the library database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := library.Open(libraryDBPath(), buildLogger())
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.ListUserCrateNames(cmd.Context())
			if err != nil {
				return err
			}

			if len(names) == 0 {
				statusf("No user crates in the library\n")
				return nil
			}

			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}

			return nil
		},
	}
}

func newLibraryPurgeCmd() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete all user crates from the library database",
		Long: `Delete every top-level user crate row from the library database; nested
crates go with them through the schema's cascade. Built-in containers
(iTunes, Stems) are untouched. The library files are backed up first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !apply {
				return fmt.Errorf("purge is destructive; pass --apply to confirm")
			}

			logger := buildLogger()
			safety := isync.NewSafety(logger)

			if _, err := safety.BackupLibraryDatabases(libraryDir()); err != nil {
				return fmt.Errorf("%w: %v", isync.ErrBackupFailed, err)
			}

			store, err := library.Open(libraryDBPath(), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			deleted, err := store.PurgeUserCrates(cmd.Context())
			if err != nil {
				return err
			}

			statusf("Deleted %d crates from the library\n", deleted)

			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "confirm the purge")

	return cmd
}

func newLibraryClearCmd() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Move the library database files into a timestamped backup",
		Long: `Move the library SQLite files (including WAL and shared-memory side
files) into a timestamped backup folder, forcing Serato to rebuild its
library from the .crate files on next launch.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if !apply {
				return fmt.Errorf("clear is destructive; pass --apply to confirm")
			}

			safety := isync.NewSafety(buildLogger())
			cleared := safety.ClearLibraryDatabases(libraryDir())

			statusf("Cleared %d library database files\n", cleared)

			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "confirm the clear")

	return cmd
}
