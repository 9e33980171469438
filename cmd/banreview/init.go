package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/banreview/internal/config"
)

// templatePath is the embedded, commented configuration file.
const templatePath = "templates/banreview.yaml"

//go:embed templates/banreview.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented banreview configuration file",
		Long: `Init writes a .banreview file holding every setting with its default value
and a short explanation. Review and history pick it up from the current
directory or from your home directory.

Examples:
  # Write .banreview in the current directory
  banreview init

  # Write the file elsewhere and pass it with --config later
  banreview init -o configs/belgium.yaml

  # Replace an existing file
  banreview init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Path of the configuration file to write")
	cmd.Flags().BoolP("force", "f", false,
		"Replace the file if it already exists")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if err := writeNewFile(outputPath, content, force); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - The community and the ban reason phrase of its language rule")
	fmt.Fprintln(out, "  - How many users are evaluated at once")
	fmt.Fprintln(out, "  - Where reports, the session and snapshots are stored")

	return nil
}

// writeNewFile writes content to path with owner-only permissions,
// creating parent directories. Without replace an existing file is an
// fs.ErrExist error.
func writeNewFile(path string, content []byte, replace bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if replace {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0600) //nolint:gosec // operator-chosen path
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
