package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kianmeng/textLSP/internal/clean"
	"github.com/kianmeng/textLSP/internal/text"
)

func cleanCmd() *cobra.Command {
	var (
		languageID string
		intervals  bool
	)

	cmd := &cobra.Command{
		Use:   "clean FILE",
		Short: "Print the text a document is checked as",
		Long: `Print the prose extracted from a document, the way the checkers see it.
The syntax follows --language-id, or the file extension when it is not set.
With --intervals the table mapping cleaned offsets to source ranges is
printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd.OutOrStdout(), args[0], languageID, intervals)
		},
	}

	cmd.Flags().StringVar(&languageID, "language-id", "", "Editor language id, e.g. latex, markdown or plaintext")
	cmd.Flags().BoolVar(&intervals, "intervals", false, "Print the interval table")

	return cmd
}

func runClean(w io.Writer, path, languageID string, intervals bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if languageID == "" {
		languageID = strings.TrimPrefix(filepath.Ext(path), ".")
	}

	syntaxes := clean.NewSyntaxes(1)
	defer syntaxes.Close()

	src := string(data)
	res, err := clean.Run(context.Background(), src, text.NewConverter(src), syntaxes.ForLanguageID(languageID))
	if err != nil {
		return fmt.Errorf("failed to clean %s: %w", path, err)
	}

	if !intervals {
		_, err := fmt.Fprintln(w, res.Text)
		return err
	}
	for _, e := range res.Index.All() {
		if _, err := fmt.Fprintf(w, "%-12s %-14s %q\n", e.Offset, e.Range, e.Value); err != nil {
			return err
		}
	}
	return nil
}
