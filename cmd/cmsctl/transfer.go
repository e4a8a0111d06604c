package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/headless-cms-admin/internal/models"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the whole site to a bundle file",
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the site with the contents of a bundle file",
	RunE:  runImport,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute component and content type usage counters",
	RunE:  runReconcile,
}

var (
	exportOut string
	importIn  string
)

func init() {
	rootCmd.AddCommand(exportCmd, importCmd, reconcileCmd)

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "output file, - for stdout")
	importCmd.Flags().StringVarP(&importIn, "in", "i", "", "bundle file to import")
	importCmd.MarkFlagRequired("in")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	bundle, err := s.services.Transfer.Export(ctx)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "-" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bundle); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}

	if exportOut != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d content types, %d components, %d entries, %d media files to %s\n",
			len(bundle.ContentTypes), len(bundle.Components), len(bundle.Entries), len(bundle.MediaFiles), exportOut)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(importIn)
	if err != nil {
		return fmt.Errorf("read %s: %w", importIn, err)
	}
	var bundle models.ExportBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return fmt.Errorf("parse %s: %w", importIn, err)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.services.Transfer.Import(ctx, &bundle); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d content types, %d components, %d entries, %d media files\n",
		len(bundle.ContentTypes), len(bundle.Components), len(bundle.Entries), len(bundle.MediaFiles))
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.services.Transfer.Reconcile(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Fixed %d components and %d content types\n",
		report.ComponentsFixed, report.ContentTypesFixed)
	return nil
}
