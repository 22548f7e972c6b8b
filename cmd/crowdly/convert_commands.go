/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leoloveisme/crowdly-sub001/internal/formats"
	"github.com/leoloveisme/crowdly-sub001/internal/interchange"
	applog "github.com/leoloveisme/crowdly-sub001/internal/log"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		outPath  string
		declared string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Convert a document to canonical markup",
		Long: "Reads a PDF, DOCX, EPUB, ODT, FDX, Fountain, text or HTML file and prints its canonical markup.\n" +
			"Use --as to declare the format when reading stdin or a file without an extension.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, done, err := ctx.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			var res interchange.Result
			switch {
			case args[0] == "-":
				if declared == "" {
					return usageError{"reading stdin requires --as <format>"}
				}
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), eng.MaxBytes+1))
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				res = eng.Import(cmd.Context(), data, declared)
			case declared != "":
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				res = eng.Import(cmd.Context(), data, declared)
			default:
				res = eng.ImportFile(cmd.Context(), args[0])
			}

			if asJSON {
				if err := writeJSON(cmd, res); err != nil {
					return err
				}
				return res.Err
			}
			if !res.Success {
				return res.Err
			}
			if outPath == "" {
				_, err := io.WriteString(cmd.OutOrStdout(), res.Content)
				return err
			}
			if err := os.WriteFile(outPath, []byte(res.Content), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			applog.WithComponent("cli").Info("markup written", slog.String("path", outPath))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write markup to this file instead of stdout")
	cmd.Flags().StringVar(&declared, "as", "", "Declared input format (overrides the file extension)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result envelope as JSON")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		format string
		opts   interchange.ExportOptions
		outDir string
		page   string
		force  bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "export <markup-file|->",
		Short: "Render canonical markup into an exchange format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(format) == "" {
				return usageError{"--format is required (see `crowdly formats`)"}
			}
			eng, done, err := ctx.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if page != "" {
				r, err := formats.ApplyPreset(eng.Render, page)
				if err != nil {
					return usageError{err.Error()}
				}
				opts.Render = &r
			}

			var src io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				src = f
			}
			content, err := io.ReadAll(io.LimitReader(src, eng.MaxBytes+1))
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			res := eng.Export(cmd.Context(), string(content), format, opts)
			if !res.Success {
				if asJSON {
					_ = writeJSON(cmd, res)
				}
				return res.Err
			}

			if outDir == "" {
				if isBinary(res.MIME) && isTerminal(cmd.OutOrStdout()) && !force {
					return usageError{fmt.Sprintf("refusing to write %s output to a terminal; use --out <dir> or redirect stdout", formats.Normalize(format))}
				}
				_, err := cmd.OutOrStdout().Write(res.Payload)
				return err
			}
			path, err := writePayload(outDir, res, force)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, struct {
					interchange.Result
					Path string `json:"path"`
				}{res, path})
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Target format tag (pdf, docx, epub, odt, fdx, fountain, md, txt)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "Document title")
	cmd.Flags().StringVar(&opts.Author, "author", "", "Document author")
	cmd.Flags().StringVar(&opts.Filename, "filename", "", "Output base name (defaults to the title)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to write the exported file into")
	cmd.Flags().StringVar(&page, "page", "", "Page preset for pdf export ("+strings.Join(formats.Presets(), ", ")+")")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files and allow binary output on a terminal")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result envelope as JSON")
	return cmd
}

func isBinary(mime string) bool {
	return !strings.HasPrefix(mime, "text/") && mime != "application/xml"
}

// writePayload writes the export into dir via a temp file so a failed write
// never leaves a truncated document behind.
func writePayload(dir string, res interchange.Result, force bool) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, res.Filename)
	if _, err := os.Stat(path); err == nil && !force {
		return "", usageError{fmt.Sprintf("%s already exists (use --force to overwrite)", path)}
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, ".crowdly-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(res.Payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write output: %w", err)
	}
	return path, nil
}
