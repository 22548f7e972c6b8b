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
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leoloveisme/crowdly-sub001/internal/config"
	"github.com/leoloveisme/crowdly-sub001/internal/formats"
	"github.com/leoloveisme/crowdly-sub001/internal/version"
)

func newFormatsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List supported formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type row struct {
				Tag       string   `json:"tag"`
				Aliases   []string `json:"aliases,omitempty"`
				Direction string   `json:"direction"`
				MIME      string   `json:"mime"`
			}
			var rows []row
			var cells [][]string
			for _, e := range formats.Formats() {
				rows = append(rows, row{Tag: e.Tag, Aliases: e.Aliases, Direction: e.Direction(), MIME: e.MIME})
				cells = append(cells, []string{e.Tag, strings.Join(e.Aliases, ", "), e.Direction(), e.MIME})
			}
			if asJSON {
				return writeJSON(cmd, rows)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Format", "Aliases", "Direction", "MIME type"}, cells, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		keep   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent conversions from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := cfg.JournalPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if !cfg.Journal.Enabled {
					fmt.Fprintf(cmd.OutOrStdout(), "The journal is disabled. Set journal.enabled in the config or %s=1.\n", config.EnvJournal)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "No conversions recorded yet.")
				}
				return nil
			}
			j, err := ctx.openJournal(cmd.Context())
			if err != nil {
				return err
			}
			defer j.Close()
			if keep > 0 {
				n, err := j.Prune(cmd.Context(), keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Pruned %d entries.\n", n)
			}
			if asJSON {
				return j.ExportJSON(cmd.Context(), cmd.OutOrStdout(), limit)
			}
			entries, err := j.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No conversions recorded yet.")
				return nil
			}
			cells := make([][]string, 0, len(entries))
			for _, e := range entries {
				detail := e.Filename
				if e.Outcome != "ok" {
					detail = e.Message
				}
				cells = append(cells, []string{
					e.Time.Local().Format("2006-01-02 15:04:05"),
					e.Direction,
					e.Format,
					strconv.FormatInt(e.Bytes, 10),
					e.Duration.Round(time.Millisecond).String(),
					e.Outcome,
					detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"When", "Direction", "Format", "Bytes", "Took", "Outcome", "Detail"}, cells,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft}))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().IntVar(&keep, "prune", 0, "Keep only the newest N entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			if path, err := config.ConfigPath(); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", path)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			for _, key := range []string{"limits.max_bytes", "render.font_path", "render.mono_font_path", "render.dpi", "export.language", "journal.enabled", "journal.path",
				"logging.level", "logging.format", "logging.source", "logging.file"} {
				if env, ok := config.EnvOverrideFor(key); ok {
					fmt.Fprintf(cmd.OutOrStdout(), "# %s overridden by %s\n", key, env)
				}
			}
			return nil
		},
	})
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return usageError{fmt.Sprintf("%s already exists (use --force to overwrite)", path)}
			}
			if err := config.Save(config.Defaults()); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "crowdly "+version.String())
		},
	}
}
