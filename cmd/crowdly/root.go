/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/leoloveisme/crowdly-sub001/internal/config"
	"github.com/leoloveisme/crowdly-sub001/internal/interchange"
	applog "github.com/leoloveisme/crowdly-sub001/internal/log"
	"github.com/leoloveisme/crowdly-sub001/internal/storage"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     config.AppConfig
	configErr  error
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "crowdly",
		Short:         "Convert documents between PDF, DOCX, EPUB, ODT, FDX, Fountain and canonical markup",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newFormatsCommand())
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

// ensureConfig loads the configuration once and re-initializes logging from it.
func (c *commandContext) ensureConfig() (config.AppConfig, error) {
	c.configOnce.Do(func() {
		if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
			if err := os.Setenv(config.EnvConfigFile, strings.TrimSpace(*c.configFlag)); err != nil {
				c.configErr = err
				return
			}
		}
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		fromFile := applog.Options{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			AddSource: cfg.Logging.Source,
			File:      cfg.Logging.File,
		}
		applog.Init(applog.Overlay(fromFile, applog.FromEnv()))
	})
	return c.config, c.configErr
}

// engine builds a conversion engine. The returned close func releases the
// journal when one is enabled.
func (c *commandContext) engine(ctx context.Context) (*interchange.Engine, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	eng := interchange.New(cfg)
	if !cfg.Journal.Enabled {
		return eng, func() {}, nil
	}
	j, err := c.openJournal(ctx)
	if err != nil {
		// History is optional; conversions still run.
		applog.WithComponent("cli").Warn("journal unavailable", slog.Any("err", err))
		return eng, func() {}, nil
	}
	eng.Journal = j
	return eng, func() { _ = j.Close() }, nil
}

func (c *commandContext) openJournal(ctx context.Context) (*storage.Journal, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	path, err := cfg.JournalPath()
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, path)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
