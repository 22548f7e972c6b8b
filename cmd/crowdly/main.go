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
	"errors"
	"fmt"
	"os"

	"github.com/leoloveisme/crowdly-sub001/internal/config"
	"github.com/leoloveisme/crowdly-sub001/internal/crash"
	"github.com/leoloveisme/crowdly-sub001/internal/errs"
	applog "github.com/leoloveisme/crowdly-sub001/internal/log"
)

func main() {
	// Env-only logging until the config file has been read.
	applog.Init(applog.FromEnv())
	code := run(os.Args[1:])
	_ = applog.Close()
	os.Exit(code)
}

func run(args []string) (code int) {
	reportDir, _ := config.Dir()
	defer crash.Recover(reportDir)
	cmd := newRootCommand()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return exitCode(err)
	}
	return 0
}

// exitCode maps an error to the process status. Rejected input (too large or
// unsupported) exits 3 so scripts can tell it apart from failed conversions.
func exitCode(err error) int {
	var ue usageError
	switch {
	case errors.As(err, &ue):
		return 4
	case errors.Is(err, errs.ErrSizeLimit), errors.Is(err, errs.ErrUnsupported):
		return 3
	default:
		return 1
	}
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }
