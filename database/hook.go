/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

// QueryHook logs every query through Logger: statements at trace, slow
// statements at warn and failures at error. Missing rows and finished
// transactions are not failures.
type QueryHook struct {
	logger   Logger
	slowTime time.Duration
	verbose  bool
	envName  string
}

var _ bun.QueryHook = (*QueryHook)(nil)

// NewQueryHook returns a hook logging to logger. A zero slowTime disables
// slow query reports. Setting BUNDEBUG=2 forces verbose output.
func NewQueryHook(logger Logger, slowTime time.Duration, verbose bool) *QueryHook {
	if logger == nil {
		logger = GetLogger()
	}
	return &QueryHook{logger: logger, slowTime: slowTime, verbose: verbose, envName: "BUNDEBUG"}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	dur := time.Since(event.StartTime).Round(time.Microsecond)
	op := event.Operation()

	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) && !errors.Is(event.Err, sql.ErrTxDone) {
		h.logger.Error("Query failed", "operation", op, "duration", dur,
			"query", operationColor(op).Sprint(event.Query), "error", event.Err)
		return
	}
	if h.slowTime > 0 && dur > h.slowTime {
		h.logger.Warn("Slow query", "operation", op, "duration", dur,
			"query", color.New(color.BgYellow).Sprint(event.Query))
		return
	}
	verbose := h.verbose
	if env, ok := os.LookupEnv(h.envName); ok {
		verbose = env == "2"
	}
	if verbose {
		h.logger.Trace("Query", "operation", op, "duration", dur, "query", operationColor(op).Sprint(event.Query))
	}
}

func operationColor(operation string) *color.Color {
	switch operation {
	case "SELECT":
		return color.New(color.FgGreen)
	case "INSERT":
		return color.New(color.FgBlue)
	case "UPDATE":
		return color.New(color.FgYellow)
	case "DELETE":
		return color.New(color.FgMagenta)
	default:
		return color.New(color.FgRed)
	}
}
