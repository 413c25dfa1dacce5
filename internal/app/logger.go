// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package app

import (
	"log/slog"
	"os"

	console "github.com/phsym/console-slog"
)

// setupLogger installs a console handler on stderr as the process default.
// The level is a LevelVar so a command's -verbose flag can lower it after
// flag parsing, without rebuilding the handler.
func setupLogger(level *slog.LevelVar) *slog.Logger {
	logger := slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
	slog.SetDefault(logger)
	return logger
}
