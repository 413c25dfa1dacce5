// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package app holds the domsnap command line commands.
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/cristalhq/acmd"

	"github.com/neokraft-labs/domsnap/pkg/ctxr"
)

var commands []acmd.Command

type ctxKeyLogger struct{}

var ctxLogger, getLogger = ctxr.WithGetter[*slog.Logger](ctxKeyLogger{})

// logLevel is the logger's level; the snap command's -verbose flag lowers it.
var logLevel = new(slog.LevelVar)

// Run executes the command line tool.
func Run(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := setupLogger(logLevel)
	ctx = ctxLogger(ctx, logger)

	r := acmd.RunnerOf(commands, acmd.Config{
		AppName:        "domsnap",
		AppDescription: "DOM snapshot serializer",
		Version:        version,
		Context:        ctx,
	})
	if err := r.Run(); err != nil {
		logger.Error("command failed", "error", err)
		return err
	}
	return nil
}
