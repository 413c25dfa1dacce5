// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// package main contains the domsnap command line tool.
package main

import (
	"os"

	"github.com/neokraft-labs/domsnap/internal/app"
)

var version = "dev"

func main() {
	if err := app.Run(version); err != nil {
		os.Exit(1)
	}
}
