// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/cristalhq/acmd"

	"github.com/neokraft-labs/domsnap/pkg/livedom"
	"github.com/neokraft-labs/domsnap/pkg/snapshot"
)

func init() {
	commands = append(commands, acmd.Command{
		Name:        "snap",
		Description: "Serialize an HTML document to a replay-ready JSON tree",
		ExecFunc:    runSnap,
	})
}

func runSnap(ctx context.Context, args []string) error {
	log := getLogger(ctx)

	var (
		baseURL    string
		blockClass string
		maskClass  string
		slim       string
		maskAll    bool
		pretty     bool
		verbose    bool
	)

	fs := flag.NewFlagSet("snap", flag.ContinueOnError)
	// nolint: errcheck
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: snap [arguments...] FILE")
		fmt.Fprintln(fs.Output(), "  FILE")
		fmt.Fprintln(fs.Output(), "    \tHTML input file (\"-\" for stdin)")
		fs.PrintDefaults()
	}
	fs.StringVar(&baseURL, "base", "", "document base URL")
	fs.StringVar(&blockClass, "block-class", "rr-block", "class name marking blocked elements")
	fs.StringVar(&maskClass, "mask-class", "rr-mask", "class name marking masked text")
	fs.StringVar(&slim, "slim", "off", "slim-DOM filtering (off, on or all)")
	fs.BoolVar(&maskAll, "mask-all-inputs", false, "mask every form input value")
	fs.BoolVar(&pretty, "pretty", false, "indent JSON output")
	fs.BoolVar(&verbose, "verbose", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if verbose {
		logLevel.Set(slog.LevelDebug)
	}

	doc, err := loadDocument(fs.Arg(0), baseURL)
	if err != nil {
		return err
	}

	opts := snapshot.DefaultOptions()
	opts.IDGenerator = snapshot.NewIDGenerator()
	opts.BlockClass = snapshot.NewClassMatcher(blockClass)
	opts.MaskTextClass = snapshot.NewClassMatcher(maskClass)
	if maskAll {
		opts.WithMaskAllInputs()
	}
	switch slim {
	case "off":
	case "on":
		opts.WithSlimDOMDefault()
	case "all":
		opts.WithSlimDOMAll()
	default:
		return fmt.Errorf(`invalid -slim value %q (expected "off", "on" or "all")`, slim)
	}
	opts.OnError = func(site string, err error) {
		log.Warn("degraded capture", "site", site, "error", err)
	}

	sn, err := snapshot.SnapshotAndWait(doc, opts)
	if err != nil {
		return err
	}
	log.Debug("snapshot complete", "root_id", sn.ID)

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(sn)
}

// loadDocument parses src ("" or "-" meaning stdin) into a live document
// resolved against baseURL.
func loadDocument(src, baseURL string) (*livedom.Document, error) {
	var base *url.URL
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		base = u
	}

	if src == "" || src == "-" {
		return snapshot.ParseDocument(os.Stdin, base)
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close() // nolint:errcheck

	return snapshot.ParseDocument(f, base)
}
