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
	"os"

	"github.com/cristalhq/acmd"
	"golang.org/x/net/html"

	"github.com/neokraft-labs/domsnap/pkg/snapshot"
)

func init() {
	commands = append(commands, acmd.Command{
		Name:        "assets",
		Description: "List the cacheable asset URLs a document references",
		ExecFunc:    runAssets,
	})
}

func runAssets(ctx context.Context, args []string) error {
	log := getLogger(ctx)

	var (
		baseURL  string
		asJSON   bool
	)

	fs := flag.NewFlagSet("assets", flag.ContinueOnError)
	// nolint: errcheck
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: assets [arguments...] FILE")
		fmt.Fprintln(fs.Output(), "  FILE")
		fmt.Fprintln(fs.Output(), "    \tHTML input file (\"-\" for stdin)")
		fs.PrintDefaults()
	}
	fs.StringVar(&baseURL, "base", "", "document base URL")
	fs.BoolVar(&asJSON, "json", false, "JSON output")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	doc, err := loadDocument(fs.Arg(0), baseURL)
	if err != nil {
		return err
	}

	seen := map[string]bool{}
	var refs []snapshot.AssetRef

	opts := snapshot.DefaultOptions()
	opts.IDGenerator = snapshot.NewIDGenerator()
	opts.OnAssetDetected = func(_ *html.Node, urls []string) {
		for _, u := range urls {
			if seen[u] {
				continue
			}
			seen[u] = true
			refs = append(refs, snapshot.AssetRef{URL: u, Name: snapshot.NameAsset(u)})
		}
	}
	opts.OnError = func(site string, err error) {
		log.Warn("degraded capture", "site", site, "error", err)
	}

	if _, err := snapshot.SnapshotAndWait(doc, opts); err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(refs)
	}
	for _, ref := range refs {
		fmt.Printf("%s\t%s\n", ref.Name, ref.URL)
	}
	return nil
}
