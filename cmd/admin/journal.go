package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hecstore.ai/internal/persistence/journal"
)

func journalCmd(args []string) {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	file := fs.String("file", "", "single journal file (default: every file under <data>/journal)")
	kind := fs.String("kind", "", "entry kind filter (pay|order|price|stock|node|prune)")
	actor := fs.String("actor", "", "actor uuid filter")
	_ = fs.Parse(args)

	files := []string{strings.TrimSpace(*file)}
	if files[0] == "" {
		var err error
		files, err = journal.Files(filepath.Join(*dataDir, "journal"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "list:", err)
			os.Exit(1)
		}
	}
	n := 0
	for _, f := range files {
		entries, err := journal.ReadFile(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", f, err)
			os.Exit(1)
		}
		for _, e := range entries {
			if !matchEntry(e, *kind, *actor) {
				continue
			}
			printJSON(e)
			n++
		}
	}
	fmt.Fprintf(os.Stderr, "%d entries in %d files\n", n, len(files))
}

func matchEntry(e journal.Entry, kind, actor string) bool {
	if kind != "" && e.Kind != kind {
		return false
	}
	if actor != "" && e.Actor != actor && e.Counterparty != actor {
		return false
	}
	return true
}
