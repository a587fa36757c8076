package main

import (
	"fmt"
	"io"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/starford/granola-sync/internal/reconcile"
	"github.com/starford/granola-sync/internal/syncer"
)

// printReport writes one line per document and a summary. With patches set,
// each written or planned file is followed by a unified patch of its content.
func printReport(w io.Writer, rep *syncer.Report, patches bool) {
	if rep == nil || rep.Result == nil {
		return
	}
	for _, c := range rep.Changes {
		switch {
		case c.Err != nil:
			fmt.Fprintf(w, "%-9s %s (%s): %v\n", c.Action, c.Title, c.GranolaID, c.Err)
		case c.Path != "":
			fmt.Fprintf(w, "%-9s %s\n", c.Action, c.Path)
		default:
			fmt.Fprintf(w, "%-9s %s (%s)\n", c.Action, c.Title, c.GranolaID)
		}
		if patches && c.Action.Wrote() {
			fmt.Fprint(w, patch(c.Before, c.After))
		}
	}
	if d := rep.DailyNote; d != nil {
		fmt.Fprintf(w, "%-9s %s\n", "daily", d.Path)
		if patches {
			fmt.Fprint(w, patch(d.Before, d.After))
		}
	}

	verb := "synced"
	if rep.DryRun {
		verb = "would sync"
	}
	fmt.Fprintf(w, "%s %d: %d created, %d updated, %d unchanged, %d skipped, %d failed (%s)\n",
		verb, rep.SyncedCount(),
		rep.Count(reconcile.ActionCreated),
		rep.Count(reconcile.ActionUpdated)+rep.Count(reconcile.ActionPartial),
		rep.Count(reconcile.ActionUnchanged),
		rep.Count(reconcile.ActionSkipped),
		rep.Count(reconcile.ActionFailed),
		rep.Duration.Round(time.Millisecond))
}

// patch returns a line-based patch turning before into after.
func patch(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	return dmp.PatchToText(dmp.PatchMake(before, diffs))
}
