// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"grimm.is/scanwall/internal/procnet"
	"grimm.is/scanwall/internal/render"
)

type recordView struct {
	Local     string `json:"local"`
	Peer      string `json:"peer"`
	Direction string `json:"direction"`
}

// RunDecode reads one snapshot from path and prints the decoded
// established connections, either as console lines or as JSON.
func RunDecode(ctx context.Context, path string, w io.Writer, asJSON bool) error {
	if path == "" {
		path = procnet.DefaultPath
	}
	lines, err := procnet.NewFileSource(path).ReadSnapshot(ctx)
	if err != nil {
		return err
	}
	records, err := procnet.Decode(lines, nil)
	if err != nil {
		return err
	}

	if asJSON {
		views := make([]recordView, 0, len(records))
		for _, r := range records {
			views = append(views, recordView{
				Local:     r.Local.String(),
				Peer:      r.Peer.String(),
				Direction: r.Direction.String(),
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}

	console := render.NewConsole(w, render.ColorEnabled(w))
	if len(records) == 0 {
		console.Empty()
		return nil
	}
	now := time.Now()
	for _, r := range records {
		console.Connection(now, r)
	}
	Printer.Fprintf(w, "%d established connection(s)\n", len(records))
	return nil
}
