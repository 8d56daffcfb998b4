package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/maauso/trimsilence/internal/audio"
	"github.com/maauso/trimsilence/internal/backend"
	"github.com/maauso/trimsilence/internal/batch"
)

// PrintReport prints the run summary followed by one line per failed file.
func PrintReport(w io.Writer, r *batch.Report) {
	title := "Trim complete"
	if r.DryRun {
		title = "Dry run complete"
	}
	fmt.Fprintln(w, TitleStyle.Render(title))

	printKV(w, "Run:", r.RunID)
	printKV(w, "Backend:", fmt.Sprintf("%s (%s)", r.Backend, r.Device))
	printKV(w, "Workers:", strconv.Itoa(r.Workers))
	printKV(w, "Files:", strconv.Itoa(r.Total))
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Succeeded:"), OKStyle.Render(strconv.Itoa(r.Succeeded)))
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Failed:"), failedStyle(r.Failed).Render(strconv.Itoa(r.Failed)))
	printKV(w, "Trimmed:", strconv.Itoa(r.Trimmed))
	printKV(w, "Kept silent:", strconv.Itoa(r.KeptSilent))
	printKV(w, "Kept too short:", strconv.Itoa(r.KeptTooShort))
	printKV(w, "Unchanged:", strconv.Itoa(r.Unchanged))
	printKV(w, "Removed:", fmt.Sprintf("%.2fs", r.SecondsRemoved))
	printKV(w, "Elapsed:", fmt.Sprintf("%.2fs (%.2f files/s)", r.ElapsedSeconds, r.Throughput))

	failed := r.FailedJobs()
	if len(failed) == 0 {
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, ErrorStyle.Render("Failed files:"))
	for _, j := range failed {
		fmt.Fprintf(w, "  %s %s\n", ValueStyle.Render(filepath.Base(j.Path)), j.Error)
	}
	fmt.Fprintln(w)
}

func failedStyle(n int) lipgloss.Style {
	if n > 0 {
		return ErrorStyle
	}
	return OKStyle
}

// PrintCheck prints the availability of external tools and the selected backend.
// It returns false when a required tool is missing.
func PrintCheck(w io.Writer, tools []audio.ToolStatus, sel backend.Selection) bool {
	fmt.Fprintln(w, TitleStyle.Render("Environment check"))

	ok := true
	for _, t := range tools {
		if !t.Found {
			ok = false
			fmt.Fprintf(w, "%s %s %s\n", KeyStyle.Render(t.Name+":"), ErrorStyle.Render("missing"), t.Err)
			continue
		}
		version := t.Version
		if version == "" {
			version = "unknown version"
		}
		fmt.Fprintf(w, "%s %s %s\n", KeyStyle.Render(t.Name+":"), OKStyle.Render(version), t.Path)
	}

	printKV(w, "Backend:", string(sel.Kind))
	printKV(w, "Device:", sel.Device)
	fmt.Fprintln(w)

	if !ok {
		fmt.Fprintln(w, WarnStyle.Render("Only PCM WAV files can be processed without ffmpeg."))
	}
	return ok
}
