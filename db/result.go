package db

import (
	"fmt"
	"io"

	"github.com/nickyhof/easyext/ps"
)

// ImportResult describes a completed import.
type ImportResult struct {
	Transaction      ps.Transaction
	Table            string
	RecordsWritten   int
	ExecutionTimeSec float64
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	switch {
	case secs < 0.001:
		return "<1ms"
	case secs < 1:
		return fmt.Sprintf("%dms", int(secs*1000))
	case secs < 10:
		return fmt.Sprintf("%.1fs", secs)
	case secs < 60:
		return fmt.Sprintf("%ds", int(secs))
	}

	mins := int(secs / 60)
	remainSecs := int(secs) % 60
	if remainSecs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, remainSecs)
}

func (result ImportResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

// throughput renders records per second, or "" when not measurable
func (result ImportResult) throughput() string {
	if result.ExecutionTimeSec <= 0 || result.RecordsWritten == 0 {
		return ""
	}

	ops := float64(result.RecordsWritten) / result.ExecutionTimeSec
	switch {
	case ops >= 1000000:
		return fmt.Sprintf(", %.1fM records/s", ops/1000000)
	case ops >= 1000:
		return fmt.Sprintf(", %.1fK records/s", ops/1000)
	default:
		return fmt.Sprintf(", %.0f records/s", ops)
	}
}

// Display writes a one line summary of the import.
func (result ImportResult) Display(w io.Writer) {
	if result.RecordsWritten == 0 {
		fmt.Fprintf(w, "OK, nothing to import into %s (%s)\n", result.Table, result.ExecutionTime())
		return
	}

	fmt.Fprintf(w, "%d record(s) written to %s (%s%s)\n", result.RecordsWritten, result.Table, result.ExecutionTime(), result.throughput())
	if result.Transaction.Id != "" {
		fmt.Fprintf(w, "commit %s\n", result.Transaction.Id)
	}
}
