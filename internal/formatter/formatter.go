// package formatter renders sync states, cache reports and pass history as text, JSON or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/playcache/internal/cache"
	"github.com/desertthunder/playcache/internal/models"
	"github.com/desertthunder/playcache/internal/shared"
)

// MaxActiveShown is how many in-flight downloads a progress view lists before summarizing the rest.
const MaxActiveShown = 4

// Output formats accepted by [FormatPasses].
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ActiveDownloads returns at most limit incomplete items, least progressed first, plus how many
// more are waiting.
func ActiveDownloads(snap models.ProgressSnapshot, limit int) ([]models.DownloadProgress, int) {
	active := snap.Active()
	if limit <= 0 || len(active) <= limit {
		return active, 0
	}
	return active[:limit], len(active) - limit
}

// ProgressLine summarizes a snapshot, e.g. "3 of 5 items downloaded".
func ProgressLine(snap models.ProgressSnapshot) string {
	return fmt.Sprintf("%d of %d items downloaded", snap.CompletedCount, snap.TotalItems)
}

// ItemStatus renders one tracker as "Complete" or a whole percentage.
func ItemStatus(u models.DownloadProgress) string {
	if u.IsComplete {
		return "Complete"
	}
	return fmt.Sprintf("%d%%", shared.Percent(u.Progress))
}

// SnapshotToText renders a progress snapshot with its active downloads.
func SnapshotToText(snap models.ProgressSnapshot) []byte {
	var buf bytes.Buffer

	buf.WriteString(ProgressLine(snap))
	buf.WriteString("\n")

	shown, waiting := ActiveDownloads(snap, MaxActiveShown)
	for _, u := range shown {
		fmt.Fprintf(&buf, "  %-40s %s\n", u.Name, ItemStatus(u))
	}
	if waiting > 0 {
		fmt.Fprintf(&buf, "  +%d more waiting...\n", waiting)
	}

	return buf.Bytes()
}

// ItemsToText renders the resolved media list, or "No media found" when it is empty.
func ItemsToText(items []models.ResolvedMediaItem) []byte {
	if len(items) == 0 {
		return []byte("No media found\n")
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Media ready: %d items\n\n", len(items))
	for i, item := range items {
		fmt.Fprintf(&buf, "%d. [%s] %s\n   %s\n", i+1, item.Kind, item.Name, item.URI)
	}
	return buf.Bytes()
}

// StateToText renders any sync state.
func StateToText(state models.SyncState) []byte {
	switch s := state.(type) {
	case models.ProgressState:
		return SnapshotToText(s.Snapshot)
	case models.SuccessState:
		return ItemsToText(s.Items)
	case models.ErrorState:
		return []byte(fmt.Sprintf("Error: %v\n", s.Err))
	default:
		return nil
	}
}

// StateToJSON renders a sync state as a single line of JSON.
func StateToJSON(state models.SyncState) ([]byte, error) {
	data, err := shared.MarshalJSON(models.Describe(state), false)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// CacheReportToText renders hit/miss status for every manifest item.
func CacheReportToText(resolutions []cache.Resolution) []byte {
	var buf bytes.Buffer
	hits := 0
	for _, res := range resolutions {
		status := "MISS"
		if res.Hit {
			status = "HIT "
			hits++
		}
		fmt.Fprintf(&buf, "%s %-6s %s\n", status, res.Item.Kind, res.Key)
	}
	fmt.Fprintf(&buf, "\n%d of %d items cached, %d to download\n", hits, len(resolutions), len(resolutions)-hits)
	return buf.Bytes()
}

// PassView is the exported shape of a [models.SyncPass].
type PassView struct {
	ID             string     `json:"id"`
	Sequence       int        `json:"sequence"`
	ManifestURL    string     `json:"manifest_url"`
	CacheDir       string     `json:"cache_dir"`
	Strategy       string     `json:"strategy"`
	Status         string     `json:"status"`
	ItemsTotal     int        `json:"items_total"`
	ItemsCached    int        `json:"items_cached"`
	ItemsCompleted int        `json:"items_completed"`
	Error          string     `json:"error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// NewPassView copies the fields of p.
func NewPassView(p *models.SyncPass) PassView {
	return PassView{
		ID:             p.ID(),
		Sequence:       p.Sequence(),
		ManifestURL:    p.ManifestURL(),
		CacheDir:       p.CacheDir(),
		Strategy:       p.Strategy(),
		Status:         string(p.Status()),
		ItemsTotal:     p.ItemsTotal(),
		ItemsCached:    p.ItemsCached(),
		ItemsCompleted: p.ItemsCompleted(),
		Error:          p.ErrorMessage(),
		StartedAt:      p.StartedAt(),
		FinishedAt:     p.FinishedAt(),
	}
}

// PassesToText renders pass history, one pass per line.
func PassesToText(passes []*models.SyncPass) []byte {
	if len(passes) == 0 {
		return []byte("No sync passes recorded\n")
	}

	var buf bytes.Buffer
	for _, p := range passes {
		fmt.Fprintf(&buf, "#%-4d %-10s %s  %d/%d items (%d cached)  %s  %s\n",
			p.Sequence(),
			p.Status(),
			p.StartedAt().Format(time.DateTime),
			p.ItemsCompleted(),
			p.ItemsTotal(),
			p.ItemsCached(),
			p.Duration().Round(time.Millisecond),
			p.ManifestURL(),
		)
		if msg := p.ErrorMessage(); msg != "" {
			fmt.Fprintf(&buf, "      error: %s\n", msg)
		}
	}
	return buf.Bytes()
}

// PassesToJSON renders pass history as an indented JSON array.
func PassesToJSON(passes []*models.SyncPass) ([]byte, error) {
	views := make([]PassView, len(passes))
	for i, p := range passes {
		views[i] = NewPassView(p)
	}
	return shared.MarshalJSON(views, true)
}

// PassesToCSV renders pass history with a header row.
func PassesToCSV(passes []*models.SyncPass) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Sequence", "Status", "Strategy", "Manifest URL", "Cache Dir", "Total", "Cached", "Completed", "Started At", "Finished At", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range passes {
		finished := ""
		if f := p.FinishedAt(); f != nil {
			finished = f.Format(time.RFC3339)
		}
		record := []string{
			p.ID(),
			strconv.Itoa(p.Sequence()),
			string(p.Status()),
			p.Strategy(),
			p.ManifestURL(),
			p.CacheDir(),
			strconv.Itoa(p.ItemsTotal()),
			strconv.Itoa(p.ItemsCached()),
			strconv.Itoa(p.ItemsCompleted()),
			p.StartedAt().Format(time.RFC3339),
			finished,
			p.ErrorMessage(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// FormatPasses renders pass history in the named format.
func FormatPasses(passes []*models.SyncPass, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return PassesToText(passes), nil
	case FormatJSON:
		return PassesToJSON(passes)
	case FormatCSV:
		return PassesToCSV(passes)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want text, json or csv)", shared.ErrInvalidFlag, format)
	}
}
