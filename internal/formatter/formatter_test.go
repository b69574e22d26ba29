package formatter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/playcache/internal/cache"
	"github.com/desertthunder/playcache/internal/models"
	"github.com/desertthunder/playcache/internal/shared"
)

func snapshot(progress ...float64) models.ProgressSnapshot {
	snap := models.ProgressSnapshot{TotalItems: len(progress)}
	for i, p := range progress {
		u := models.DownloadProgress{Name: string(rune('a'+i)) + ".jpg", Progress: p, IsComplete: p >= 1}
		if u.IsComplete {
			snap.CompletedCount++
		}
		snap.Updates = append(snap.Updates, u)
	}
	return snap
}

func samplePasses() []*models.SyncPass {
	ok := models.NewSyncPass(2, "https://example.com/a.json", "./media_cache", shared.StrategyStream)
	ok.SetID("pass-2")
	ok.SetCounts(3, 1, 3)
	ok.Finish(models.PassSucceeded, nil)

	failed := models.NewSyncPass(1, "https://example.com/a.json", "./media_cache", shared.StrategyPoll)
	failed.SetID("pass-1")
	failed.SetCounts(3, 0, 1)
	failed.Finish(models.PassFailed, errors.New("download failed for b.mp4, \"HTTP 404\""))

	return []*models.SyncPass{ok, failed}
}

func TestProgress(t *testing.T) {
	t.Run("ActiveDownloads", func(t *testing.T) {
		snap := snapshot(0.9, 1, 0.1, 0.5, 0, 0.3, 0.7)

		shown, waiting := ActiveDownloads(snap, MaxActiveShown)
		if len(shown) != 4 || waiting != 2 {
			t.Fatalf("expected 4 shown and 2 waiting, got %d and %d", len(shown), waiting)
		}

		want := []float64{0, 0.1, 0.3, 0.5}
		for i, u := range shown {
			if u.Progress != want[i] {
				t.Errorf("position %d: expected %v, got %v", i, want[i], u.Progress)
			}
		}

		all, waiting := ActiveDownloads(snap, 0)
		if len(all) != 6 || waiting != 0 {
			t.Errorf("expected every active item without a limit, got %d and %d", len(all), waiting)
		}
	})

	t.Run("SnapshotToText", func(t *testing.T) {
		output := string(SnapshotToText(snapshot(1, 0.42, 0, 0.1, 0.2, 0.3)))

		if !strings.HasPrefix(output, "1 of 6 items downloaded\n") {
			t.Errorf("unexpected summary line: %s", output)
		}
		if !strings.Contains(output, "+1 more waiting...") {
			t.Errorf("expected waiting summary, got: %s", output)
		}
		if strings.Contains(output, "b.jpg") {
			t.Errorf("expected the most progressed item to be summarized, got: %s", output)
		}
		if !strings.Contains(output, "10%") {
			t.Errorf("expected percentages, got: %s", output)
		}
	})

	t.Run("ItemStatus", func(t *testing.T) {
		if got := ItemStatus(models.DownloadProgress{Progress: 1, IsComplete: true}); got != "Complete" {
			t.Errorf("expected Complete, got %s", got)
		}
		if got := ItemStatus(models.DownloadProgress{Progress: 0.256}); got != "25%" {
			t.Errorf("expected 25%%, got %s", got)
		}
	})
}

func TestStates(t *testing.T) {
	t.Run("Empty Success", func(t *testing.T) {
		if got := string(StateToText(models.SuccessState{})); got != "No media found\n" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("Success", func(t *testing.T) {
		items := []models.ResolvedMediaItem{
			models.NewResolvedMediaItem("/cache/a.jpg", models.Image),
			models.NewResolvedMediaItem("/cache/b.mp4", models.Video),
		}
		output := string(StateToText(models.SuccessState{Items: items}))

		for _, want := range []string{"Media ready: 2 items", "1. [IMAGE] a.jpg", "2. [VIDEO] b.mp4", "file:///cache/b.mp4"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output: %s", want, output)
			}
		}
	})

	t.Run("Error", func(t *testing.T) {
		output := string(StateToText(models.ErrorState{Err: shared.ErrTransfer}))
		if !strings.HasPrefix(output, "Error: ") || !strings.HasSuffix(output, "\n") {
			t.Errorf("unexpected output %q", output)
		}
	})

	t.Run("StateToJSON", func(t *testing.T) {
		data, err := StateToJSON(models.ProgressState{Snapshot: snapshot(1, 0.5)})
		if err != nil {
			t.Fatalf("StateToJSON failed: %v", err)
		}
		if !strings.HasSuffix(string(data), "\n") || strings.Count(string(data), "\n") != 1 {
			t.Errorf("expected a single JSON line, got %q", data)
		}

		var view models.StateView
		if err := json.Unmarshal(data, &view); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if view.Kind != models.StateProgress || view.Progress.CompletedCount != 1 {
			t.Errorf("unexpected view %+v", view)
		}
	})
}

func TestCacheReportToText(t *testing.T) {
	output := string(CacheReportToText([]cache.Resolution{
		{Item: models.RemoteMediaItem{Kind: models.Image}, Key: "a.jpg", Hit: true},
		{Item: models.RemoteMediaItem{Kind: models.Video}, Key: "b.mp4"},
	}))

	for _, want := range []string{"HIT  IMAGE  a.jpg", "MISS VIDEO  b.mp4", "1 of 2 items cached, 1 to download"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output: %s", want, output)
		}
	}
}

func TestPasses(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		output := string(PassesToText(samplePasses()))

		if !strings.Contains(output, "#2    succeeded") {
			t.Errorf("expected succeeded pass, got: %s", output)
		}
		if !strings.Contains(output, "3/3 items (1 cached)") {
			t.Errorf("expected counts, got: %s", output)
		}
		if !strings.Contains(output, "error: download failed for b.mp4") {
			t.Errorf("expected error line, got: %s", output)
		}

		if got := string(PassesToText(nil)); got != "No sync passes recorded\n" {
			t.Errorf("unexpected empty output %q", got)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := PassesToJSON(samplePasses())
		if err != nil {
			t.Fatalf("PassesToJSON failed: %v", err)
		}

		var views []PassView
		if err := json.Unmarshal(data, &views); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(views) != 2 || views[0].ID != "pass-2" || views[1].Status != "failed" {
			t.Errorf("unexpected views %+v", views)
		}
		if views[0].Error != "" || views[1].FinishedAt == nil {
			t.Errorf("unexpected optional fields %+v", views)
		}
	})

	t.Run("CSV", func(t *testing.T) {
		data, err := PassesToCSV(samplePasses())
		if err != nil {
			t.Fatalf("PassesToCSV failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "ID,Sequence,Status,Strategy,Manifest URL,Cache Dir,Total,Cached,Completed,Started At,Finished At,Error\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "pass-1,1,failed,poll,") {
			t.Errorf("CSV missing failed pass, got: %s", output)
		}
		if !strings.Contains(output, `"download failed for b.mp4, ""HTTP 404"""`) {
			t.Errorf("CSV should quote error messages, got: %s", output)
		}
	})

	t.Run("FormatPasses", func(t *testing.T) {
		for _, format := range []string{"", "text", "JSON", "csv"} {
			if _, err := FormatPasses(samplePasses(), format); err != nil {
				t.Errorf("format %q: unexpected error %v", format, err)
			}
		}

		if _, err := FormatPasses(nil, "yaml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}
