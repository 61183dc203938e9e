package organize

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEnsure_Idempotent(t *testing.T) {
	l := NewLayout(t.TempDir())
	for i := 0; i < 2; i++ {
		if err := l.Ensure(); err != nil {
			t.Fatalf("Ensure (pass %d): %v", i+1, err)
		}
	}
	for _, dir := range []string{l.AnalysisDir(), l.ProcessedDir(), l.HypothesisDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("%s not a directory after Ensure: %v", dir, err)
		}
	}
}

func TestFrameDir_Disjoint(t *testing.T) {
	l := NewLayout("work")
	if l.FrameDir(1) == l.FrameDir(2) {
		t.Error("frames share a directory")
	}
	want := filepath.Join("work", "DYNOPHORE_ANALYSIS", "PROCESSED_FILES", "12")
	if got := l.FrameDir(12); got != want {
		t.Errorf("FrameDir(12) = %s, want %s", got, want)
	}
}

func stageFrame(t *testing.T, l Layout, frame int, files map[string]string) {
	t.Helper()
	dir, err := l.EnsureFrame(frame)
	if err != nil {
		t.Fatal(err)
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestCollect_IdempotentAndSelective(t *testing.T) {
	l := NewLayout(t.TempDir())
	if err := l.Ensure(); err != nil {
		t.Fatal(err)
	}
	stageFrame(t, l, 3, map[string]string{
		"3_hypo.phypo":    "hypothesis",
		"3_prepared.mae":  "structure",
		"3_grid.zip":      "grid",
		"protonate.log.gz": "log",
	})

	for pass := 1; pass <= 2; pass++ {
		n, err := l.Collect(3)
		if err != nil {
			t.Fatalf("Collect pass %d: %v", pass, err)
		}
		if n != 1 {
			t.Fatalf("Collect pass %d filed %d files, want 1", pass, n)
		}
	}

	got := listDir(t, l.HypothesisDir())
	if diff := cmp.Diff([]string{"3_hypo.phypo"}, got); diff != "" {
		t.Errorf("hypothesis dir mismatch (-want +got):\n%s", diff)
	}
	body, err := os.ReadFile(filepath.Join(l.HypothesisDir(), "3_hypo.phypo"))
	if err != nil || string(body) != "hypothesis" {
		t.Errorf("filed hypothesis corrupted: %q, %v", body, err)
	}
}

func TestCollectAll(t *testing.T) {
	l := NewLayout(t.TempDir())
	if err := l.Ensure(); err != nil {
		t.Fatal(err)
	}
	stageFrame(t, l, 1, map[string]string{"1_hypo.phypo": "a"})
	stageFrame(t, l, 2, map[string]string{"2_prepared.mae": "no hypothesis here"})
	stageFrame(t, l, 5, map[string]string{"5_hypo.phypo": "b"})

	n, err := l.CollectAll()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CollectAll filed %d, want 2", n)
	}
	got := listDir(t, l.HypothesisDir())
	if diff := cmp.Diff([]string{"1_hypo.phypo", "5_hypo.phypo"}, got); diff != "" {
		t.Errorf("hypothesis dir mismatch (-want +got):\n%s", diff)
	}
}

func TestCollect_MissingFrameDir(t *testing.T) {
	l := NewLayout(t.TempDir())
	if err := l.Ensure(); err != nil {
		t.Fatal(err)
	}
	_, err := l.Collect(99)
	var oe *OrganizationError
	if !errors.As(err, &oe) {
		t.Fatalf("err = %v, want OrganizationError", err)
	}
	if oe.Frame != 99 {
		t.Errorf("error frame = %d, want 99", oe.Frame)
	}
}
