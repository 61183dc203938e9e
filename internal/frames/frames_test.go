package frames

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewRange_Invalid(t *testing.T) {
	cases := []struct {
		name             string
		start, end, step int
	}{
		{"zero step", 1, 10, 0},
		{"negative step", 1, 10, -2},
		{"start past end", 10, 5, 1},
		{"zero start", 0, 5, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRange(tc.start, tc.end, tc.step)
			var ire *InvalidRangeError
			if !errors.As(err, &ire) {
				t.Fatalf("NewRange(%d,%d,%d) = %v, want InvalidRangeError",
					tc.start, tc.end, tc.step, err)
			}
		})
	}
}

func TestRange_Indices(t *testing.T) {
	cases := []struct {
		name             string
		start, end, step int
		want             []int
	}{
		{"unit step", 1, 3, 1, []int{1, 2, 3}},
		{"step lands on end", 2, 10, 4, []int{2, 6, 10}},
		{"step overshoots end", 1, 10, 4, []int{1, 5, 9}},
		{"single frame", 7, 7, 3, []int{7}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewRange(tc.start, tc.end, tc.step)
			if err != nil {
				t.Fatal(err)
			}
			got := r.Indices()
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Indices mismatch (-want +got):\n%s", diff)
			}
			if len(got) != r.Len() {
				t.Errorf("Len() = %d, want %d", r.Len(), len(got))
			}
			// Restartable: re-enumeration must agree.
			if diff := cmp.Diff(got, r.Indices()); diff != "" {
				t.Errorf("re-enumeration differs:\n%s", diff)
			}
		})
	}
}

func TestRange_IndicesMonotonic(t *testing.T) {
	r, _ := NewRange(3, 100, 7)
	idx := r.Indices()
	for i := 1; i < len(idx); i++ {
		if idx[i] <= idx[i-1] {
			t.Fatalf("sequence not strictly increasing at %d: %v", i, idx)
		}
	}
}

func TestSelect(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"1.mae", "2.mae", "3.mae", "5.mae", "notes.txt", "topo.mae"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	r, _ := NewRange(1, 5, 2)
	got, err := Select(dir, r)
	if err != nil {
		t.Fatal(err)
	}

	want := []Frame{
		{Index: 1, Path: filepath.Join(dir, "1.mae")},
		{Index: 3, Path: filepath.Join(dir, "3.mae")},
		{Index: 5, Path: filepath.Join(dir, "5.mae")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Select mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect_Empty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "900.mae"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, _ := NewRange(1, 10, 1)
	if _, err := Select(dir, r); err == nil {
		t.Error("expected error when no frames match the range")
	}
}
