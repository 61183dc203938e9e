package main

import (
	"fmt"
	"strings"
)

// formatIndexList renders sorted frame indices compactly: "1-3,7,10-12".
// An empty list renders as "none".
func formatIndexList(idx []int) string {
	if len(idx) == 0 {
		return "none"
	}
	var parts []string
	lo, hi := idx[0], idx[0]
	flush := func() {
		if lo == hi {
			parts = append(parts, fmt.Sprintf("%d", lo))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", lo, hi))
		}
	}
	for _, n := range idx[1:] {
		if n == hi+1 {
			hi = n
			continue
		}
		flush()
		lo, hi = n, n
	}
	flush()
	return strings.Join(parts, ",")
}
