package metrics

import (
	"image"
	"sort"
)

// OverlapRatio is the share of the smaller box that must be covered for two
// detections to count as the same face.
const OverlapRatio = 0.3

// SuppressOverlaps keeps the largest box of every overlapping group.
// Input order only matters for boxes of equal area.
func SuppressOverlaps(boxes []image.Rectangle) []image.Rectangle {
	if len(boxes) < 2 {
		return boxes
	}

	sorted := make([]image.Rectangle, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return area(sorted[i]) > area(sorted[j])
	})

	kept := make([]image.Rectangle, 0, len(sorted))
	for _, box := range sorted {
		duplicate := false
		for _, k := range kept {
			if overlaps(box, k) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, box)
		}
	}
	return kept
}

func overlaps(a, b image.Rectangle) bool {
	inter := a.Intersect(b)
	if inter.Empty() {
		return false
	}
	smaller := min(area(a), area(b))
	if smaller == 0 {
		return false
	}
	return float64(area(inter)) >= OverlapRatio*float64(smaller)
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
