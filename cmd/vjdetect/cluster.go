package main

import (
	vj "github.com/esimov/vjcascade/core"
	"github.com/esimov/vjcascade/utils"
)

// iou returns the intersection over union of two detections.
func iou(a, b vj.Detection) float64 {
	x1, y1 := utils.Max(a.Col, b.Col), utils.Max(a.Row, b.Row)
	x2, y2 := utils.Min(a.Col+a.Size, b.Col+b.Size), utils.Min(a.Row+a.Size, b.Row+b.Size)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	inter := float64((x2 - x1) * (y2 - y1))
	union := float64(a.Size*a.Size+b.Size*b.Size) - inter
	return inter / union
}

// clusterDetections groups the detections overlapping over the IoU threshold
// and replaces every group with its averaged rectangle.
func clusterDetections(dets []vj.Detection, threshold float64) []vj.Detection {
	assigned := make([]bool, len(dets))
	var clusters []vj.Detection

	for i := range dets {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		col, row, size, n := dets[i].Col, dets[i].Row, dets[i].Size, 1

		for j := i + 1; j < len(dets); j++ {
			if assigned[j] || iou(dets[i], dets[j]) <= threshold {
				continue
			}
			assigned[j] = true
			col += dets[j].Col
			row += dets[j].Row
			size += dets[j].Size
			n++
		}
		clusters = append(clusters, vj.Detection{Col: col / n, Row: row / n, Size: size / n})
	}
	return clusters
}
