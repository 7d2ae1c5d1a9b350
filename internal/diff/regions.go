package diff

import "image"

// tilesToBoxes converts a marked-tile grid into a small set of pixel-space
// bounding boxes. Horizontally contiguous marked tiles in a row form a run;
// runs overlapping a box from the rows above are merged into it. The tile
// counts involved are small, so the quadratic merge is fine.
func tilesToBoxes(marked []bool, cols, rows, tile, w, h int) []image.Rectangle {
	var boxes []image.Rectangle

	for ty := 0; ty < rows; ty++ {
		tx := 0
		for tx < cols {
			if !marked[ty*cols+tx] {
				tx++
				continue
			}
			runStart := tx
			for tx < cols && marked[ty*cols+tx] {
				tx++
			}
			run := image.Rect(
				runStart*tile,
				ty*tile,
				minInt(tx*tile, w),
				minInt((ty+1)*tile, h),
			)

			merged := false
			for i, box := range boxes {
				// Adjacent counts as touching: grow by one tile before
				// testing overlap so diagonal neighbors join up.
				if box.Inset(-tile).Overlaps(run) {
					boxes[i] = box.Union(run)
					merged = true
					break
				}
			}
			if !merged {
				boxes = append(boxes, run)
			}
		}
	}

	// A merge can make two earlier boxes overlap; collapse until stable.
	for {
		collapsed := false
		for i := 0; i < len(boxes) && !collapsed; i++ {
			for j := i + 1; j < len(boxes); j++ {
				if boxes[i].Inset(-tile).Overlaps(boxes[j]) {
					boxes[i] = boxes[i].Union(boxes[j])
					boxes = append(boxes[:j], boxes[j+1:]...)
					collapsed = true
					break
				}
			}
		}
		if !collapsed {
			return boxes
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
