package detector

import "github.com/MeKo-Tech/barscan/internal/mempool"

// compStats represents statistics for a connected component.
type compStats struct {
	count int
	minX  int
	minY  int
	maxX  int
	maxY  int
	// seed is the first pixel of the component in raster order.
	seed   int
	border bool
}

var (
	neighbors4 = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	neighbors8 = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
)

// connectedComponents labels the pixels whose mask value equals value.
// Labels start at 1; 0 marks pixels of the other value. eight selects
// 8-connectivity, otherwise 4-connectivity is used. Components are numbered
// in raster order of their seed pixel. The label map comes from mempool.
func connectedComponents(mask []bool, w, h int, value, eight bool) ([]compStats, []int) {
	labels := mempool.GetInt(w * h)
	dirs := neighbors4
	if eight {
		dirs = neighbors8
	}
	var comps []compStats
	queue := make([]int, 0, 64)
	label := 1

	for y := range h {
		for x := range w {
			idx := y*w + x
			if mask[idx] != value || labels[idx] != 0 {
				continue
			}
			st := compStats{minX: x, minY: y, maxX: x, maxY: y, seed: idx}
			labels[idx] = label
			queue = append(queue[:0], idx)
			for len(queue) > 0 {
				ci := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				cx, cy := ci%w, ci/w
				updateComponentStats(&st, cx, cy, w, h)
				for _, d := range dirs {
					nx, ny := cx+d[0], cy+d[1]
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					ni := ny*w + nx
					if mask[ni] == value && labels[ni] == 0 {
						labels[ni] = label
						queue = append(queue, ni)
					}
				}
			}
			comps = append(comps, st)
			label++
		}
	}
	return comps, labels
}

// updateComponentStats updates the component statistics with a new pixel.
func updateComponentStats(st *compStats, cx, cy, w, h int) {
	st.count++
	if cx < st.minX {
		st.minX = cx
	}
	if cy < st.minY {
		st.minY = cy
	}
	if cx > st.maxX {
		st.maxX = cx
	}
	if cy > st.maxY {
		st.maxY = cy
	}
	if cx == 0 || cy == 0 || cx == w-1 || cy == h-1 {
		st.border = true
	}
}
