package detector

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectedComponents_Connectivity(t *testing.T) {
	mask, w, h := maskFromRows(
		"#..",
		".#.",
		"..#",
	)

	comps8, _ := connectedComponents(mask, w, h, true, true)
	require.Len(t, comps8, 1, "diagonal pixels join under 8-connectivity")
	assert.Equal(t, 3, comps8[0].count)

	comps4, labels := connectedComponents(mask, w, h, true, false)
	require.Len(t, comps4, 3, "diagonal pixels stay apart under 4-connectivity")
	assert.Equal(t, 1, labels[0])
	assert.Equal(t, 2, labels[4])
	assert.Equal(t, 3, labels[8])

	dark, _ := connectedComponents(mask, w, h, false, false)
	require.Len(t, dark, 2)
	assert.True(t, dark[0].border)
}

func TestConnectedComponents_Stats(t *testing.T) {
	mask, w, h := maskFromRows(
		".....",
		".###.",
		".#.#.",
		".###.",
		".....",
	)

	comps, _ := connectedComponents(mask, w, h, true, true)
	require.Len(t, comps, 1)
	st := comps[0]
	assert.Equal(t, 8, st.count)
	assert.Equal(t, 1, st.minX)
	assert.Equal(t, 3, st.maxX)
	assert.Equal(t, 1*w+1, st.seed)
	assert.False(t, st.border)

	dark, _ := connectedComponents(mask, w, h, false, false)
	require.Len(t, dark, 2, "outer frame and the enclosed pixel")
	assert.True(t, dark[0].border)
	assert.False(t, dark[1].border)
	assert.Equal(t, 2*w+2, dark[1].seed)
}

func traceOnly(t *testing.T, rows ...string) []image.Point {
	t.Helper()
	mask, w, h := maskFromRows(rows...)
	comps, labels := connectedComponents(mask, w, h, true, true)
	require.Len(t, comps, 1)
	return traceContourMoore(labels, w, h, 1, comps[0])
}

func TestTraceContourMoore_Square(t *testing.T) {
	pts := traceOnly(t,
		"......",
		".####.",
		".####.",
		".####.",
		"......",
	)
	assert.Equal(t, []image.Point{{1, 1}, {4, 1}, {4, 3}, {1, 3}}, pts)
}

func TestTraceContourMoore_SinglePixel(t *testing.T) {
	pts := traceOnly(t,
		"...",
		".#.",
		"...",
	)
	assert.Equal(t, []image.Point{{1, 1}}, pts)
}

func TestTraceContourMoore_Line(t *testing.T) {
	pts := traceOnly(t,
		".....",
		".###.",
		".....",
	)
	assert.ElementsMatch(t, []image.Point{{1, 1}, {3, 1}}, pts)
}

func TestTraceContourMoore_RingKeepsOuterBoundary(t *testing.T) {
	pts := traceOnly(t,
		".......",
		".#####.",
		".#...#.",
		".#...#.",
		".#####.",
		".......",
	)
	assert.Equal(t, []image.Point{{1, 1}, {5, 1}, {5, 4}, {1, 4}}, pts)
}

func TestTraceContourMoore_Diamond(t *testing.T) {
	pts := traceOnly(t,
		".......",
		"...#...",
		"..###..",
		".#####.",
		"..###..",
		"...#...",
		".......",
	)
	assert.ElementsMatch(t, []image.Point{{3, 1}, {5, 3}, {3, 5}, {1, 3}}, pts)
}

func TestTraceContourMoore_InvalidLabel(t *testing.T) {
	mask, w, h := maskFromRows("#")
	comps, labels := connectedComponents(mask, w, h, true, true)
	assert.Nil(t, traceContourMoore(labels, w, h, 0, comps[0]))
	assert.Nil(t, traceContourMoore(labels[:0], w, h, 1, comps[0]))
}
