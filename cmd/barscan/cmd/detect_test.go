package cmd

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/testutil"
)

func TestDetectCommand_JSON(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	img := writeSquareImage(t, dir, "square.png")

	out, _, err := executeCommand(t, "detect", img, "--format", "json")
	require.NoError(t, err)

	var doc detectionsDoc
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Images, 1)
	assert.Equal(t, img, doc.Images[0].File)
	assert.Equal(t, 400, doc.Images[0].Width)
	assert.Equal(t, 300, doc.Images[0].Height)
	assert.NotEmpty(t, doc.Images[0].Regions)
}

func TestDetectCommand_MinAreaFiltersRegions(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	img := writeSquareImage(t, dir, "square.png")

	out, _, err := executeCommand(t, "detect", img, "--min-area", "1e9")
	require.NoError(t, err)
	assert.Contains(t, out, "# "+img+" (400x300)")
	assert.Contains(t, out, "no regions found")
}

func TestDetectCommand_DirectoryAndOverlay(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	writeSquareImage(t, dir, "a.png")
	writeSquareImage(t, dir, "b.png")
	overlays := filepath.Join(t.TempDir(), "overlays")

	out, _, err := executeCommand(t, "detect", dir, "--format", "csv", "--overlay-dir", overlays, "--overlay-color", "#00ff00")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "file,index,center_x,center_y,width,height,angle", lines[0])
	assert.Greater(t, len(lines), 2)
	assert.True(t, testutil.FileExists(filepath.Join(overlays, "a_overlay.png")))
	assert.True(t, testutil.FileExists(filepath.Join(overlays, "b_overlay.png")))
}

func TestDetectCommand_OutputFile(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	img := writeSquareImage(t, dir, "square.png")
	outFile := filepath.Join(dir, "regions.yaml")

	out, stderr, err := executeCommand(t, "detect", img, "-f", "yaml", "-o", outFile)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "Results written to "+outFile)
	assert.True(t, testutil.FileExists(outFile))
}

func TestDetectCommand_Errors(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	img := writeSquareImage(t, dir, "square.png")

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"no input", []string{"detect"}, "no input files"},
		{"missing file", []string{"detect", "/non/existent/file.png"}, "cannot access"},
		{"bad merge", []string{"detect", img, "--merge", "magic"}, "merge"},
		{"bad threshold", []string{"detect", img, "--threshold", "300"}, "threshold"},
		{"bad color", []string{"detect", img, "--overlay-color", "nope"}, "invalid color"},
		{"negative quiet distance", []string{"detect", img, "--quiet-distance=-1"}, "quiet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), tt.msg)
		})
	}
}

func TestDetectCommand_ContinueOnError(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	good := writeSquareImage(t, dir, "good.png")
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, writeFile(bad, "not an image"))

	_, _, err := executeCommand(t, "detect", good, bad)
	require.Error(t, err)

	out, stderr, err := executeCommand(t, "detect", good, bad, "--continue-on-error", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, good)
	assert.NotContains(t, out, bad)
	assert.Contains(t, stderr, "Failed: 1")
}

func TestDetectorOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, detectCmd.ParseFlags([]string{"--quiet-distance", "7", "--merge", "greedy", "--fast"}))
	t.Cleanup(func() { resetFlags(detectCmd) })

	opts, err := detectorOptions(detectCmd, &cfg)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, opts.QuietDistance, 1e-9)
	assert.Equal(t, detector.MergeGreedy, opts.Merge)
	assert.True(t, opts.Fast)
	assert.InDelta(t, cfg.Detector.MinArea, opts.MinArea, 1e-9)
}

func TestFormatDetections(t *testing.T) {
	results := []fileDetections{
		{File: "a.png", DetectionResultJSON: detector.DetectionResultJSON{
			Width: 10, Height: 10,
			Regions: []detector.RegionJSON{{CenterX: 5, CenterY: 5.5, Width: 4, Height: 2, Angle: -12.25}},
		}},
		{File: "b.png", DetectionResultJSON: detector.DetectionResultJSON{Width: 8, Height: 6}},
	}

	text, err := formatDetections(results, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "# a.png (10x10)\n0\tcenter=5,5.5\tsize=4x2\tangle=-12.25\n")
	assert.Contains(t, text, "# b.png (8x6)\nno regions found\n")

	csvOut, err := formatDetections(results, "csv")
	require.NoError(t, err)
	assert.Contains(t, csvOut, "a.png,0,5,5.5,4,2,-12.25")

	yamlOut, err := formatDetections(results, "yaml")
	require.NoError(t, err)
	assert.Contains(t, yamlOut, "file: a.png")
	assert.Contains(t, yamlOut, "center_y: 5.5")

	_, err = formatDetections(results, "xml")
	assert.Error(t, err)
}
