package reader

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by FormatResults.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
	OutputCSV  = "csv"
)

// OutputFormats lists the accepted output formats.
var OutputFormats = []string{OutputText, OutputJSON, OutputYAML, OutputCSV}

// ValidOutputFormat reports whether name is an accepted output format.
func ValidOutputFormat(name string) bool {
	for _, f := range OutputFormats {
		if f == name {
			return true
		}
	}
	return false
}

// FormatResults renders results in the named output format.
func FormatResults(results []*ImageResult, format string) (string, error) {
	switch format {
	case OutputJSON:
		return formatJSON(results)
	case OutputYAML:
		return formatYAML(results)
	case OutputCSV:
		return formatCSV(results)
	case OutputText, "":
		return formatText(results), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want one of %s)", format, strings.Join(OutputFormats, ", "))
	}
}

type resultsDoc struct {
	Images []*ImageResult `json:"images" yaml:"images"`
}

func formatJSON(results []*ImageResult) (string, error) {
	bts, err := json.MarshalIndent(resultsDoc{Images: nonNil(results)}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bts) + "\n", nil
}

func formatYAML(results []*ImageResult) (string, error) {
	bts, err := yaml.Marshal(resultsDoc{Images: nonNil(results)})
	return string(bts), err
}

func formatCSV(results []*ImageResult) (string, error) {
	var output strings.Builder
	w := csv.NewWriter(&output)
	rows := [][]string{{"file", "index", "format", "value", "x", "y", "width", "height", "region"}}
	for _, res := range nonNil(results) {
		for i, s := range res.Symbols {
			rows = append(rows, []string{
				res.File,
				strconv.Itoa(i),
				s.Type.String(),
				s.Value,
				strconv.Itoa(s.BBox.Min.X),
				strconv.Itoa(s.BBox.Min.Y),
				strconv.Itoa(s.BBox.Dx()),
				strconv.Itoa(s.BBox.Dy()),
				strconv.Itoa(s.Region),
			})
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return output.String(), nil
}

func formatText(results []*ImageResult) string {
	var output strings.Builder
	for i, res := range nonNil(results) {
		if i > 0 {
			output.WriteString("\n")
		}
		if res.File != "" {
			fmt.Fprintf(&output, "# %s\n", res.File)
		}
		if len(res.Symbols) == 0 {
			output.WriteString("no barcodes found\n")
			continue
		}
		for _, s := range res.Symbols {
			fmt.Fprintf(&output, "%s\t%s\t%d,%d %dx%d\n",
				s.Type, s.Value, s.BBox.Min.X, s.BBox.Min.Y, s.BBox.Dx(), s.BBox.Dy())
		}
	}
	return output.String()
}

func nonNil(results []*ImageResult) []*ImageResult {
	out := make([]*ImageResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
