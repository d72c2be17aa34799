package barcode

import (
	"fmt"
	"log/slog"
)

// NormalizeResult repairs the payload and canonicalizes the corner points
// of an engine result, then recomputes BBox.
//
// Data Matrix payloads go through RepairLatin1, everything else through
// RepairShiftJIS. Results with fewer than three points (1D symbols report a
// scan line) keep their points as reported. A degenerate polygon is reported
// as an error wrapping ErrInvalidGeometry; the returned Result still carries
// the repaired payload and the original points.
func NormalizeResult(r Result) (Result, error) {
	if r.Type == FormatDataMatrix {
		r.Value = RepairLatin1(r.Value)
	} else {
		r.Value = RepairShiftJIS([]byte(r.Value))
	}

	if len(r.Points) < 3 {
		if len(r.Points) > 0 {
			slog.Debug("Keeping reported points", "format", r.Type.String(), "points", len(r.Points))
		}
		r.BBox = r.Points.Bounds()
		return r, nil
	}

	poly, err := CanonicalizePolygon(r.Points)
	if err != nil {
		r.BBox = r.Points.Bounds()
		return r, fmt.Errorf("normalize %s result: %w", r.Type, err)
	}
	r.Points = poly
	r.BBox = poly.Bounds()
	return r, nil
}
