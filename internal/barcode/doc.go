// Package barcode is the boundary between barscan and the decoding engines.
//
// It defines the engine neutral Result model and normalizes what engines
// report: CanonicalizePolygon turns corner points into a clockwise polygon
// that starts at the symbol's top-left corner, and RepairShiftJIS and
// RepairLatin1 undo payload charset misdetection. The default Backend is
// built on gozxing.
package barcode
