package facematch

// ConvertPixelBBoxToRelative converts pixel bbox to relative (0-1) coordinates.
// Input bbox is [x1, y1, x2, y2] in pixels, output is [x1, y1, x2, y2] in relative coords.
func ConvertPixelBBoxToRelative(bbox []float64, width, height int) []float64 {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return bbox
	}
	return []float64{
		bbox[0] / float64(width),
		bbox[1] / float64(height),
		bbox[2] / float64(width),
		bbox[3] / float64(height),
	}
}

// ScaleBBox maps a pixel bbox detected on a srcW x srcH frame onto a dstW x dstH frame.
// Used when the overlay is drawn on a resized copy of the frame.
func ScaleBBox(bbox []float64, srcW, srcH, dstW, dstH int) []float64 {
	rel := ConvertPixelBBoxToRelative(bbox, srcW, srcH)
	if len(rel) != 4 || srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return bbox
	}
	return []float64{
		rel[0] * float64(dstW),
		rel[1] * float64(dstH),
		rel[2] * float64(dstW),
		rel[3] * float64(dstH),
	}
}

// ClampBBox clips a pixel bbox to the frame bounds.
func ClampBBox(bbox []float64, width, height int) []float64 {
	if len(bbox) != 4 {
		return bbox
	}
	clamp := func(v, hi float64) float64 {
		return min(max(v, 0), hi)
	}
	w, h := float64(width), float64(height)
	return []float64{
		clamp(bbox[0], w),
		clamp(bbox[1], h),
		clamp(bbox[2], w),
		clamp(bbox[3], h),
	}
}
