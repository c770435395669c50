package config

const (
	minChunkSize     = 50
	maxChunkSize     = 5000
	defaultChunkSize = 1000
)

// NormalizeChunkSize clamps a requested chunk size into the supported range.
// Zero or negative falls back to the default.
func NormalizeChunkSize(requested int) int {
	if requested <= 0 {
		return defaultChunkSize
	}
	if requested < minChunkSize {
		return minChunkSize
	}
	if requested > maxChunkSize {
		return maxChunkSize
	}
	return requested
}
