package humanize

import "fmt"

func Size(i int64) (float64, string) {
	switch {
	case i < 1024:
		return float64(i), "B"
	case i < 1024*1024:
		return float64(i) / 1024, "KB"
	case i < 1024*1024*1024:
		return float64(i) / (1024 * 1024), "MB"
	default:
		return float64(i) / (1024 * 1024 * 1024), "GB"
	}
}

// Bytes formats a byte count for log output, eg "1.50MB".
func Bytes(i int64) string {
	if i < 1024 {
		return fmt.Sprintf("%dB", i)
	}

	sz, unit := Size(i)

	return fmt.Sprintf("%.2f%s", sz, unit)
}
