package s3

import "fmt"

func rangeSpec(start, end int64) string {
	return fmt.Sprintf("bytes=%d-%d", start, end)
}
