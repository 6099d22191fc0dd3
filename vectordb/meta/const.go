package meta

import (
	"strconv"
	"strings"
)

const (
	Filename       = "filename"
	Category       = "category"
	ChunkIndex     = "chunkIndex"
	EmbeddingModel = "embeddingModel"
	Checksum       = "checksum"
	DocumentKey    = "documentKey"
)

// GetString returns metadata[key] as a string.
func GetString(metadata map[string]any, key string) string {
	if value, ok := metadata[key]; ok {
		text, _ := value.(string)
		return text
	}
	return ""
}

// GetInt returns metadata[key] as an int, accepting the numeric shapes JSON and binary codecs produce.
func GetInt(metadata map[string]any, key string) int {
	switch v := metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	default:
		return 0
	}
}
