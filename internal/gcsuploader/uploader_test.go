package gcsuploader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"sales.json":       "application/json",
		"batch.JSONL":      "application/x-ndjson",
		"batch.ndjson":     "application/x-ndjson",
		"2023/07/data.csv": "text/csv",
		"data.tsv":         "text/tab-separated-values",
		"README":           "application/octet-stream",
	}
	for name, want := range cases {
		assert.Equal(t, want, contentTypeFor(name), name)
	}
}
