package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBatch = `[
  {"transaction_id": "T1", "customer_id": "C1", "product_id": "P1", "product_name": "Widget",
   "category": "Tools", "price": 10.00, "quantity": 2, "date": "2024-01-15", "region": "North"},
  {"transaction_id": "T2", "customer_id": null, "product_id": "P2", "product_name": "Gadget",
   "category": "Toys", "price": 5.50, "quantity": -1, "date": "15th of Jan", "region": "South"},
  {"transaction_id": "T3", "customer_id": "C3", "quantity": 1}
]`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestIngest_FileTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sales.json")
	dst := filepath.Join(dir, "cleaned.csv")
	require.NoError(t, os.WriteFile(src, []byte(sampleBatch), 0o644))

	out, err := execute(t, "ingest", "--source", src, "--target", "file", "--out", dst, "--report")
	require.NoError(t, err)

	assert.Contains(t, out, "3 total")
	assert.Contains(t, out, "2 loaded")
	assert.Contains(t, out, "1 skipped")
	assert.Contains(t, out, "Data quality issues found.")
	assert.Contains(t, out, "Regional sales (optimized)")
	assert.Contains(t, out, "2024-01")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(data), "T1")
	assert.Contains(t, string(data), "Unknown")
	assert.NotContains(t, string(data), "T3")
}

func TestReport_FileTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sales.json")
	dst := filepath.Join(dir, "cleaned.csv")
	require.NoError(t, os.WriteFile(src, []byte(sampleBatch), 0o644))

	_, err := execute(t, "ingest", "--source", src, "--target", "file", "--out", dst)
	require.NoError(t, err)

	out, err := execute(t, "report", "--target", "file", "--out", dst, "--variant", "basic")
	require.NoError(t, err)
	assert.Contains(t, out, "Regional sales (basic)")
	assert.Contains(t, out, "North")
	assert.Contains(t, out, "20.00")
	assert.Contains(t, out, "-5.50")
}

func TestIngest_MissingSource(t *testing.T) {
	_, err := execute(t, "ingest", "--target", "file", "--source", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source path is required")
}

func TestIngest_UnreadableSource(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "ingest",
		"--source", filepath.Join(dir, "missing.json"),
		"--target", "file",
		"--out", filepath.Join(dir, "out.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion failed")
}

func TestIngest_SQLTargetNeedsDSN(t *testing.T) {
	_, err := execute(t, "ingest", "--source", "sales.json", "--target", "sql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection string is required")
}

func TestIngest_BadVariant(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sales.json")
	require.NoError(t, os.WriteFile(src, []byte(sampleBatch), 0o644))

	_, err := execute(t, "ingest", "--source", src, "--target", "file",
		"--out", filepath.Join(dir, "out.csv"), "--variant", "fastest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown report variant")
}

func TestSchema_FileTargetRejected(t *testing.T) {
	_, err := execute(t, "schema", "--target", "file")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema to provision")
}

func TestUpload_RequiresFlags(t *testing.T) {
	_, err := execute(t, "upload")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReport_FileTargetRejectsBadThresholds(t *testing.T) {
	t.Setenv("SALES_MIN_PRICE", "abc")
	dst := filepath.Join(t.TempDir(), "cleaned.csv")
	require.NoError(t, os.WriteFile(dst, []byte("transaction_id\n"), 0o644))

	var err error
	require.NotPanics(t, func() {
		_, err = execute(t, "report", "--target", "file", "--out", dst)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid min_price")
}
