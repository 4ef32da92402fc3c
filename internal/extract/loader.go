package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/dvloznov/sales-pipeline/internal/domain"
	"github.com/dvloznov/sales-pipeline/internal/gcs"
	"github.com/dvloznov/sales-pipeline/internal/gcsuploader"
	"github.com/dvloznov/sales-pipeline/internal/logger"
)

// Format is the container format of a batch source.
type Format string

const (
	FormatAuto      Format = ""
	FormatJSON      Format = "json"
	FormatJSONLines Format = "jsonl"
	FormatCSV       Format = "csv"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatJSON, FormatJSONLines, FormatCSV:
		return f, nil
	case "ndjson":
		return FormatJSONLines, nil
	case "tsv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown source format %q", s)
	}
}

// Options configures a Loader.
type Options struct {
	Format    Format
	Delimiter rune
}

// Loader reads batch sources into raw records.
type Loader struct {
	storage   gcs.StorageService
	format    Format
	delimiter rune
}

// NewLoader creates a Loader. storage is only used for gs:// sources and may be nil
// when every source is local.
func NewLoader(storage gcs.StorageService, opts Options) *Loader {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &Loader{storage: storage, format: opts.Format, delimiter: opts.Delimiter}
}

// Load reads source and returns its records in source order. Any failure to read
// or decode the container is a *domain.SourceReadError.
func (l *Loader) Load(ctx context.Context, source string) ([]domain.RawRecord, error) {
	log := logger.FromContext(ctx)

	data, err := l.read(ctx, source)
	if err != nil {
		return nil, &domain.SourceReadError{Source: source, Err: err}
	}
	if gcsuploader.IsGCSURI(source) {
		log = log.With().Str("object", l.storage.ExtractFilenameFromGCSURI(source)).Logger()
	}

	format := l.format
	if format == FormatAuto {
		format = detectFormat(source)
	}

	var objects []map[string]interface{}
	switch format {
	case FormatJSON:
		objects, err = decodeJSON(data)
	case FormatJSONLines:
		objects, err = decodeJSONLines(data)
	case FormatCSV:
		delim := l.delimiter
		if l.format == FormatAuto && strings.EqualFold(path.Ext(source), ".tsv") {
			delim = '\t'
		}
		objects, err = decodeDelimited(data, delim)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, &domain.SourceReadError{Source: source, Err: err}
	}

	records := make([]domain.RawRecord, 0, len(objects))
	for i, obj := range objects {
		rec := DecodeRecord(obj, i+1)
		if len(rec.Malformed) > 0 {
			log.Debug().
				Int("position", rec.Position).
				Strs("fields", rec.Malformed).
				Msg("malformed fields treated as absent")
		}
		records = append(records, rec)
	}

	log.Info().
		Str("format", string(format)).
		Int("records", len(records)).
		Msg("Loaded batch source")

	return records, nil
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	if gcsuploader.IsGCSURI(source) {
		if l.storage == nil {
			return nil, errors.New("no storage service configured for gs:// source")
		}
		return l.storage.FetchFromGCS(ctx, source)
	}
	return os.ReadFile(source)
}

func detectFormat(source string) Format {
	switch strings.ToLower(path.Ext(source)) {
	case ".jsonl", ".ndjson":
		return FormatJSONLines
	case ".csv", ".tsv", ".txt":
		return FormatCSV
	default:
		return FormatJSON
	}
}

// decodeJSON accepts a top-level array of objects or an object with a "records" array.
func decodeJSON(data []byte) ([]map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty JSON document")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var items []interface{}
	if trimmed[0] == '{' {
		var wrapper struct {
			Records []interface{} `json:"records"`
		}
		if err := dec.Decode(&wrapper); err != nil {
			return nil, fmt.Errorf("decoding JSON object: %w", err)
		}
		if wrapper.Records == nil {
			return nil, errors.New(`JSON object has no "records" array`)
		}
		items = wrapper.Records
	} else if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding JSON array: %w", err)
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON document")
	}

	return asObjects(items)
}

func decodeJSONLines(data []byte) ([]map[string]interface{}, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var items []interface{}
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		var item interface{}
		if err := dec.Decode(&item); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning lines: %w", err)
	}
	return asObjects(items)
}

func asObjects(items []interface{}) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("element %d is %T, want object", i+1, item)
		}
		out = append(out, obj)
	}
	return out, nil
}

// decodeDelimited reads a header row followed by data rows. Empty cells are absent keys.
func decodeDelimited(data []byte, delimiter rune) ([]map[string]interface{}, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.Comma = delimiter
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.New("delimited source has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var out []map[string]interface{}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		obj := make(map[string]interface{}, len(header))
		for i, cell := range row {
			if strings.TrimSpace(cell) == "" {
				continue
			}
			obj[header[i]] = cell
		}
		out = append(out, obj)
	}
	return out, nil
}
