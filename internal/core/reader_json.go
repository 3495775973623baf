package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// readJSON reads an array of objects. Headers are the keys of the first
// object in document order. Every object contributes its values in its own
// key order, by position: value N fills column N whatever its key is called.
// Short objects are padded with "" and values beyond the header width are
// dropped and counted in WideRows.
func (r *SourceReader) readJSON(src SourceFile) (*ParsedTable, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src.Path, err)
	}
	defer f.Close()

	headers, objects, err := decodeObjectArray(WrapSource(f, r.MaxFileSize))
	if err != nil {
		return nil, &InvalidSourceError{Path: src.Path, Reason: err.Error()}
	}
	if len(headers) == 0 {
		return nil, &InvalidSourceError{Path: src.Path, Reason: "first object has no keys"}
	}

	t := &ParsedTable{
		Source:  src.Path,
		Headers: headers,
		Rows:    make([][]any, 0, len(objects)),
		Dedup:   src.Dedup,
	}
	for _, values := range objects {
		row, wide := fitRow(values, len(headers))
		if wide {
			t.WideRows++
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// decodeObjectArray streams a top-level array. It returns the first object's
// keys and the values of every object, both in document order.
func decodeObjectArray(r io.Reader) ([]string, [][]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, nil, err
	}

	var headers []string
	var objects [][]any
	for dec.More() {
		keys, values, err := decodeObject(dec)
		if err != nil {
			return nil, nil, fmt.Errorf("element %d: %w", len(objects), err)
		}
		if headers == nil {
			headers = keys
		}
		objects = append(objects, values)
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, nil, err
	}
	if len(objects) == 0 {
		return nil, nil, fmt.Errorf("empty array")
	}
	return headers, objects, nil
}

// decodeObject returns the keys of one object and their values in document
// order. A repeated key keeps its first position and its last value.
func decodeObject(dec *json.Decoder) ([]string, []any, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, nil, err
	}

	keys := []string{}
	values := []any{}
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected object key, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("value of %q: %w", key, err)
		}
		val, err := scalarValue(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("value of %q: %w", key, err)
		}

		if i, dup := index[key]; dup {
			values[i] = val
			continue
		}
		index[key] = len(keys)
		keys = append(keys, key)
		values = append(values, val)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

// scalarValue maps a JSON value onto the table value types. Numbers become
// float64, null becomes nil, and nested arrays or objects are kept as
// compact JSON text.
func scalarValue(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", nil
	}

	switch trimmed[0] {
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return nil, err
		}
		return buf.String(), nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return n.String(), nil
		}
		return f, nil
	}
	return v, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
