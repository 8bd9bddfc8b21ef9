package importer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rankproc/bucketdb/pkg/dataset"
)

// flattenLine parses one JSON-lines record and flattens it into cells.
// The top-level value must be an object.
func flattenLine(line []byte) ([]dataset.Cell, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level JSON value is not an object")
	}

	var cells []dataset.Cell
	for key, val := range obj {
		var err error
		cells, err = appendCells(cells, key, val)
		if err != nil {
			return nil, err
		}
	}
	return cells, nil
}

// appendCells flattens one value under the given column prefix. Nested
// object keys are joined with dots. Arrays of atoms become boolean
// marker cells named <prefix>.<element>; arrays containing objects or
// nested arrays are kept as compact JSON text. Nulls produce no cell.
func appendCells(cells []dataset.Cell, prefix string, v any) ([]dataset.Cell, error) {
	switch val := v.(type) {
	case nil:
		return cells, nil
	case string:
		return append(cells, dataset.Cell{Column: prefix, Value: val}), nil
	case json.Number:
		return append(cells, dataset.Cell{Column: prefix, Value: val.String()}), nil
	case bool:
		value := "false"
		if val {
			value = "true"
		}
		return append(cells, dataset.Cell{Column: prefix, Value: value}), nil
	case map[string]any:
		for key, sub := range val {
			var err error
			cells, err = appendCells(cells, prefix+"."+key, sub)
			if err != nil {
				return nil, err
			}
		}
		return cells, nil
	case []any:
		if atoms, ok := atomStrings(val); ok {
			for _, elem := range atoms {
				cells = append(cells, dataset.Cell{Column: prefix + "." + elem, Value: "true"})
			}
			return cells, nil
		}
		text, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("re-encode array %q: %w", prefix, err)
		}
		return append(cells, dataset.Cell{Column: prefix, Value: string(text)}), nil
	default:
		return nil, fmt.Errorf("unsupported JSON value under %q", prefix)
	}
}

// atomStrings returns the string forms of an all-atom array, or ok=false
// if any element is an object, array, or null.
func atomStrings(arr []any) ([]string, bool) {
	out := make([]string, 0, len(arr))
	for _, elem := range arr {
		switch e := elem.(type) {
		case string:
			out = append(out, e)
		case json.Number:
			out = append(out, e.String())
		case bool:
			if e {
				out = append(out, "true")
			} else {
				out = append(out, "false")
			}
		default:
			return nil, false
		}
	}
	return out, true
}
