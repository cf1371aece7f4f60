package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// decimalEnvelope tags a decimal.Decimal value in JSON so LoadFromJSON
// can tell it apart from a plain string or float and reproduce the
// exact value instead of a lossy float64, per the domain-stack wiring
// for github.com/shopspring/decimal.
type decimalEnvelope struct {
	Decimal string `json:"$decimal"`
}

// EncodeValue converts one row element into a JSON-ready value.
func EncodeValue(v interface{}) interface{} {
	if d, ok := v.(decimal.Decimal); ok {
		return decimalEnvelope{Decimal: d.String()}
	}
	return v
}

// DecodeValue reverses EncodeValue, given a value freshly decoded by a
// json.Decoder configured with UseNumber so integers survive the round
// trip as int rather than float64.
func DecodeValue(raw interface{}) (interface{}, error) {
	switch t := raw.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case map[string]interface{}:
		if s, ok := t["$decimal"].(string); ok && len(t) == 1 {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, err
			}
			return d, nil
		}
		return t, nil
	default:
		return raw, nil
	}
}

// encodeRow converts a Row into a JSON-ready slice.
func encodeRow(r Row) []interface{} {
	out := make([]interface{}, len(r))
	for i, v := range r {
		out[i] = EncodeValue(v)
	}
	return out
}

// decodeRow reverses encodeRow, decoding a []interface{} produced by a
// UseNumber-configured decoder back into a Row.
func decodeRow(raw []interface{}) (Row, error) {
	out := make(Row, len(raw))
	for i, v := range raw {
		dv, err := DecodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("decode row element %d: %w", i, err)
		}
		out[i] = dv
	}
	return out, nil
}

// decodeJSONNumbers parses JSON into v using json.Number for numerics
// so round trips preserve int vs. float distinctions.
func decodeJSONNumbers(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
