package common

import (
	"math"
	"strconv"
)

// Series is a sample sequence that encodes NaN and ±Inf as JSON null.
type Series []float64

func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, 2+len(s)*8)
	buf = append(buf, '[')
	for i, v := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendFloat(buf, v)
	}
	return append(buf, ']'), nil
}

// Value is a scalar that encodes NaN and ±Inf as JSON null.
type Value float64

func (v Value) MarshalJSON() ([]byte, error) {
	return appendFloat(nil, float64(v)), nil
}

func appendFloat(buf []byte, v float64) []byte {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return append(buf, "null"...)
	}
	return strconv.AppendFloat(buf, v, 'g', -1, 64)
}
