package cache

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mdeval/mdeval/internal/canonical"
	"github.com/mdeval/mdeval/internal/correlation"
)

// codecVersion is bumped when the payload layout changes.
const codecVersion = 1

type meta struct {
	Codec    int  `json:"codec"`
	Rows     int  `json:"rows"`
	Lags     int  `json:"lags"`
	Width    int  `json:"width"`
	Averaged bool `json:"averaged"`
}

// Encode serializes res into canonical JSON metadata and a float64 payload.
func Encode(res *correlation.Result) (metaJSON, payload []byte, err error) {
	if res == nil {
		return nil, nil, fmt.Errorf("encode: nil result")
	}
	if err := res.Validate(); err != nil {
		return nil, nil, fmt.Errorf("encode: %w", err)
	}
	rows, lags, width := res.Shape()

	metaJSON, err = canonical.Marshal(map[string]any{
		"codec":    codecVersion,
		"rows":     rows,
		"lags":     lags,
		"width":    width,
		"averaged": res.Averaged,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("encode meta: %w", err)
	}

	payload = make([]byte, 0, 8*(lags+rows*lags*width))
	for _, t := range res.Times {
		payload = binary.LittleEndian.AppendUint64(payload, math.Float64bits(t))
	}
	for _, row := range res.Data {
		for _, v := range row {
			for _, x := range v {
				payload = binary.LittleEndian.AppendUint64(payload, math.Float64bits(x))
			}
		}
	}
	return metaJSON, payload, nil
}

// Decode reverses Encode.
func Decode(metaJSON, payload []byte) (*correlation.Result, error) {
	var m meta
	if err := json.Unmarshal(metaJSON, &m); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	if m.Codec != codecVersion {
		return nil, fmt.Errorf("decode: codec version %d, want %d", m.Codec, codecVersion)
	}
	if m.Rows < 0 || m.Lags < 0 || m.Width < 0 {
		return nil, fmt.Errorf("decode: negative shape %dx%dx%d", m.Rows, m.Lags, m.Width)
	}
	want := 8 * (m.Lags + m.Rows*m.Lags*m.Width)
	if len(payload) != want {
		return nil, fmt.Errorf("decode: payload is %d bytes, shape %dx%dx%d needs %d", len(payload), m.Rows, m.Lags, m.Width, want)
	}

	next := func() float64 {
		x := math.Float64frombits(binary.LittleEndian.Uint64(payload))
		payload = payload[8:]
		return x
	}

	res := &correlation.Result{
		Times:    make([]float64, m.Lags),
		Data:     make([][]correlation.Value, m.Rows),
		Averaged: m.Averaged,
	}
	for i := range res.Times {
		res.Times[i] = next()
	}
	for i := range res.Data {
		row := make([]correlation.Value, m.Lags)
		for j := range row {
			v := make(correlation.Value, m.Width)
			for k := range v {
				v[k] = next()
			}
			row[j] = v
		}
		res.Data[i] = row
	}
	return res, nil
}
