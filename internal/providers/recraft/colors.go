package recraft

import (
	"strconv"
	"strings"

	"recraftgen/internal/infra"
)

// Color is an RGB triple; each channel lies in [0,255].
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// ParseColors turns a comma-separated list of channel values into color
// triples. Values are consumed three at a time; an incomplete trailing group
// is dropped silently and a group holding anything other than integers in
// [0,255] is dropped with a warning. The result is never nil.
func ParseColors(csv string, logger *infra.Logger) []Color {
	colors := []Color{}
	if strings.TrimSpace(csv) == "" {
		return colors
	}

	values := strings.Split(csv, ",")
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}

	for i := 0; i+2 < len(values); i += 3 {
		r, okR := channel(values[i])
		g, okG := channel(values[i+1])
		b, okB := channel(values[i+2])
		if !okR || !okG || !okB {
			if logger != nil {
				logger.Warn().Msgf("Invalid color value: %s,%s,%s. Ignoring.", values[i], values[i+1], values[i+2])
			}
			continue
		}
		colors = append(colors, Color{R: r, G: g, B: b})
	}
	return colors
}

func channel(raw string) (int, bool) {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > 255 {
		return 0, false
	}
	return v, true
}
