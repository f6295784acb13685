// Package pointmap translates legacy measurement-point identifiers into the
// axis-based naming scheme used by all downstream tables.
//
// During the campaign, points were labelled row-wise (101, 103, ... 613).
// The survey later renamed them onto a grid of axes: A (long axis) and
// B (short axis), so legacy 101 becomes A13B6. Points added in the
// transition area between the indoor and outdoor zones keep their T01..T06
// names. The mapping is fixed survey data; it never changes at runtime.
package pointmap

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPoint is returned when a legacy identifier has no mapping.
var ErrUnknownPoint = errors.New("unknown point id")

// RunSuffix marks a malfunction re-run of a point (e.g. "202_2").
const RunSuffix = "_2"

var mapping = map[string]string{
	"101": "A13B6",
	"103": "A11B6",
	"105": "A09B6",
	"108": "A06B6",
	"110": "A04B6",
	"112": "A02B6",
	"113": "A01B6",
	"202": "A12B5",
	"204": "A10B5",
	"206": "A08B5",
	"207": "A07B5",
	"209": "A05B5",
	"211": "A03B5",
	"213": "A01B5",
	"301": "A13B4",
	"303": "A11B4",
	"305": "A09B4",
	"308": "A06B4",
	"310": "A04B4",
	"312": "A02B4",
	"313": "A01B4",
	"402": "A12B3",
	"404": "A10B3",
	"406": "A08B3",
	"407": "A07B3",
	"409": "A05B3",
	"411": "A03B3",
	"413": "A01B3",
	"501": "A13B2",
	"503": "A11B2",
	"505": "A09B2",
	"508": "A06B2",
	"510": "A04B2",
	"512": "A02B2",
	"513": "A01B2",
	"602": "A12B1",
	"604": "A10B1",
	"606": "A08B1",
	"607": "A07B1",
	"609": "A05B1",
	"611": "A03B1",
	"613": "A01B1",
	"T01": "T01",
	"T02": "T02",
	"T03": "T03",
	"T04": "T04",
	"T05": "T05",
	"T06": "T06",
}

// Map translates a legacy point identifier to the axis scheme.
// Identifiers already in the axis scheme pass through unchanged.
func Map(legacy string) (string, error) {
	if id, ok := mapping[legacy]; ok {
		return id, nil
	}
	// Already renamed ids are their own mapping targets.
	for _, v := range mapping {
		if v == legacy {
			return legacy, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPoint, legacy)
}

// MapRun translates a legacy identifier that may carry a re-run suffix.
// "202_2" maps the base point 202 and reports suffix "_2".
func MapRun(legacy string) (id, suffix string, err error) {
	base := legacy
	if strings.HasSuffix(legacy, RunSuffix) {
		base = strings.TrimSuffix(legacy, RunSuffix)
		suffix = RunSuffix
	}
	id, err = Map(base)
	if err != nil {
		return "", "", err
	}
	return id, suffix, nil
}

// IsTransition reports whether an axis-scheme identifier names a
// transition-area point.
func IsTransition(id string) bool {
	return strings.HasPrefix(id, "T")
}

// Known reports whether a legacy identifier (without run suffix) has a mapping.
func Known(legacy string) bool {
	_, err := Map(legacy)
	return err == nil
}
