// Package rangeexpr parses the --skipLayers range expression syntax
// ("3,5-7,12") into a membership set, generalizing the flat
// comma-separated StringSet parsing in geocube's internal/utils/slice.go
// to integer ranges.
package rangeexpr

import (
	"strconv"
	"strings"

	"github.com/render-align/elastic-align/internal/alignerr"
)

// Set is a parsed --skipLayers expression: membership is an O(1) map
// lookup regardless of how many ranges were merged into it.
type Set map[int]struct{}

// Contains reports whether layer is in the set.
func (s Set) Contains(layer int) bool {
	_, ok := s[layer]
	return ok
}

// Parse turns a comma-separated list of integers and inclusive
// hyphen-ranges ("3,5-7,12") into a Set. An empty string parses to an
// empty, non-nil set.
func Parse(expr string) (Set, error) {
	s := make(Set)
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return s, nil
	}
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			from, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, alignerr.InputParse.Wrap(err, "parsing skipLayers range %q", part)
			}
			to, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, alignerr.InputParse.Wrap(err, "parsing skipLayers range %q", part)
			}
			if to < from {
				return nil, alignerr.InputParse.New("skipLayers range %q has end before start", part)
			}
			for l := from; l <= to; l++ {
				s[l] = struct{}{}
			}
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, alignerr.InputParse.Wrap(err, "parsing skipLayers value %q", part)
		}
		s[v] = struct{}{}
	}
	return s, nil
}
