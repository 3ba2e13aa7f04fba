package channels

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedChannelSpec is returned for any token that is not an integer or
// an ascending inclusive range.
var ErrMalformedChannelSpec = errors.New("malformed channel spec")

// MaxRangeWidth bounds the number of channels a single "a-b" range may expand to.
const MaxRangeWidth = 1 << 16

// #region parse
// Parse expands a channel specification into an ordered list of channel ids.
// Accepted inputs: an int, a string such as "1-3, 7", or a list of ints or
// numeric strings. Order follows declaration, with ranges expanded ascending.
func Parse(spec any) ([]int, error) {
	switch v := spec.(type) {
	case nil:
		return []int{}, nil
	case int:
		return []int{v}, nil
	case int64:
		return []int{int(v)}, nil
	case string:
		return parseString(v)
	case []int:
		out := make([]int, len(v))
		copy(out, v)
		return out, nil
	case []string:
		out := make([]int, 0, len(v))
		for _, s := range v {
			ids, err := parseString(s)
			if err != nil {
				return nil, err
			}
			out = append(out, ids...)
		}
		return out, nil
	case []any:
		out := make([]int, 0, len(v))
		for _, item := range v {
			switch item.(type) {
			case []any, []int, []string:
				return nil, fmt.Errorf("%w: nested list %v", ErrMalformedChannelSpec, item)
			}
			ids, err := Parse(item)
			if err != nil {
				return nil, err
			}
			out = append(out, ids...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrMalformedChannelSpec, spec)
	}
}

// ParseSet is Parse without order or duplicates.
func ParseSet(spec any) (Set, error) {
	ids, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	return NewSet(ids...), nil
}

// Unique returns ids with later duplicates removed, keeping first occurrence order.
func Unique(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func parseString(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return []int{}, nil
	}
	var out []int
	for _, raw := range strings.Split(s, ",") {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			return nil, fmt.Errorf("%w: empty token in %q", ErrMalformedChannelSpec, s)
		}
		lo, hi, isRange := strings.Cut(tok, "-")
		if !isRange {
			n, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not an integer", ErrMalformedChannelSpec, tok)
			}
			out = append(out, n)
			continue
		}
		a, errA := strconv.Atoi(strings.TrimSpace(lo))
		b, errB := strconv.Atoi(strings.TrimSpace(hi))
		if errA != nil || errB != nil {
			return nil, fmt.Errorf("%w: %q is not a range", ErrMalformedChannelSpec, tok)
		}
		if b < a {
			return nil, fmt.Errorf("%w: range %q is descending", ErrMalformedChannelSpec, tok)
		}
		if uint(b-a) >= MaxRangeWidth {
			return nil, fmt.Errorf("%w: range %q spans more than %d channels", ErrMalformedChannelSpec, tok, MaxRangeWidth)
		}
		for n := a; ; n++ {
			out = append(out, n)
			if n == b {
				break
			}
		}
	}
	return out, nil
}

// #endregion parse

// #region format
// Format renders ids compactly, collapsing ascending runs: [1 2 3 7] -> "1-3,7".
func Format(ids []int) string {
	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sort.Ints(sorted)
	sorted = Unique(sorted)

	var parts []string
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sorted[j+1] == sorted[j]+1 {
			j++
		}
		if j > i {
			parts = append(parts, fmt.Sprintf("%d-%d", sorted[i], sorted[j]))
		} else {
			parts = append(parts, strconv.Itoa(sorted[i]))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}

// #endregion format
