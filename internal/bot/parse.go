package bot

import (
	"fmt"
	"strconv"
	"strings"

	"vine_monitor/internal/model"
)

// ParseASIN extracts an item identifier from a command argument string.
func ParseASIN(args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", fmt.Errorf("asin is required")
	}
	asin := strings.ToUpper(fields[0])
	for _, r := range asin {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("invalid asin %q", fields[0])
		}
	}
	return asin, nil
}

var typeArgs = map[string]model.TypeFilter{
	"all":       model.TypeShowAll,
	"regular":   model.TypeRegular,
	"zero":      model.TypeZeroETV,
	"highlight": model.TypeHighlight,
	"important": model.TypeHighlightOrZeroETV,
}

// ParseTypeArg parses the argument of /type.
func ParseTypeArg(args string) (model.TypeFilter, error) {
	t, ok := typeArgs[strings.ToLower(strings.TrimSpace(args))]
	if !ok {
		return 0, fmt.Errorf("usage: /type all|regular|zero|highlight|important")
	}
	return t, nil
}

// ParseQueueArg parses the argument of /queue. "all" disables queue
// filtering.
func ParseQueueArg(args string) (string, error) {
	q := strings.TrimSpace(args)
	if q == "" {
		return "", fmt.Errorf("usage: /queue all|<queue>")
	}
	if strings.EqualFold(q, "all") {
		return model.QueueShowAll, nil
	}
	return q, nil
}

// ParsePriceArgs parses the arguments of /price: "<min> <max>" where "-"
// leaves a bound unset, or "off" to clear both.
func ParsePriceArgs(args string) (min, max *float64, err error) {
	parts := strings.Fields(args)
	if len(parts) == 1 && strings.EqualFold(parts[0], "off") {
		return nil, nil, nil
	}
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("usage: /price <min|-> <max|-> or /price off")
	}
	if min, err = parseBound(parts[0]); err != nil {
		return nil, nil, err
	}
	if max, err = parseBound(parts[1]); err != nil {
		return nil, nil, err
	}
	if min == nil && max == nil {
		return nil, nil, fmt.Errorf("at least one bound is required")
	}
	if min != nil && max != nil && *min > *max {
		return nil, nil, fmt.Errorf("minimum %.2f exceeds maximum %.2f", *min, *max)
	}
	return min, max, nil
}

func parseBound(s string) (*float64, error) {
	if s == "-" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("invalid price %q", s)
	}
	return &v, nil
}
