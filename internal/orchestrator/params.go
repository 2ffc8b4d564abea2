package orchestrator

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/dusk-indust/contentpipe/internal/content"
)

// ApplyParameters maps caller-supplied parameters onto the typed document
// fields. Keys no stage reads are kept in Extra. A value of the wrong shape
// for a known key is an error. Keys are applied in sorted order, so of two
// aliases the later one in that order wins.
func ApplyParameters(doc *content.Document, params map[string]any) error {
	for _, key := range slices.Sorted(maps.Keys(params)) {
		raw := params[key]
		if raw == nil {
			continue
		}
		var err error
		switch key {
		case "word_count", "target_word_count":
			doc.WordCount, err = asInt(raw)
		case "tone", "target_tone":
			doc.Tone, err = asString(raw)
		case "content_type":
			doc.ContentType, err = asString(raw)
		case "target_audience":
			doc.TargetAudience, err = asString(raw)
		case "target_platform", "platform":
			doc.TargetPlatform, err = asString(raw)
		case "focus_keyword":
			doc.FocusKeyword, err = asString(raw)
		case "target_keywords", "keywords":
			doc.TargetKeywords, err = asStrings(raw)
		case "search_queries":
			doc.SearchQueries, err = asStrings(raw)
		case "source_types":
			doc.SourceTypes, err = asStrings(raw)
		case "research_depth":
			doc.ResearchDepth, err = asString(raw)
		case "style_guide":
			doc.StyleGuide, err = asString(raw)
		case "schedule_time":
			doc.ScheduleTime, err = asString(raw)
		case "tags":
			doc.Tags, err = asStrings(raw)
		// Existing content for templates that start after the writer.
		case "content":
			doc.Content, err = asString(raw)
		case "title":
			doc.Title, err = asString(raw)
		case "meta_description":
			doc.MetaDescription, err = asString(raw)
		default:
			if doc.Extra == nil {
				doc.Extra = make(map[string]any)
			}
			doc.Extra[key] = raw
		}
		if err != nil {
			return fmt.Errorf("parameter %q: %w", key, err)
		}
	}
	return nil
}

func asString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), nil
	case fmt.Stringer:
		return s.String(), nil
	}
	return "", fmt.Errorf("expected a string, got %T", v)
}

// asInt accepts a non-negative whole number that fits an int.
func asInt(v any) (int, error) {
	n, err := toInt(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("expected a non-negative number, got %d", n)
	}
	return n, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return fromInt64(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, fmt.Errorf("expected a whole number, got %v", n)
		}
		// float64(math.MaxInt) rounds up past the largest int.
		if n < math.MinInt || n >= math.MaxInt {
			return 0, fmt.Errorf("number %v is out of range", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, err
		}
		return fromInt64(i)
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}

func fromInt64(n int64) (int, error) {
	if n < math.MinInt || n > math.MaxInt {
		return 0, fmt.Errorf("number %d is out of range", n)
	}
	return int(n), nil
}

// asStrings accepts a list or a comma-separated string.
func asStrings(v any) ([]string, error) {
	var items []string
	switch l := v.(type) {
	case []string:
		items = l
	case []any:
		for _, e := range l {
			s, err := asString(e)
			if err != nil {
				return nil, err
			}
			items = append(items, s)
		}
	case string:
		items = strings.Split(l, ",")
	default:
		return nil, fmt.Errorf("expected a list of strings, got %T", v)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
