package metric

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xelth-com/berrycheck/internal/models"
)

// OtherGroup collects keys without a namespace prefix
const OtherGroup = "_other"

// Item is one keyed entry to be grouped
type Item[T any] struct {
	Key   string
	Value T
}

// Group is a display section derived from a key prefix
type Group[T any] struct {
	Name  string
	Items []Item[T]
}

// SplitKey returns the display group and the bare name of a field key
func SplitKey(key string) (group, name string) {
	idx := strings.Index(key, ".")
	if idx < 0 {
		return OtherGroup, key
	}
	return key[:idx], key[idx+1:]
}

// HumanLabel derives a label from the bare key: "quality.soft_fruit" -> "Soft Fruit"
func HumanLabel(key string) string {
	_, name := SplitKey(key)
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// GroupItems partitions items by key prefix. Groups appear in order of first
// occurrence and items keep their input order within a group.
func GroupItems[T any](items []Item[T]) []Group[T] {
	groups := make([]Group[T], 0)
	index := make(map[string]int)
	for _, item := range items {
		name, _ := SplitKey(item.Key)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group[T]{Name: name})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

// SortFields orders fields by order_index, then key
func SortFields(fields []models.MetricField) {
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].OrderIndex != fields[j].OrderIndex {
			return fields[i].OrderIndex < fields[j].OrderIndex
		}
		return fields[i].Key < fields[j].Key
	})
}

// GroupFields groups template fields in display order
func GroupFields(fields []models.MetricField) []Group[models.MetricField] {
	sorted := make([]models.MetricField, len(fields))
	copy(sorted, fields)
	SortFields(sorted)

	items := make([]Item[models.MetricField], len(sorted))
	for i, f := range sorted {
		items[i] = Item[models.MetricField]{Key: f.Key, Value: f}
	}
	return GroupItems(items)
}

// GroupValues groups captured values. Keys known to the template follow field
// order; the remaining keys follow alphabetically so the result is deterministic.
func GroupValues(values map[string]interface{}, fields []models.MetricField) []Group[interface{}] {
	sorted := make([]models.MetricField, len(fields))
	copy(sorted, fields)
	SortFields(sorted)

	items := make([]Item[interface{}], 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, f := range sorted {
		if v, ok := values[f.Key]; ok && !seen[f.Key] {
			items = append(items, Item[interface{}]{Key: f.Key, Value: v})
			seen[f.Key] = true
		}
	}

	rest := make([]string, 0)
	for k := range values {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		items = append(items, Item[interface{}]{Key: k, Value: values[k]})
	}
	return GroupItems(items)
}
