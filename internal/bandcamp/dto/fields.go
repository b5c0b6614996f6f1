package dto

import (
	"html"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// first returns the first of paths that is present and not empty.
func first(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		v := r.Get(p)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if v.Type == gjson.String && strings.TrimSpace(v.Str) == "" {
			continue
		}
		return v
	}
	return gjson.Result{}
}

func str(r gjson.Result, paths ...string) string {
	return strings.TrimSpace(first(r, paths...).String())
}

// text is str with HTML entities decoded. Display fields are decoded here,
// once, so later passes over the record never decode twice.
func text(r gjson.Result, paths ...string) string {
	return strings.TrimSpace(html.UnescapeString(str(r, paths...)))
}

func num(r gjson.Result, paths ...string) int64 {
	return first(r, paths...).Int()
}

// SelectStream picks a streaming URL from either a plain string or a
// bitrate->URL mapping. The mp3-128 variant wins; otherwise the first
// variant in key order is used.
func SelectStream(r gjson.Result) string {
	var u string
	switch {
	case r.IsObject():
		if v := r.Get("mp3-128"); v.Exists() && v.String() != "" {
			u = v.String()
			break
		}
		variants := r.Map()
		keys := make([]string, 0, len(variants))
		for k, v := range variants {
			if v.String() != "" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		if len(keys) > 0 {
			u = variants[keys[0]].String()
		}
	case r.Type == gjson.String:
		u = r.String()
	}
	return absoluteScheme(u)
}

func absoluteScheme(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

// Kind returns the raw item type tag of a tralbum-like entry.
func Kind(r gjson.Result) string {
	return str(r, "tralbum_type", "item_type", "type")
}
