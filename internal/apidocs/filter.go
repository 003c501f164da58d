package apidocs

import (
	"sort"
	"strings"
)

var operationKeys = map[string]bool{
	"get":     true,
	"put":     true,
	"post":    true,
	"delete":  true,
	"options": true,
	"head":    true,
	"patch":   true,
	"trace":   true,
}

// Filter returns a copy of schema restricted to the operations whose tags
// match targets. A path is dropped when none of its operations match; path
// level keys such as shared parameters are kept on retained paths. Tags used
// by the remaining operations get their description appended to the tag
// list unless already listed. With no targets every path is kept.
//
// schema is never modified.
func Filter(schema map[string]any, targets []string, tagDescriptions map[string]string) map[string]any {
	out := cloneMap(schema)

	paths, _ := out["paths"].(map[string]any)
	if len(targets) > 0 && paths != nil {
		filtered := make(map[string]any, len(paths))
		for path, item := range paths {
			pathItem, ok := item.(map[string]any)
			if !ok {
				continue
			}
			kept := make(map[string]any, len(pathItem))
			matched := false
			for key, op := range pathItem {
				if strings.HasPrefix(key, "_") {
					continue
				}
				if !operationKeys[strings.ToLower(key)] {
					kept[key] = op
					continue
				}
				operation, ok := op.(map[string]any)
				if !ok {
					continue
				}
				tags := stringList(operation["tags"])
				if len(tags) > 0 && MatchTags(tags, targets) {
					kept[key] = op
					matched = true
				}
			}
			if matched {
				filtered[path] = kept
			}
		}
		out["paths"] = filtered
		paths = filtered
	}

	appendTagDescriptions(out, paths, tagDescriptions)
	return out
}

// Apply filters schema for c and replaces the schema title and description
// with the category's own when it defines them.
func Apply(c Category, schema map[string]any, tagDescriptions map[string]string) map[string]any {
	out := Filter(schema, c.Tags, tagDescriptions)
	if c.Title == "" && c.Description == "" {
		return out
	}

	info, ok := out["info"].(map[string]any)
	if !ok {
		info = map[string]any{}
		out["info"] = info
	}
	if c.Title != "" {
		info["title"] = c.Title
	}
	if c.Description != "" {
		info["description"] = c.Description
	}
	return out
}

func appendTagDescriptions(schema, paths map[string]any, tagDescriptions map[string]string) {
	if len(tagDescriptions) == 0 {
		return
	}

	used := map[string]bool{}
	for _, item := range paths {
		pathItem, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for key, op := range pathItem {
			if !operationKeys[strings.ToLower(key)] {
				continue
			}
			if operation, ok := op.(map[string]any); ok {
				for _, tag := range stringList(operation["tags"]) {
					used[tag] = true
				}
			}
		}
	}

	tags, _ := schema["tags"].([]any)
	listed := map[string]bool{}
	for _, t := range tags {
		if m, ok := t.(map[string]any); ok {
			if name, ok := m["name"].(string); ok {
				listed[name] = true
			}
		}
	}

	names := make([]string, 0, len(used))
	for tag := range used {
		if _, ok := tagDescriptions[tag]; ok && !listed[tag] {
			names = append(names, tag)
		}
	}
	if len(names) == 0 {
		return
	}
	sort.Strings(names)

	for _, name := range names {
		tags = append(tags, map[string]any{"name": name, "description": tagDescriptions[name]})
	}
	schema["tags"] = tags
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	}
	return v
}
