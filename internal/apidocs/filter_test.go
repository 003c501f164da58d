package apidocs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func op(tags ...string) map[string]any {
	list := make([]any, len(tags))
	for i, t := range tags {
		list[i] = t
	}
	return map[string]any{"tags": list, "summary": "op"}
}

func TestMatchTags(t *testing.T) {
	tests := []struct {
		name    string
		tags    []string
		targets []string
		want    bool
	}{
		{"exact", []string{"admin"}, []string{"admin"}, true},
		{"prefixed", []string{"admin-user"}, []string{"admin"}, true},
		{"other category", []string{"app-user"}, []string{"admin"}, false},
		{"prefix without dash", []string{"administrator"}, []string{"admin"}, false},
		{"any of several", []string{"x", "public"}, []string{"external", "public"}, true},
		{"no tags", nil, []string{"admin"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchTags(tt.tags, tt.targets))
		})
	}
}

func TestFilter(t *testing.T) {
	t.Run("keeps only matching operations", func(t *testing.T) {
		schema := map[string]any{
			"paths": map[string]any{
				"/admin/users": map[string]any{"get": op("admin-user")},
				"/users":       map[string]any{"get": op("app-user")},
				"/admin":       map[string]any{"get": op("admin")},
			},
		}

		out := Filter(schema, []string{"admin"}, nil)
		paths := out["paths"].(map[string]any)
		assert.Len(t, paths, 2)
		assert.Contains(t, paths, "/admin/users")
		assert.Contains(t, paths, "/admin")
	})

	t.Run("tag descriptions only for used tags", func(t *testing.T) {
		schema := map[string]any{
			"paths": map[string]any{
				"/users":       map[string]any{"get": op("app-user")},
				"/admin/users": map[string]any{"post": op("admin-user")},
			},
		}
		descriptions := map[string]string{"admin-user": "admin users", "app-user": "app users", "admin": "admin"}

		out := Filter(schema, []string{"admin"}, descriptions)
		assert.Equal(t, map[string]any{
			"/admin/users": map[string]any{"post": op("admin-user")},
		}, out["paths"])
		assert.Equal(t, []any{
			map[string]any{"name": "admin-user", "description": "admin users"},
		}, out["tags"])
	})

	t.Run("mixed path keeps matching methods and path parameters", func(t *testing.T) {
		params := []any{map[string]any{"name": "id", "in": "path"}}
		schema := map[string]any{
			"paths": map[string]any{
				"/users/{id}": map[string]any{
					"get":        op("app-user"),
					"delete":     op("admin-user"),
					"parameters": params,
					"_internal":  "x",
				},
			},
		}

		out := Filter(schema, []string{"admin"}, nil)
		item := out["paths"].(map[string]any)["/users/{id}"].(map[string]any)
		assert.Contains(t, item, "delete")
		assert.Contains(t, item, "parameters")
		assert.NotContains(t, item, "get")
		assert.NotContains(t, item, "_internal")
	})

	t.Run("untagged operations never match", func(t *testing.T) {
		schema := map[string]any{
			"paths": map[string]any{
				"/health": map[string]any{"get": map[string]any{"summary": "health"}},
			},
		}
		out := Filter(schema, []string{"admin"}, nil)
		assert.Empty(t, out["paths"])
	})

	t.Run("no targets keeps everything", func(t *testing.T) {
		schema := map[string]any{
			"paths": map[string]any{
				"/users":  map[string]any{"get": op("app-user")},
				"/health": map[string]any{"get": map[string]any{}},
			},
		}
		out := Filter(schema, nil, map[string]string{"app-user": "users"})
		assert.Len(t, out["paths"], 2)
		assert.Len(t, out["tags"], 1)
	})

	t.Run("input is not modified", func(t *testing.T) {
		schema := map[string]any{
			"paths": map[string]any{
				"/users":       map[string]any{"get": op("app-user")},
				"/admin/users": map[string]any{"post": op("admin-user")},
			},
			"tags": []any{},
		}
		before, err := json.Marshal(schema)
		require.NoError(t, err)

		Apply(Category{Title: "Admin", Tags: []string{"admin"}}, schema, map[string]string{"admin-user": "x"})

		after, err := json.Marshal(schema)
		require.NoError(t, err)
		assert.JSONEq(t, string(before), string(after))
	})

	t.Run("idempotent", func(t *testing.T) {
		schema := map[string]any{
			"info": map[string]any{"title": "Dashboard API"},
			"paths": map[string]any{
				"/users":       map[string]any{"get": op("app-user")},
				"/admin/users": map[string]any{"post": op("admin-user"), "get": op("admin")},
				"/admin/stats": map[string]any{"get": op("management")},
			},
		}
		descriptions := map[string]string{"admin": "a", "admin-user": "b", "management": "c"}
		cat := Category{Title: "Admin APIs", Description: "admin only", Tags: []string{"admin", "management"}}

		once := Apply(cat, schema, descriptions)
		twice := Apply(cat, once, descriptions)
		assert.Equal(t, once, twice)
		assert.Len(t, once["tags"], 3)
	})
}

func TestApply_InfoOverride(t *testing.T) {
	schema := map[string]any{
		"info":  map[string]any{"title": "Dashboard API", "description": "generated", "version": "1.0"},
		"paths": map[string]any{},
	}

	t.Run("category info replaces schema info", func(t *testing.T) {
		out := Apply(Category{Title: "App APIs", Description: "app"}, schema, nil)
		info := out["info"].(map[string]any)
		assert.Equal(t, "App APIs", info["title"])
		assert.Equal(t, "app", info["description"])
		assert.Equal(t, "1.0", info["version"])
	})

	t.Run("empty title keeps generated title", func(t *testing.T) {
		out := Apply(Category{Description: "links"}, schema, nil)
		info := out["info"].(map[string]any)
		assert.Equal(t, "Dashboard API", info["title"])
		assert.Equal(t, "links", info["description"])
	})
}
