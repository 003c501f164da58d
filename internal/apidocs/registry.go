// Package apidocs serves the generated API schema split by audience.
//
// Operations are assigned to a category by their tags: a tag matches a
// category tag when it is equal to it or starts with it followed by "-",
// so "admin-user" belongs to the "admin" category.
package apidocs

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// AllCategory is the category that lists every operation.
const AllCategory = "all"

//go:embed categories.yaml
var categoriesYAML []byte

// Category is one documentation audience.
type Category struct {
	Name string `yaml:"name"`

	// Title and Description replace the schema info when non-empty.
	Title       string `yaml:"title"`
	Description string `yaml:"description"`

	// SwaggerTitle is the page title of the Swagger UI.
	SwaggerTitle string `yaml:"swagger_title"`

	// Tags selects operations. An empty list selects everything.
	Tags            []string          `yaml:"tags"`
	TagDescriptions map[string]string `yaml:"tag_descriptions"`
}

// Matches reports whether any of the operation tags belongs to c.
func (c Category) Matches(operationTags []string) bool {
	return MatchTags(operationTags, c.Tags)
}

// MatchTags reports whether any operation tag equals a target or is
// prefixed by a target followed by "-".
func MatchTags(operationTags, targets []string) bool {
	for _, tag := range operationTags {
		for _, target := range targets {
			if tag == target || strings.HasPrefix(tag, target+"-") {
				return true
			}
		}
	}
	return false
}

// Registry is the immutable table of categories. It is safe for concurrent
// use.
type Registry struct {
	categories      []Category
	byName          map[string]int
	tagDescriptions map[string]string
}

// LoadRegistry parses the built-in category table.
func LoadRegistry() (*Registry, error) {
	return ParseRegistry(categoriesYAML)
}

// ParseRegistry parses a YAML list of categories. Tag descriptions are
// merged in list order, a later category winning on the same tag.
func ParseRegistry(data []byte) (*Registry, error) {
	var categories []Category
	if err := yaml.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("failed to parse categories: %w", err)
	}

	r := &Registry{
		categories:      categories,
		byName:          make(map[string]int, len(categories)),
		tagDescriptions: make(map[string]string),
	}
	for i, c := range categories {
		if c.Name == "" {
			return nil, fmt.Errorf("category %d has no name", i)
		}
		if _, dup := r.byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate category %q", c.Name)
		}
		r.byName[c.Name] = i
		for tag, desc := range c.TagDescriptions {
			r.tagDescriptions[tag] = desc
		}
	}
	return r, nil
}

// Get returns the category called name.
func (r *Registry) Get(name string) (Category, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Category{}, false
	}
	return r.categories[i], true
}

// Categories returns the categories in registration order.
func (r *Registry) Categories() []Category {
	out := make([]Category, len(r.categories))
	copy(out, r.categories)
	return out
}

// TagDescriptions returns a copy of the merged tag descriptions.
func (r *Registry) TagDescriptions() map[string]string {
	out := make(map[string]string, len(r.tagDescriptions))
	for k, v := range r.tagDescriptions {
		out[k] = v
	}
	return out
}
