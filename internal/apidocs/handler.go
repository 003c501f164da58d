package apidocs

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	apperrors "dashboard/internal/errors"
	"dashboard/internal/observability"
)

// Handler serves the schema, Swagger UI and redoc page of every category.
type Handler struct {
	registry *Registry
	source   Source
	metrics  *observability.Metrics
	ui       map[string]gin.HandlerFunc
	redoc    *template.Template
}

// NewHandler creates a Handler. metrics may be nil.
func NewHandler(registry *Registry, source Source, metrics *observability.Metrics) *Handler {
	h := &Handler{
		registry: registry,
		source:   source,
		metrics:  metrics,
		ui:       make(map[string]gin.HandlerFunc),
		redoc:    template.Must(template.New("redoc").Parse(redocTemplate)),
	}
	for _, c := range registry.Categories() {
		h.ui[c.Name] = ginSwagger.WrapHandler(swaggerFiles.Handler,
			ginSwagger.URL(SchemaPath(c.Name)),
			ginSwagger.DocExpansion("list"),
		)
	}
	return h
}

// SchemaPath returns the URL of the schema document of category name.
func SchemaPath(name string) string {
	if name == AllCategory {
		return "/api/schema/"
	}
	return "/api/schema/" + name + "/"
}

// SwaggerPath returns the URL of the Swagger UI of category name.
func SwaggerPath(name string) string {
	if name == AllCategory {
		return "/swagger/"
	}
	return "/swagger/" + name + "/"
}

// RegisterRoutes mounts the documentation routes on router.
func (h *Handler) RegisterRoutes(router gin.IRoutes) {
	for _, c := range h.registry.Categories() {
		router.GET(SchemaPath(c.Name), h.Schema(c.Name))
		router.GET(SchemaPath(c.Name)+"redoc/", h.Redoc(c.Name))
	}
	router.GET("/swagger/*any", h.SwaggerUI)
}

// Document returns the schema of category name.
func (h *Handler) Document(name string) (map[string]any, error) {
	c, ok := h.registry.Get(name)
	if !ok {
		return nil, apperrors.ErrCategoryNotFound
	}
	schema, err := h.source.Schema()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSchemaUnavailable, err)
	}
	return Apply(c, schema, h.registry.tagDescriptions), nil
}

// Schema serves the filtered document of category name.
func (h *Handler) Schema(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := h.Document(name)
		if err != nil {
			_ = c.Error(err)
			return
		}
		h.metrics.SchemaServed(name)
		c.JSON(http.StatusOK, doc)
	}
}

// Redoc renders a redoc page bound to the schema of category name.
func (h *Handler) Redoc(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cat, ok := h.registry.Get(name)
		if !ok {
			_ = c.Error(apperrors.ErrCategoryNotFound)
			return
		}
		title := cat.SwaggerTitle
		if title == "" {
			title = "API Documentation"
		}

		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Status(http.StatusOK)
		if err := h.redoc.Execute(c.Writer, map[string]string{
			"Title":     title,
			"SchemaURL": SchemaPath(name),
		}); err != nil {
			_ = c.Error(apperrors.Wrap(apperrors.ErrInternalServer, err))
		}
	}
}

// SwaggerUI dispatches /swagger/* to the UI of the category named by the
// first path segment, or to the complete UI.
func (h *Handler) SwaggerUI(c *gin.Context) {
	rest := strings.TrimPrefix(c.Param("any"), "/")

	name, file := AllCategory, rest
	if i := strings.Index(rest, "/"); i >= 0 {
		if _, ok := h.ui[rest[:i]]; ok && rest[:i] != AllCategory {
			name, file = rest[:i], rest[i+1:]
		}
	} else if _, ok := h.ui[rest]; ok && rest != AllCategory {
		name, file = rest, ""
	}

	if file == "" {
		c.Redirect(http.StatusMovedPermanently, SwaggerPath(name)+"index.html")
		return
	}

	ui, ok := h.ui[name]
	if !ok {
		_ = c.Error(apperrors.ErrCategoryNotFound)
		return
	}
	ui(c)
}

const redocTemplate = `<!DOCTYPE html>
<html>
<head>
  <title>{{.Title}}</title>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <link href="https://fonts.googleapis.com/css?family=Montserrat:300,400,700|Roboto:300,400,700" rel="stylesheet">
  <style>
    body {
      margin: 0;
      padding: 0;
    }
  </style>
</head>
<body>
<redoc spec-url="{{.SchemaURL}}"></redoc>
<script src="https://cdn.jsdelivr.net/npm/redoc@2.1.5/bundles/redoc.standalone.js"></script>
</body>
</html>`
