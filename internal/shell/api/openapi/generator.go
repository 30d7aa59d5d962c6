// Package openapi provides reflective OpenAPI 3.0 specification generation.
// Operation schemas are extracted from the domain structs at startup, so the
// served spec never drifts from the code.
package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Generator
// =============================================================================

// Generator produces OpenAPI 3.0 specifications by reflecting on registered
// operations.
type Generator struct {
	title       string
	version     string
	description string
	servers     []string
	operations  []OperationInfo
	mu          sync.RWMutex
	cachedSpec  *openapi3.T
}

// OperationInfo describes one HTTP operation for spec generation.
type OperationInfo struct {
	Method      string // GET, POST, PUT, DELETE
	Path        string // e.g. "/admin/apps/{id}"
	OperationID string
	Summary     string
	Tag         string
	Request     any  // request body model, nil for none
	Response    any  // response body model, nil for 204
	List        bool // response is an array of Response
	Secured     bool // requires a bearer token
}

// Option configures the generator.
type Option func(*Generator)

// WithTitle sets the API title.
func WithTitle(title string) Option {
	return func(g *Generator) { g.title = title }
}

// WithVersion sets the API version.
func WithVersion(version string) Option {
	return func(g *Generator) { g.version = version }
}

// WithDescription sets the API description.
func WithDescription(description string) Option {
	return func(g *Generator) { g.description = description }
}

// WithServer adds a server URL.
func WithServer(url string) Option {
	return func(g *Generator) { g.servers = append(g.servers, url) }
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		title:       "Developer Portal API",
		version:     "1.0.0",
		description: "Developer portal for vendor app submission and review",
		servers:     []string{"http://localhost:8000"},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register adds operations to the generator.
func (g *Generator) Register(ops ...OperationInfo) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.operations = append(g.operations, ops...)
	g.cachedSpec = nil
}

// Generate produces the complete OpenAPI 3.0 specification.
func (g *Generator) Generate() *openapi3.T {
	g.mu.RLock()
	if g.cachedSpec != nil {
		spec := g.cachedSpec
		g.mu.RUnlock()
		return spec
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cachedSpec != nil {
		return g.cachedSpec
	}

	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       g.title,
			Version:     g.version,
			Description: g.description,
		},
		Servers: make(openapi3.Servers, 0, len(g.servers)),
		Paths:   &openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
			SecuritySchemes: openapi3.SecuritySchemes{
				"bearerAuth": &openapi3.SecuritySchemeRef{
					Value: &openapi3.SecurityScheme{
						Type:   "http",
						Scheme: "bearer",
					},
				},
			},
		},
	}

	for _, url := range g.servers {
		spec.Servers = append(spec.Servers, &openapi3.Server{URL: url})
	}

	g.addErrorSchema(spec)

	for _, op := range g.operations {
		g.addOperationToSpec(spec, op)
	}

	g.cachedSpec = spec
	return spec
}

// JSONHandler serves the specification as JSON.
func (g *Generator) JSONHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if err := json.NewEncoder(w).Encode(g.Generate()); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	}
}

// YAMLHandler serves the specification as YAML.
func (g *Generator) YAMLHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Round-trip through JSON so kin-openapi's MarshalJSON shapes the
		// document before YAML encoding.
		raw, err := json.Marshal(g.Generate())
		if err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
			return
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/yaml")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if err := yaml.NewEncoder(w).Encode(doc); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	}
}

// =============================================================================
// Spec Assembly
// =============================================================================

// addErrorSchema adds the shared error envelope.
func (g *Generator) addErrorSchema(spec *openapi3.T) {
	spec.Components.Schemas["Error"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
				},
				"message": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
				},
			},
		},
	}
}

func (g *Generator) addOperationToSpec(spec *openapi3.T, info OperationInfo) {
	op := &openapi3.Operation{
		OperationID: info.OperationID,
		Summary:     info.Summary,
		Tags:        []string{info.Tag},
		Responses:   &openapi3.Responses{},
	}

	if info.Secured {
		op.Security = &openapi3.SecurityRequirements{
			openapi3.SecurityRequirement{"bearerAuth": []string{}},
		}
	}

	for _, name := range pathParams(info.Path) {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: &openapi3.Parameter{
				Name:     name,
				In:       "path",
				Required: true,
				Schema: &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
				},
			},
		})
	}

	if info.Request != nil {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content: openapi3.Content{
					"application/json": &openapi3.MediaType{
						Schema: g.schemaRef(spec, info.Request),
					},
				},
			},
		}
	}

	if info.Response != nil {
		schema := g.schemaRef(spec, info.Response)
		if info.List {
			schema = &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type:  &openapi3.Types{"array"},
					Items: schema,
				},
			}
		}
		desc := "OK"
		op.Responses.Set("200", &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content: openapi3.Content{
					"application/json": &openapi3.MediaType{Schema: schema},
				},
			},
		})
	} else {
		desc := "No Content"
		op.Responses.Set("204", &openapi3.ResponseRef{
			Value: &openapi3.Response{Description: &desc},
		})
	}

	errDesc := "Error"
	op.Responses.Set("default", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &errDesc,
			Content: openapi3.Content{
				"application/json": &openapi3.MediaType{
					Schema: &openapi3.SchemaRef{Ref: "#/components/schemas/Error"},
				},
			},
		},
	})

	item := spec.Paths.Value(info.Path)
	if item == nil {
		item = &openapi3.PathItem{}
		spec.Paths.Set(info.Path, item)
	}
	switch info.Method {
	case http.MethodGet:
		item.Get = op
	case http.MethodPost:
		item.Post = op
	case http.MethodPut:
		item.Put = op
	case http.MethodDelete:
		item.Delete = op
	}
}

// schemaRef registers the model's schema under its type name and returns a
// reference to it.
func (g *Generator) schemaRef(spec *openapi3.T, model any) *openapi3.SchemaRef {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		return g.extractSchema(model)
	}
	if _, ok := spec.Components.Schemas[name]; !ok {
		spec.Components.Schemas[name] = g.extractSchema(model)
	}
	return &openapi3.SchemaRef{Ref: "#/components/schemas/" + name}
}

// =============================================================================
// Schema Generation
// =============================================================================

// extractSchema extracts an OpenAPI schema from a Go struct.
func (g *Generator) extractSchema(model any) *openapi3.SchemaRef {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: make(openapi3.Schemas),
	}

	g.addStructFields(schema, t)
	return &openapi3.SchemaRef{Value: schema}
}

// addStructFields walks a struct type, flattening embedded structs.
func (g *Generator) addStructFields(schema *openapi3.Schema, t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() {
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			g.addStructFields(schema, field.Type)
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := field.Name
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
		}

		if propSchema := g.goTypeToSchema(field.Type); propSchema != nil {
			schema.Properties[name] = propSchema
		}
	}
}

// goTypeToSchema converts a Go type to an OpenAPI schema.
func (g *Generator) goTypeToSchema(t reflect.Type) *openapi3.SchemaRef {
	switch t.Kind() {
	case reflect.String:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}}

	case reflect.Int64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}

	case reflect.Float32:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "float"}}

	case reflect.Float64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "double"}}

	case reflect.Bool:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}

	case reflect.Slice, reflect.Array:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: g.goTypeToSchema(t.Elem()),
			},
		}

	case reflect.Map:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:                 &openapi3.Types{"object"},
				AdditionalProperties: openapi3.AdditionalProperties{Schema: g.goTypeToSchema(t.Elem())},
			},
		}

	case reflect.Ptr:
		schema := g.goTypeToSchema(t.Elem())
		if schema != nil && schema.Value != nil {
			schema.Value.Nullable = true
		}
		return schema

	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"},
			}
		}
		return g.extractSchema(reflect.New(t).Interface())

	case reflect.Interface:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{}}

	default:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}
}

// pathParams extracts {name} placeholders from a route path.
func pathParams(path string) []string {
	var params []string
	for _, segment := range strings.Split(path, "/") {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			params = append(params, strings.Trim(segment, "{}"))
		}
	}
	return params
}
