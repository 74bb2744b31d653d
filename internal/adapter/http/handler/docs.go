package handler

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

// APIDocs is the OpenAPI document served under /swagger.
type APIDocs struct {
	yaml    []byte
	json    []byte
	title   string
	version string
}

// LoadAPIDocs reads and checks the OpenAPI document at path.
func LoadAPIDocs(path string) (*APIDocs, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseAPIDocs(raw)
}

// ParseAPIDocs checks an OpenAPI YAML document and prepares its JSON form.
func ParseAPIDocs(raw []byte) (*APIDocs, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	if _, ok := doc["openapi"].(string); !ok {
		return nil, fmt.Errorf("parse openapi document: missing openapi version")
	}
	var meta struct {
		Info struct {
			Title   string `yaml:"title"`
			Version string `yaml:"version"`
		} `yaml:"info"`
	}
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parse openapi info: %w", err)
	}
	asJSON, err := json.Marshal(stringKeys(doc))
	if err != nil {
		return nil, fmt.Errorf("render openapi json: %w", err)
	}
	return &APIDocs{yaml: raw, json: asJSON, title: meta.Info.Title, version: meta.Info.Version}, nil
}

// stringKeys rewrites the maps yaml produces for non-string keys, such as
// unquoted response codes, so the tree renders as JSON.
func stringKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, e := range t {
			t[k] = stringKeys(e)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = stringKeys(e)
		}
		return out
	case []interface{}:
		for i, e := range t {
			t[i] = stringKeys(e)
		}
		return t
	default:
		return v
	}
}

// register mounts the UI and both document renderings. Without a document
// only the UI is served and the spec routes answer 404.
func (d *APIDocs) register(g *gin.RouterGroup) {
	g.GET("", d.ui)
	g.GET("/spec", d.serve("application/x-yaml", func(d *APIDocs) []byte { return d.yaml }))
	g.GET("/spec.json", d.serve("application/json", func(d *APIDocs) []byte { return d.json }))
}

func (d *APIDocs) serve(contentType string, body func(*APIDocs) []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d == nil {
			c.String(http.StatusNotFound, "OpenAPI spec not loaded")
			return
		}
		c.Data(http.StatusOK, contentType, body(d))
	}
}

func (d *APIDocs) ui(c *gin.Context) {
	title := "Ecash Billing Engine"
	if d != nil && d.title != "" {
		title = d.title
		if d.version != "" {
			title += " " + d.version
		}
	}
	page := fmt.Sprintf(swaggerPage, html.EscapeString(title))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>%s</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/swagger/spec.json',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
