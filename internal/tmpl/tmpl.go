/*
Package tmpl provides template processing for bcrelease.
*/
package tmpl

import (
	"bytes"
	"os"
	"runtime"
	"strings"
	"text/template"
	"time"

	"github.com/bloodstar/bcrelease/internal/config"
	"github.com/bloodstar/bcrelease/internal/version"
)

// Context provides template context and rendering
type Context struct {
	config *config.Config
	data   map[string]interface{}
}

// New creates a new template context
func New(cfg *config.Config) *Context {
	ctx := &Context{
		config: cfg,
		data:   make(map[string]interface{}),
	}
	ctx.init()
	return ctx
}

// init initializes the template data
func (c *Context) init() {
	now := time.Now()

	c.data["ProjectName"] = c.config.ProjectName

	// Date/time
	c.data["Date"] = now.Format(time.RFC3339)
	c.data["Now"] = now
	c.data["Timestamp"] = now.Unix()

	// Runtime info
	c.data["Os"] = runtime.GOOS
	c.data["Arch"] = runtime.GOARCH

	// Environment
	env := make(map[string]string)
	for _, e := range os.Environ() {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			env[parts[0]] = parts[1]
		}
	}
	c.data["Env"] = env

	// Custom variables from config
	for k, v := range c.config.Variables {
		c.data[k] = v
	}
}

// SetVersion exposes the planned version as .Version, .PreviousVersion,
// .Major, .Minor and .Patch
func (c *Context) SetVersion(plan version.Plan) {
	c.data["Version"] = plan.Next.String()
	c.data["PreviousVersion"] = plan.Previous.String()
	c.data["Major"] = plan.Next.Major
	c.data["Minor"] = plan.Next.Minor
	c.data["Patch"] = plan.Next.Patch
}

// Apply applies the template to a string
func (c *Context) Apply(tmpl string) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Funcs(c.funcs()).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, c.data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// ApplyAll applies the template to every string
func (c *Context) ApplyAll(tmpls []string) ([]string, error) {
	out := make([]string, 0, len(tmpls))
	for _, s := range tmpls {
		expanded, err := c.Apply(s)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded)
	}
	return out, nil
}

// Set sets a value in the context
func (c *Context) Set(key string, value interface{}) {
	c.data[key] = value
}

// Get gets a value from the context
func (c *Context) Get(key string) string {
	if val, ok := c.data[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

// With returns a copy of the context with extra values
func (c *Context) With(extra map[string]interface{}) *Context {
	newCtx := &Context{
		config: c.config,
		data:   make(map[string]interface{}, len(c.data)+len(extra)),
	}
	for k, v := range c.data {
		newCtx.data[k] = v
	}
	for k, v := range extra {
		newCtx.data[k] = v
	}
	return newCtx
}

// funcs returns the template function map
func (c *Context) funcs() template.FuncMap {
	return template.FuncMap{
		"replace":    strings.ReplaceAll,
		"tolower":    strings.ToLower,
		"toupper":    strings.ToUpper,
		"trim":       strings.TrimSpace,
		"trimprefix": strings.TrimPrefix,
		"trimsuffix": strings.TrimSuffix,
		"split":      strings.Split,
		"join":       strings.Join,
		"contains":   strings.Contains,
		"hasprefix":  strings.HasPrefix,
		"hassuffix":  strings.HasSuffix,

		"env":       os.Getenv,
		"expandenv": os.ExpandEnv,

		"default": func(def, val interface{}) interface{} {
			if val == nil || val == "" {
				return def
			}
			return val
		},

		"time": func(t time.Time, format string) string {
			return t.Format(format)
		},
		"now": time.Now,
	}
}
