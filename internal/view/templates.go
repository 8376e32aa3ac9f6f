package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/storefront-admin/internal/shared"
	"github.com/odyssey-erp/storefront-admin/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	Notices     []shared.FlashMessage
	CurrentPath string
	AdminName   string
	Data        any
}

var printer = message.NewPrinter(language.English)

// FuncMap returns the helpers available to every template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"formatCount": func(n int) string {
			return printer.Sprintf("%d", n)
		},
		"pageURL": func(path string, page int) string {
			return path + "?" + url.Values{"page": {strconv.Itoa(page)}}.Encode()
		},
		"hasPrefix": strings.HasPrefix,
		"joinStrings": func(items []string, sep string) string {
			return strings.Join(items, sep)
		},
		"dict": func(pairs ...any) (map[string]any, error) {
			if len(pairs)%2 != 0 {
				return nil, fmt.Errorf("dict: odd number of arguments")
			}
			out := make(map[string]any, len(pairs)/2)
			for i := 0; i < len(pairs); i += 2 {
				key, ok := pairs[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
				}
				out[key] = pairs[i+1]
			}
			return out, nil
		},
	}
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(FuncMap()).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus executes a named template into a buffer and writes it with
// status. Template errors produce a plain 500.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
