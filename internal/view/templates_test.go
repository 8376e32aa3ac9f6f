package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderStatusWritesPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, engine.RenderStatus(rec, 422, "pages/login.html", TemplateData{Title: "Sign in", CSRFToken: "tok"}))
	assert.Equal(t, 422, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `name="csrf_token" value="tok"`)
}

func TestRenderUnknownTemplate(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	assert.Error(t, engine.Render(rec, "pages/missing.html", TemplateData{}))
	assert.Equal(t, 500, rec.Code)
}

func TestFuncMap(t *testing.T) {
	funcs := FuncMap()
	assert.Equal(t, "12,345", funcs["formatCount"].(func(int) string)(12345))
	assert.Equal(t, "/zones?page=3", funcs["pageURL"].(func(string, int) string)("/zones", 3))

	dict := funcs["dict"].(func(...any) (map[string]any, error))
	m, err := dict("a", 1, "b", "two")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": "two"}, m)
	_, err = dict("a")
	assert.Error(t, err)
}
