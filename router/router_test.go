package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, body)
	}
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouter_ServesOnlyAfterCompile(t *testing.T) {
	r := New()
	r.GET("/hello").With(text("hi"))

	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/hello").Code)
	assert.False(t, r.Compiled())

	require.NoError(t, r.Compile())
	assert.True(t, r.Compiled())

	rec := serve(r, http.MethodGet, "/hello")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi", rec.Body.String())
}

func TestRouter_Matching(t *testing.T) {
	r := New()
	r.GET("/users/{id:[0-9]+}").With(func(w http.ResponseWriter, req *http.Request) {
		_, _ = io.WriteString(w, "user "+Vars(req)["id"])
	})
	r.POST("/users").With(text("created"))
	r.PUT("/users/{id}").With(text("put"))
	r.PATCH("/users/{id}").With(text("patch"))
	r.DELETE("/users/{id}").With(text("deleted"))
	require.NoError(t, r.Compile())

	tests := []struct {
		method string
		path   string
		code   int
		body   string
	}{
		{http.MethodGet, "/users/42", http.StatusOK, "user 42"},
		{http.MethodPost, "/users", http.StatusOK, "created"},
		{http.MethodPut, "/users/1", http.StatusOK, "put"},
		{http.MethodPatch, "/users/1", http.StatusOK, "patch"},
		{http.MethodDelete, "/users/1", http.StatusOK, "deleted"},
		{http.MethodGet, "/users/abc/orders", http.StatusNotFound, ""},
		{http.MethodGet, "/nothing", http.StatusNotFound, ""},
		{http.MethodPost, "/users/1", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := serve(r, tt.method, tt.path)
			assert.Equal(t, tt.code, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestRouter_CompileExactlyOnce(t *testing.T) {
	r := New()
	require.NoError(t, r.Compile())
	assert.ErrorIs(t, r.Compile(), ErrAlreadyCompiled)
}

func TestRouter_FrozenAfterCompile(t *testing.T) {
	r := New()
	pending := r.GET("/a").With(text("a"))
	require.NoError(t, r.Compile())

	assert.PanicsWithValue(t, ErrRoutesFrozen, func() { r.GET("/b") })
	assert.PanicsWithValue(t, ErrRoutesFrozen, func() { pending.Named("late") })
}

func TestRouter_CompileFailures(t *testing.T) {
	tests := []struct {
		name    string
		declare func(r *Router)
	}{
		{"missing handler", func(r *Router) { r.GET("/a") }},
		{"nil handler func", func(r *Router) { r.GET("/a").With(nil) }},
		{"relative path", func(r *Router) { r.GET("a").With(text("a")) }},
		{"duplicate name", func(r *Router) {
			r.GET("/a").With(text("a")).Named("x")
			r.GET("/b").With(text("b")).Named("x")
		}},
		{"bad template", func(r *Router) { r.GET("/a/{id").With(text("a")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			tt.declare(r)
			assert.Error(t, r.Compile())
			assert.False(t, r.Compiled())
			assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/a").Code)
		})
	}
}

func TestRouter_Reverse(t *testing.T) {
	r := New()
	r.GET("/users/{id}").With(text("u")).Named("user")

	_, err := r.Reverse("user", "id", "7")
	assert.Error(t, err, "not compiled yet")

	require.NoError(t, r.Compile())
	path, err := r.Reverse("user", "id", "7")
	require.NoError(t, err)
	assert.Equal(t, "/users/7", path)

	_, err = r.Reverse("missing")
	assert.ErrorIs(t, err, ErrUnknownRoute)
}

func TestRouter_Routes(t *testing.T) {
	r := New()
	r.Route("get", "/a").With(text("a")).Named("a")
	r.POST("/b").With(text("b"))

	assert.Equal(t, []RouteInfo{
		{Method: "GET", Path: "/a", Name: "a"},
		{Method: "POST", Path: "/b"},
	}, r.Routes())
}

func TestRoutesFunc(t *testing.T) {
	var routes Routes = RoutesFunc(func(r *Router) error {
		r.GET("/").With(text("root"))
		return nil
	})

	r := New()
	require.NoError(t, routes.Init(r))
	require.NoError(t, r.Compile())
	assert.Equal(t, "root", serve(r, http.MethodGet, "/").Body.String())
}
