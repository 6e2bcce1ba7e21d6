package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadyz(t *testing.T) {
	healthy := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := call(NewHealthRoute(healthy).Readyz, http.MethodGet, "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())

	rec = call(NewHealthRoute(down).Readyz, http.MethodGet, "", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"store unavailable"}`, rec.Body.String())

	h := NewHealthRoute(healthy)
	assert.True(t, h.Drain())
	assert.False(t, h.Drain())

	rec = call(h.Readyz, http.MethodGet, "", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"not ready"}`, rec.Body.String())
}

func TestHealthAndLivez(t *testing.T) {
	h := NewHealthRoute(pingFunc(func(context.Context) error { return errors.New("down") }))

	rec := call(h.Health, http.MethodGet, "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = call(h.Livez, http.MethodGet, "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}
