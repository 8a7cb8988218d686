package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckEmbedder_StaticProviderAlwaysPasses(t *testing.T) {
	checker := New(WithEmbeddings("static", ""))
	result := checker.CheckEmbedder(context.Background())

	assert.Equal(t, StatusPass, result.Status)
	assert.False(t, result.Required)
}

func TestCheckEmbedder_OllamaReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := New(WithEmbeddings("ollama", srv.URL))
	result := checker.CheckEmbedder(context.Background())

	assert.Equal(t, StatusPass, result.Status)
}

func TestCheckEmbedder_OllamaUnreachable(t *testing.T) {
	checker := New(WithEmbeddings("ollama", "http://127.0.0.1:1"))
	result := checker.CheckEmbedder(context.Background())

	assert.Equal(t, StatusWarn, result.Status)
	assert.False(t, result.Required)
}
