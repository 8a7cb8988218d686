package preflight

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultOllamaHost is used when the project configuration leaves
// embeddings.ollama_host empty.
const DefaultOllamaHost = "http://localhost:11434"

// CheckEmbedder verifies the configured embedding provider is reachable.
// A static provider never needs this check (RunAll skips it entirely in
// offline mode); an Ollama provider needs its host answering before an
// index run gets partway through a large workspace and starts failing
// embed calls.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "embedder",
		Required: false, // non-critical: the coordinator can run with vectors disabled
	}

	if c.embeddingsProvider == "static" {
		result.Status = StatusPass
		result.Message = "static embedder (no network dependency)"
		return result
	}

	host := c.ollamaHost
	if host == "" {
		host = DefaultOllamaHost
	}

	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, host, nil)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("invalid ollama host %q: %v", host, err)
		return result
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("ollama unreachable at %s (set CODANNA_EMBEDDER=static to index without it)", host)
		result.Details = err.Error()
		return result
	}
	_ = resp.Body.Close()

	result.Status = StatusPass
	result.Message = fmt.Sprintf("ollama reachable at %s", host)
	return result
}
