package openai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"syscall"

	goopenai "github.com/sashabaranov/go-openai"
)

// placeholderAPIKey is sent to local servers that ignore authentication.
const placeholderAPIKey = "not-needed"

// chatClient is the subset of *goopenai.Client used by Backend.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// embeddingClient is the subset of *goopenai.Client used by Embedder.
type embeddingClient interface {
	CreateEmbeddings(ctx context.Context, req goopenai.EmbeddingRequestConverter) (goopenai.EmbeddingResponse, error)
}

// newClient builds a client for an OpenAI-compatible server.
func newClient(baseURL, apiKey string) *goopenai.Client {
	if apiKey == "" {
		apiKey = placeholderAPIKey
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return goopenai.NewClientWithConfig(cfg)
}

// isConnectivityError reports whether err means the server could not be
// reached or is temporarily unavailable.
func isConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	switch statusCode(err) {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// statusCode extracts the HTTP status of a failed API call, or 0.
func statusCode(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
