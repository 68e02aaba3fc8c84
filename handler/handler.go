package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/search"
)

// Searcher is the slice of search capability the handler needs.
type Searcher interface {
	Search(ctx context.Context, req *search.SearchRequest) ([]*core.ScoredMatch, error)
}

// Request is the JSON shape of an incoming search call.
// Omitted optional fields take the documented defaults.
type Request struct {
	Query               string   `json:"query"`
	MaxResults          *int     `json:"max_results,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
}

// Result is one ranked match in the response.
type Result struct {
	Document   string            `json:"document"`
	Similarity float64           `json:"similarity"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Timestamp  string            `json:"timestamp"`
	Key        string            `json:"key"`
}

// Response is the JSON shape of a search answer. Exactly one of Error or the
// result fields is meaningful: a failed search carries Error and nothing else.
type Response struct {
	Results    []Result `json:"results"`
	Query      string   `json:"query"`
	NumResults int      `json:"num_results"`
	Error      string   `json:"error,omitempty"`
}

// MarshalJSON emits either the error shape {"error": ...} or the result
// shape {"results": ..., "query": ..., "num_results": ...}, never a mix.
// An empty result set serializes as [] rather than null.
func (r *Response) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	}

	results := r.Results
	if results == nil {
		results = []Result{}
	}
	return json.Marshal(struct {
		Results    []Result `json:"results"`
		Query      string   `json:"query"`
		NumResults int      `json:"num_results"`
	}{results, r.Query, r.NumResults})
}

// Handler adapts the search engine to a JSON request/response surface.
type Handler struct {
	searcher Searcher
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) error {
		if logger == nil {
			logger = slog.Default()
		}
		h.logger = logger
		return nil
	}
}

// NewHandler creates a handler over the given searcher.
func NewHandler(searcher Searcher, opts ...Option) (*Handler, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}

	h := &Handler{
		searcher: searcher,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// Handle runs one search request end to end. Failures are reported inside the
// Response rather than as a Go error, so callers always have a serializable
// answer to hand back.
func (h *Handler) Handle(ctx context.Context, req *Request) *Response {
	if req == nil || req.Query == "" {
		return &Response{Error: "query is required"}
	}

	searchReq := search.NewSearchRequest(req.Query)
	if req.MaxResults != nil {
		searchReq.MaxResults = *req.MaxResults
	}
	if req.SimilarityThreshold != nil {
		searchReq.SimilarityThreshold = float32(*req.SimilarityThreshold)
	}

	matches, err := h.searcher.Search(ctx, searchReq)
	if err != nil {
		h.logger.Error("search failed", "query", req.Query, "err", err)
		return &Response{Error: err.Error()}
	}

	results := make([]Result, len(matches))
	for i, match := range matches {
		results[i] = Result{
			Document:   match.Record.DocumentID,
			Similarity: float64(match.Score),
			Text:       match.Record.Preview,
			Metadata:   match.Record.Metadata,
			Timestamp:  match.Record.CreatedAt.UTC().Format(time.RFC3339),
			Key:        match.StorageKey,
		}
	}

	return &Response{
		Results:    results,
		Query:      req.Query,
		NumResults: len(results),
	}
}

// HandleJSON is Handle over raw JSON bytes. Malformed input becomes an error
// response; the returned bytes are always valid JSON.
func (h *Handler) HandleJSON(ctx context.Context, payload []byte) []byte {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return mustMarshal(&Response{Error: "invalid request: " + err.Error()})
	}
	return mustMarshal(h.Handle(ctx, &req))
}

func mustMarshal(resp *Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		// Response contains only strings, numbers, and string maps.
		return []byte(`{"error":"response serialization failed"}`)
	}
	return data
}
