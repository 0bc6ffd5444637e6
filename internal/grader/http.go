package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mroshb/word_game/pkg/errors"
)

// HTTPGrader delegates to a remote judge that accepts a Request as JSON and
// answers with a Result.
type HTTPGrader struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTPGrader(url, apiKey string, client *http.Client) *HTTPGrader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPGrader{url: url, apiKey: apiKey, client: client}
}

func (g *HTTPGrader) Evaluate(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.New(errors.ErrCodeGraderFailure,
			fmt.Sprintf("grader answered %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)))
	}

	var result Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraderFailure, "grader sent an unreadable result")
	}
	return &result, nil
}
