package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPBenchmarkClient scores PromptVariants against an external
// evaluation service's /benchmark endpoint, grounded on
// evolution.py's _benchmark_variants.
type HTTPBenchmarkClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPBenchmarkClient(baseURL string, timeout time.Duration) *HTTPBenchmarkClient {
	return &HTTPBenchmarkClient{baseURL: baseURL, httpClient: &http.Client{Timeout: timeout}}
}

type benchmarkRequest struct {
	VariantID string `json:"variant_id"`
	Prompt    string `json:"prompt"`
	Model     string `json:"model"`
	Dataset   string `json:"dataset"`
}

type benchmarkResponse struct {
	Scores map[string]float64 `json:"scores"`
}

// Benchmark posts one variant for scoring. On any transport, status or
// decode error it returns a neutral accuracy score (0.5) together with
// the error, in the spirit of the original's fail-soft
// benchmark_single; a reply with no scores yields neutral defaults and
// no error.
func (c *HTTPBenchmarkClient) Benchmark(ctx context.Context, variant PromptVariant, dataset string) (map[string]float64, error) {
	body, err := json.Marshal(benchmarkRequest{
		VariantID: variant.ID,
		Prompt:    variant.Content,
		Model:     variant.Backend,
		Dataset:   dataset,
	})
	if err != nil {
		return map[string]float64{"accuracy": 0.5}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/benchmark", bytes.NewReader(body))
	if err != nil {
		return map[string]float64{"accuracy": 0.5}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return map[string]float64{"accuracy": 0.5}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return map[string]float64{"accuracy": 0.5}, fmt.Errorf("benchmark service returned status %d", resp.StatusCode)
	}

	var out benchmarkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return map[string]float64{"accuracy": 0.5}, err
	}
	if len(out.Scores) == 0 {
		return map[string]float64{"accuracy": 0.5, "latency": 1.0, "tool_use_success": 0.5}, nil
	}
	return out.Scores, nil
}
