package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// HTTPDecoder calls a model server speaking the TensorFlow Serving REST
// predict protocol: POST {endpoint}/v1/models/{model}:predict with
// {"instances": [z]} answered by {"predictions": [image]}.
type HTTPDecoder struct {
	url    string
	client *http.Client
	closed atomic.Bool
}

// NewHTTPDecoder creates a decoder for model at endpoint.
func NewHTTPDecoder(endpoint, model string, timeout time.Duration) *HTTPDecoder {
	return &HTTPDecoder{
		url:    strings.TrimRight(endpoint, "/") + "/v1/models/" + model + ":predict",
		client: &http.Client{Timeout: timeout},
	}
}

// HTTPFactory returns a Factory building an HTTPDecoder.
func HTTPFactory(endpoint, model string, timeout time.Duration) Factory {
	return func(context.Context) (Decoder, error) {
		return NewHTTPDecoder(endpoint, model, timeout), nil
	}
}

// URL returns the predict URL.
func (d *HTTPDecoder) URL() string { return d.url }

type predictRequest struct {
	Instances [][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions []json.RawMessage `json:"predictions"`
	Error       string            `json:"error"`
}

// Decode sends one instance and flattens the first prediction.
func (d *HTTPDecoder) Decode(ctx context.Context, z []float32) ([]float32, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}

	body, err := json.Marshal(predictRequest{Instances: [][]float32{z}})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", d.url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var pr predictResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("predict %s: status %d: %s", d.url, resp.StatusCode, pr.Error)
	}
	if len(pr.Predictions) == 0 {
		return nil, fmt.Errorf("predict %s: empty predictions", d.url)
	}

	var out []float32
	if err := flatten(pr.Predictions[0], &out); err != nil {
		return nil, err
	}
	return out, nil
}

// flatten appends the numbers of an arbitrarily nested JSON array.
func flatten(raw json.RawMessage, out *[]float32) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("decoding prediction: %w", err)
		}
		for _, it := range items {
			if err := flatten(it, out); err != nil {
				return err
			}
		}
		return nil
	}
	var v float32
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decoding prediction value %s: %w", raw, err)
	}
	*out = append(*out, v)
	return nil
}

// Close marks the decoder closed and drops idle connections.
func (d *HTTPDecoder) Close() error {
	d.closed.Store(true)
	d.client.CloseIdleConnections()
	return nil
}
