package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Remote calls an externally hosted model through a predict endpoint.
// Transient failures are retried with exponential backoff inside the
// caller's deadline; the ensemble handles anything that still fails.
type Remote struct {
	name   string
	url    string
	client *http.Client
}

// NewRemote creates a remote oracle client for the given predict URL.
func NewRemote(name, url string) *Remote {
	return &Remote{
		name: name,
		url:  url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (r *Remote) Name() string { return r.name }

type predictRequest struct {
	Features map[string]float64 `json:"features"`
}

type predictResponse struct {
	Score float64 `json:"score"`
}

// Predict posts the feature vector and returns the remote score.
func (r *Remote) Predict(ctx context.Context, fv *domain.FeatureVector) (float64, error) {
	names := domain.FeatureNames()
	values := fv.Values()

	payload := predictRequest{Features: make(map[string]float64, domain.NumFeatures)}
	for i, name := range names {
		payload.Features[name] = values[i]
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode predict request: %w", err)
	}

	var score float64
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("oracle %s returned %d", r.name, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("oracle %s returned %d", r.name, resp.StatusCode))
		}

		var pr predictResponse
		if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode predict response: %w", err))
		}
		score = pr.Score
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrScoringUnavailable, r.name, err)
	}

	if score < 0 || score > 1 {
		return 0, fmt.Errorf("%w: %s returned out-of-range score %f", domain.ErrScoringUnavailable, r.name, score)
	}
	return score, nil
}
