package items

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/bytedance/sonic"

	"github.com/confshare/confshare-go/tool"
)

const (
	modelListTTL  = 5 * time.Minute
	modelListPath = "/v1/models"
)

// ModelStore fetches and caches the model list of an OpenAI-compatible
// endpoint. The cache is explicit and owned here: one TTL, one invalidation
// call, no ambient globals.
type ModelStore struct {
	endpoint string
	apiKey   string
	client   *http.Client
	cache    *ttlworker.Cache[string, []string]
}

// NewModelStore creates a store for endpoint (base URL without /v1/models).
func NewModelStore(endpoint, apiKey string) *ModelStore {
	return &ModelStore{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		client:   tool.GetHttpClient(),
		cache:    ttlworker.NewCache[string, []string](modelListTTL),
	}
}

// cacheKey derives the cache key from the endpoint so switching endpoints
// never serves a stale list.
func (s *ModelStore) cacheKey() string {
	return "models:" + s.endpoint
}

// List returns the model ids served by the endpoint, from cache when fresh.
func (s *ModelStore) List(ctx context.Context) ([]string, error) {
	if cached := s.cache.Get(s.cacheKey()); cached != nil {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+modelListPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build model list request: %v", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model list request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model list request returned %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read model list: %v", err)
	}

	var decoded struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to parse model list: %v", err)
	}
	models := make([]string, 0, len(decoded.Data))
	for _, m := range decoded.Data {
		models = append(models, m.ID)
	}

	s.cache.Set(s.cacheKey(), models)
	return models, nil
}

// Invalidate drops the cached list so the next List refetches.
func (s *ModelStore) Invalidate() {
	s.cache.Delete(s.cacheKey())
}
