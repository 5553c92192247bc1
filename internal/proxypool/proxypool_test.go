package proxypool

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gh05t666nero/nrtf/internal/config"
	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/logger"
)

func testLogger() *logger.StyledLogger {
	return logger.NewStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExtractProxies(t *testing.T) {
	content := "# free proxy list\n" +
		"198.51.100.1:8080\n" +
		"198.51.100.2:3128 US elite\n" +
		"<td>198.51.100.3:1080</td>\n" +
		"198.51.100.4:0\n" +
		"198.51.100.5:70000\n" +
		"not-a-proxy\n"

	proxies := ExtractProxies(content, domain.ProxyHTTP)
	require.Len(t, proxies, 3)
	assert.Equal(t, "198.51.100.1", proxies[0].Host)
	assert.Equal(t, 8080, proxies[0].Port)
	assert.Equal(t, domain.ProxyHTTP, proxies[0].Type)
	assert.Equal(t, 1080, proxies[2].Port)
}

func TestStoreUpsertKeepsValidated(t *testing.T) {
	store := NewStore()
	p := domain.Proxy{Host: "198.51.100.1", Port: 8080, Type: domain.ProxyHTTP}
	store.Upsert(p)

	valid := true
	p.IsValid = &valid
	store.Put(p)

	// a refresh rediscovering the same identity must not erase the validation
	store.Upsert(domain.Proxy{Host: "198.51.100.1", Port: 8080, Type: domain.ProxyHTTP})

	got := store.Select(int(domain.ProxyHTTP), 10, true)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].IsValid)
	assert.True(t, *got[0].IsValid)
}

func TestStoreSelectFilters(t *testing.T) {
	store := NewStore()
	valid := true
	store.Put(domain.Proxy{Host: "198.51.100.1", Port: 8080, Type: domain.ProxyHTTP, IsValid: &valid})
	store.Upsert(domain.Proxy{Host: "198.51.100.2", Port: 8080, Type: domain.ProxyHTTP})
	store.Put(domain.Proxy{Host: "198.51.100.3", Port: 1080, Type: domain.ProxySOCKS5, IsValid: &valid})

	assert.Len(t, store.Select(int(domain.ProxyHTTP), 10, true), 1)
	assert.Len(t, store.Select(int(domain.ProxyHTTP), 10, false), 2)
	assert.Len(t, store.Select(0, 10, true), 2)
	assert.Len(t, store.Select(int(domain.ProxySOCKS4), 10, false), 0)

	store.Remove(domain.Proxy{Host: "198.51.100.3", Port: 1080, Type: domain.ProxySOCKS5}.Key())
	assert.Len(t, store.Select(0, 10, true), 1)
}

func TestStoreStaleness(t *testing.T) {
	store := NewStore()
	assert.True(t, store.Stale(time.Hour))

	store.MarkRefreshed()
	assert.False(t, store.Stale(time.Hour))
	assert.True(t, store.Stale(0))
}

func TestValidatorHTTPProxy(t *testing.T) {
	// stands in for an open HTTP proxy: answers any proxied GET with an
	// origin payload
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"origin": "198.51.100.77"})
	}))
	defer proxy.Close()

	u, err := url.Parse(proxy.URL)
	require.NoError(t, err)
	port, _ := strconv.Atoi(u.Port())

	v := NewValidator(2*time.Second, "http://echo.test/ip")
	p, ok := v.Validate(context.Background(), domain.Proxy{Host: u.Hostname(), Port: port, Type: domain.ProxyHTTP})
	require.True(t, ok)
	require.NotNil(t, p.IsValid)
	assert.True(t, *p.IsValid)
	require.NotNil(t, p.ResponseTime)
	assert.Positive(t, *p.ResponseTime)
	assert.NotNil(t, p.LastChecked)
}

func TestValidatorUnreachableProxy(t *testing.T) {
	v := NewValidator(200*time.Millisecond, "http://echo.test/ip")
	p, ok := v.Validate(context.Background(), domain.Proxy{Host: "127.0.0.1", Port: 1, Type: domain.ProxyHTTP})
	assert.False(t, ok)
	require.NotNil(t, p.IsValid)
	assert.False(t, *p.IsValid)
	assert.Nil(t, p.ResponseTime)
}

func newPoolAPI(t *testing.T, cfg config.ProxyPoolConfig, store *Store) *httptest.Server {
	t.Helper()
	if cfg.ValidateLimit == 0 {
		cfg.ValidateLimit = 10
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = time.Hour
	}
	service := NewService(cfg, store, nil, testLogger())
	s := &Server{service: service, log: testLogger()}
	api := httptest.NewServer(s.routes())
	t.Cleanup(api.Close)
	return api
}

func TestServerProxiesEndpoint(t *testing.T) {
	store := NewStore()
	store.MarkRefreshed()
	valid := true
	store.Put(domain.Proxy{Host: "198.51.100.1", Port: 8080, Type: domain.ProxyHTTP, IsValid: &valid})
	store.Upsert(domain.Proxy{Host: "198.51.100.2", Port: 9090, Type: domain.ProxyHTTP})

	api := newPoolAPI(t, config.ProxyPoolConfig{}, store)

	// count is pinned low so the read does not dip under the low-water mark
	// and kick a background validation of the fixture proxies
	var proxies []domain.Proxy
	resp, err := http.Get(api.URL + "/proxies?count=2")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&proxies))
	resp.Body.Close()
	require.Len(t, proxies, 1)
	assert.Equal(t, "198.51.100.1", proxies[0].Host)

	resp, err = http.Get(api.URL + "/proxies?count=2&valid_only=false")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&proxies))
	resp.Body.Close()
	assert.Len(t, proxies, 2)
}

func TestServerProxiesEmptyPoolIsList(t *testing.T) {
	store := NewStore()
	store.MarkRefreshed()
	api := newPoolAPI(t, config.ProxyPoolConfig{}, store)

	resp, err := http.Get(api.URL + "/proxies?type=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(body))
}

func TestServerProxiesRejectsBadType(t *testing.T) {
	store := NewStore()
	store.MarkRefreshed()
	api := newPoolAPI(t, config.ProxyPoolConfig{}, store)

	for _, q := range []string{"type=2", "type=3", "type=abc"} {
		resp, err := http.Get(api.URL + "/proxies?" + q)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		assert.Contains(t, body["detail"], "invalid proxy type")
	}
}

func TestServerRefreshMergesSources(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "198.51.100.1:8080\n198.51.100.2:3128\n")
	}))
	defer source.Close()

	store := NewStore()
	cfg := config.ProxyPoolConfig{
		FetchTimeout: time.Second,
		Sources:      []config.ProxySourceConfig{{URL: source.URL, Type: 1}},
	}
	api := newPoolAPI(t, cfg, store)

	resp, err := http.Post(api.URL+"/refresh", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "Refreshing proxies in background")

	require.Eventually(t, func() bool {
		return store.Counts()["http"] == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.False(t, store.Stale(time.Hour))
}

func TestServerStats(t *testing.T) {
	store := NewStore()
	store.MarkRefreshed()
	store.Upsert(domain.Proxy{Host: "198.51.100.1", Port: 8080, Type: domain.ProxyHTTP})
	api := newPoolAPI(t, config.ProxyPoolConfig{}, store)

	resp, err := http.Get(api.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	proxies := stats["proxies"].(map[string]any)
	assert.Equal(t, float64(1), proxies["http"])
	assert.Contains(t, stats, "stats")
	assert.NotNil(t, stats["last_refresh"])
}
