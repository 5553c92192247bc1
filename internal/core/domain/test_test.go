package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestRequestValidate(t *testing.T) {
	proxyType := func(v int) *int { return &v }

	tests := []struct {
		name    string
		req     TestRequest
		wantErr bool
	}{
		{
			name: "valid request",
			req:  TestRequest{Target: "http://example.test/", Method: "HTTP_FLOOD", Duration: 30, Threads: 10},
		},
		{
			name: "boundary duration accepted",
			req:  TestRequest{Target: "example.test", Method: "HTTP_FLOOD", Duration: 300, Threads: 1000},
		},
		{
			name:    "duration over limit",
			req:     TestRequest{Target: "example.test", Method: "HTTP_FLOOD", Duration: 301, Threads: 10},
			wantErr: true,
		},
		{
			name:    "duration zero",
			req:     TestRequest{Target: "example.test", Method: "HTTP_FLOOD", Duration: 0, Threads: 10},
			wantErr: true,
		},
		{
			name:    "threads over limit",
			req:     TestRequest{Target: "example.test", Method: "HTTP_FLOOD", Duration: 30, Threads: 1001},
			wantErr: true,
		},
		{
			name:    "empty target",
			req:     TestRequest{Target: "", Method: "HTTP_FLOOD", Duration: 30, Threads: 10},
			wantErr: true,
		},
		{
			name: "proxy type any",
			req:  TestRequest{Target: "example.test", Method: "HTTP_FLOOD", Duration: 30, Threads: 10, ProxyType: proxyType(0)},
		},
		{
			name: "proxy type socks5",
			req:  TestRequest{Target: "example.test", Method: "HTTP_FLOOD", Duration: 30, Threads: 10, ProxyType: proxyType(5)},
		},
		{
			name:    "proxy type 2 rejected",
			req:     TestRequest{Target: "example.test", Method: "HTTP_FLOOD", Duration: 30, Threads: 10, ProxyType: proxyType(2)},
			wantErr: true,
		},
		{
			name:    "proxy type 3 rejected",
			req:     TestRequest{Target: "example.test", Method: "HTTP_FLOOD", Duration: 30, Threads: 10, ProxyType: proxyType(3)},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				require.Error(t, err)
				var ve *ValidationError
				assert.ErrorAs(t, err, &ve)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusStopped.IsTerminal())
}

func TestTestResponseTimestamps(t *testing.T) {
	test := Test{
		ID:     "id-1",
		User:   "alice",
		Target: "http://example.test/",
		Method: "HTTP_FLOOD",
		Status: StatusQueued,
	}
	resp := test.Response()
	assert.Nil(t, resp.StartTime)
	assert.Nil(t, resp.EndTime)

	start := time.Now()
	test.StartTime = start
	test.EndTime = start.Add(2 * time.Second)
	test.Status = StatusCompleted

	resp = test.Response()
	require.NotNil(t, resp.StartTime)
	require.NotNil(t, resp.EndTime)
	assert.InDelta(t, float64(start.UnixNano())/1e9, *resp.StartTime, 0.001)
	assert.GreaterOrEqual(t, *resp.EndTime, *resp.StartTime)
}

func TestMethodCatalog(t *testing.T) {
	assert.True(t, MethodExists("HTTP_FLOOD"))
	assert.True(t, MethodExists("SYN_FLOOD"))
	assert.True(t, MethodExists("ICMP_FLOOD"))
	assert.False(t, MethodExists("BOGUS_FLOOD"))
	assert.Len(t, Methods, 10)
}
