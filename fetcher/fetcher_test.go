package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rekat/price-server/models"
	"github.com/rekat/price-server/target"
)

func getTarget(endpoint string) target.Target {
	return target.Target{
		Name:      "test-get",
		Mode:      target.ModeStructured,
		Method:    http.MethodGet,
		Endpoint:  endpoint + "/search?lang=en",
		Origin:    endpoint,
		CodeParam: "q",
		Headers:   map[string]string{"User-Agent": "test-agent", "Referer": endpoint + "/"},
		Timeout:   2 * time.Second,
		Selectors: target.Selectors{Card: ".product-card"},
		Rate:      target.EURPerUSD,
	}
}

func postTarget(endpoint string) target.Target {
	return target.Target{
		Name:      "test-post",
		Mode:      target.ModePassthrough,
		Method:    http.MethodPost,
		Endpoint:  endpoint + "/wp-admin/admin-ajax.php",
		CodeParam: "szukaj",
		Params:    map[string]string{"action": "cur_price_table", "tc_lang": "sk"},
		Headers:   map[string]string{"X-Requested-With": "XMLHttpRequest"},
		Timeout:   2 * time.Second,
	}
}

func TestFetch_GetPutsCodeInQuery(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "1J0 178 EB&x", r.URL.Query().Get("q"))
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	f, err := New(getTarget(server.URL))
	require.NoError(t, err)

	raw, err := f.Fetch(context.Background(), "1J0 178 EB&x")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, raw.StatusCode)
	assert.Equal(t, "<html></html>", raw.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_PostPutsCodeInForm(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "4B0 131 701", r.PostForm.Get("szukaj"))
		assert.Equal(t, "cur_price_table", r.PostForm.Get("action"))
		assert.Equal(t, "sk", r.PostForm.Get("tc_lang"))
		w.Write([]byte(`<table class="price"></table>`))
	}))
	defer server.Close()

	f, err := New(postTarget(server.URL))
	require.NoError(t, err)

	raw, err := f.Fetch(context.Background(), "4B0 131 701")
	require.NoError(t, err)
	assert.Equal(t, `<table class="price"></table>`, raw.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_NonSuccessStatusIsNotAnError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	f, err := New(getTarget(server.URL))
	require.NoError(t, err)

	raw, err := f.Fetch(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, raw.StatusCode)
	assert.Equal(t, "maintenance", raw.Body)
	assert.Equal(t, int32(1), calls.Load(), "no retries")
}

func TestFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	tg := getTarget(server.URL)
	tg.Timeout = 50 * time.Millisecond
	f, err := New(tg)
	require.NoError(t, err)

	start := time.Now()
	_, err = f.Fetch(context.Background(), "ABC")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	var pe *models.PriceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, models.ErrCodeUpstreamTimeout, pe.Code)
}

func TestFetch_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	f, err := New(getTarget(endpoint))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "ABC")
	require.Error(t, err)

	var pe *models.PriceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, models.ErrCodeTransport, pe.Code)
	assert.NotEmpty(t, pe.Message)
}

func TestNew_CopiesTarget(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	tg := getTarget(server.URL)
	f, err := New(tg)
	require.NoError(t, err)
	tg.Headers["User-Agent"] = "changed"

	_, err = f.Fetch(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, "test-agent", gotHeader)
}

func TestNew_RejectsInvalidTarget(t *testing.T) {
	tg := getTarget("http://127.0.0.1")
	tg.Endpoint = ""
	_, err := New(tg)
	assert.Error(t, err)
}

func TestWithChromeTLS_PlainHTTPStillWorks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f, err := New(getTarget(server.URL), WithChromeTLS())
	require.NoError(t, err)

	raw, err := f.Fetch(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, "ok", raw.Body)
}

func TestFetch_BodyLimit(t *testing.T) {
	testCases := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"at limit", maxBody, false},
		{"over limit", maxBody + 1, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(strings.Repeat("x", tc.size)))
			}))
			defer server.Close()

			f, err := New(postTarget(server.URL))
			require.NoError(t, err)

			raw, err := f.Fetch(context.Background(), "ABC")
			if !tc.wantErr {
				require.NoError(t, err)
				assert.Len(t, raw.Body, tc.size)
				return
			}
			require.Error(t, err)
			assert.Nil(t, raw)

			var pe *models.PriceError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, models.ErrCodeTransport, pe.Code)
		})
	}
}

// countingTransport counts round trips before handing them to next.
type countingTransport struct {
	calls atomic.Int32
	next  http.RoundTripper
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return c.next.RoundTrip(r)
}

func TestWithHTTPClient_OneRoundTripPerFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	rt := &countingTransport{next: http.DefaultTransport}
	f, err := New(getTarget(server.URL), WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		raw, err := f.Fetch(context.Background(), "ABC")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, raw.StatusCode)
		assert.Equal(t, int32(i), rt.calls.Load())
	}
}

func TestWithHTTPClient_TargetTimeoutStillApplies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	tg := getTarget(server.URL)
	tg.Timeout = 50 * time.Millisecond
	f, err := New(tg, WithHTTPClient(&http.Client{}))
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "ABC")
	var pe *models.PriceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, models.ErrCodeUpstreamTimeout, pe.Code)
}

func TestChromeTransport_DialsDirectly(t *testing.T) {
	assert.Nil(t, newChromeTransport().Proxy)
}

func TestChromeH1Spec_PinsHTTP1(t *testing.T) {
	spec, err := chromeH1Spec()
	require.NoError(t, err)

	var protos []string
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			protos = alpn.AlpnProtocols
		}
	}
	assert.Equal(t, []string{"http/1.1"}, protos)
}
