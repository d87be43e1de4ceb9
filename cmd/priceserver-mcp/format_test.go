package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatReply_Products(t *testing.T) {
	body := `{"success":true,"count":2,"products":[
		{"title":"Catalyst XYZ","image":"","price_usd":500,"price_eur":460,"display_price":"460 €","source_url":"https://x.test/p/1","brands":"Volkswagen","models":"Golf IV"},
		{"title":"Catalyst ABC","image":"","price_usd":0,"price_eur":0,"display_price":"Price hidden","source_url":""}
	]}`

	text, err := formatReply("1j0 178 eb", http.StatusOK, []byte(body))
	require.NoError(t, err)
	assert.Contains(t, text, "1J0 178 EB: 2 result(s)")
	assert.Contains(t, text, "[1] Catalyst XYZ: 460 €")
	assert.Contains(t, text, "Car: Volkswagen / Golf IV")
	assert.Contains(t, text, "https://x.test/p/1")
	assert.Contains(t, text, "[2] Catalyst ABC: Price hidden")
}

func TestFormatReply_NoResults(t *testing.T) {
	body := `{"success":false,"count":0,"products":[],"message":"Start searching"}`

	text, err := formatReply("abc", http.StatusOK, []byte(body))
	require.NoError(t, err)
	assert.Equal(t, "ABC: no price found automatically.", text)
}

func TestFormatReply_Passthrough(t *testing.T) {
	body := `{"success":true,"status":200,"data":"<table>row</table>"}`

	text, err := formatReply("abc", http.StatusOK, []byte(body))
	require.NoError(t, err)
	assert.Contains(t, text, "Upstream status: 200")
	assert.Contains(t, text, "<table>row</table>")
}

func TestFormatReply_ErrorStatus(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"with message", http.StatusGatewayTimeout, `{"error":"upstream timed out"}`, "[504] upstream timed out"},
		{"without message", http.StatusBadGateway, `{}`, "[502] Bad Gateway"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := formatReply("abc", tc.status, []byte(tc.body))
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestFormatReply_InvalidJSON(t *testing.T) {
	_, err := formatReply("abc", http.StatusOK, []byte("<html>"))
	assert.Error(t, err)
}

func TestLookup_EscapesCode(t *testing.T) {
	var gotCode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/price", r.URL.Path)
		gotCode = r.URL.Query().Get("code")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":false,"products":[]}`))
	}))
	defer srv.Close()

	status, body, err := lookup(context.Background(), srv.Client(), srv.URL, "1J0 178&EB")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"success":false,"products":[]}`, string(body))
	assert.Equal(t, "1J0 178&EB", gotCode)
}
