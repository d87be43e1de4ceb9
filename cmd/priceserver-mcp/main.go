package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	apiURL := os.Getenv("PRICE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:5000"
	}

	s := server.NewMCPServer(
		"catalyst-price",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	lookupTool := mcp.NewTool("lookup_catalyst_price",
		mcp.WithDescription("Look up the scrap price of a catalytic converter by the code stamped on its casing. Returns matching products with their indicative price in EUR."),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Catalytic converter code, e.g. '1J0 178 EB' or '4B0 131 701'"),
		),
	)
	s.AddTool(lookupTool, handleLookup(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleLookup(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := request.RequireString("code")
		if err != nil || code == "" {
			return mcp.NewToolResultError("code is required"), nil
		}

		status, body, err := lookup(ctx, client, apiURL, code)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}

		text, err := formatReply(code, status, body)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

// lookup calls GET /api/price and returns the raw status and body.
func lookup(ctx context.Context, client *http.Client, apiURL, code string) (int, []byte, error) {
	endpoint := apiURL + "/api/price?code=" + url.QueryEscape(code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
