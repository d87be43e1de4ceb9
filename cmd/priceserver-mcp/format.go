package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// priceReply mirrors both reply shapes of GET /api/price.
type priceReply struct {
	Success  bool   `json:"success"`
	Count    int    `json:"count"`
	Message  string `json:"message"`
	Products []struct {
		Title        string `json:"title"`
		DisplayPrice string `json:"display_price"`
		PriceEUR     int    `json:"price_eur"`
		SourceURL    string `json:"source_url"`
		Brands       string `json:"brands"`
		Models       string `json:"models"`
	} `json:"products"`

	// passthrough shape
	Status *int   `json:"status"`
	Data   string `json:"data"`

	Error string `json:"error"`
}

// formatReply renders an API reply as tool text. Non-200 replies become errors.
func formatReply(code string, status int, body []byte) (string, error) {
	var reply priceReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", fmt.Errorf("failed to parse response: %v", err)
	}

	if status != http.StatusOK {
		msg := reply.Error
		if msg == "" {
			msg = http.StatusText(status)
		}
		return "", fmt.Errorf("[%d] %s", status, msg)
	}

	code = strings.ToUpper(code)

	if reply.Status != nil {
		return fmt.Sprintf("%s\nUpstream status: %d\n\n%s", code, *reply.Status, reply.Data), nil
	}

	if !reply.Success || len(reply.Products) == 0 {
		return fmt.Sprintf("%s: no price found automatically.", code), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d result(s)\n\n", code, reply.Count)
	for i, p := range reply.Products {
		fmt.Fprintf(&sb, "[%d] %s: %s\n", i+1, p.Title, p.DisplayPrice)
		if p.Brands != "" {
			fmt.Fprintf(&sb, "    Car: %s", p.Brands)
			if p.Models != "" {
				fmt.Fprintf(&sb, " / %s", p.Models)
			}
			sb.WriteString("\n")
		}
		if p.SourceURL != "" {
			fmt.Fprintf(&sb, "    %s\n", p.SourceURL)
		}
	}
	return sb.String(), nil
}
