package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
)

var (
	apiURL = flag.String("api-url", "http://localhost:5000", "Price server base URL")
	runs   = flag.Int("runs", 3, "Number of lookups per code")
	codes  = flag.String("codes", "1J0 178 EB,4B0 131 701,KT 1043,GM 25", "Comma-separated converter codes")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// priceReply covers both reply shapes of GET /api/price.
type priceReply struct {
	Success  bool              `json:"success"`
	Count    int               `json:"count"`
	Products []json.RawMessage `json:"products"`
	Status   *int              `json:"status"`
	Data     string            `json:"data"`
	Error    string            `json:"error"`
}

type runResult struct {
	Run        int    `json:"run"`
	TotalMs    int64  `json:"total_ms"`
	HTTPStatus int    `json:"http_status"`
	Products   int    `json:"products"`
	DataLength int    `json:"data_length"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type codeAverages struct {
	TotalMs  float64 `json:"total_ms"`
	Products float64 `json:"products"`
}

type codeResult struct {
	Code     string        `json:"code"`
	Runs     []runResult   `json:"runs"`
	Averages *codeAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp   string       `json:"timestamp"`
	APIURL      string       `json:"api_url"`
	RunsPerCode int          `json:"runs_per_code"`
	Results     []codeResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Catalyst Price Benchmark ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/code: %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure priceserver is running\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		APIURL:      *apiURL,
		RunsPerCode: *runs,
	}

	client := &http.Client{Timeout: 60 * time.Second}
	for _, code := range splitCodes(*codes) {
		fmt.Printf("Looking up %q ...\n", code)
		cr := codeResult{Code: code}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkCode(client, *apiURL, code, i)
			if rr.Error == "" {
				fmt.Printf("%d  %dms  %d product(s)\n", rr.HTTPStatus, rr.TotalMs, rr.Products)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			cr.Runs = append(cr.Runs, rr)
		}

		cr.Averages = computeAverages(cr.Runs)
		report.Results = append(report.Results, cr)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func splitCodes(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkCode(client *http.Client, baseURL, code string, run int) runResult {
	rr := runResult{Run: run}

	start := time.Now()
	resp, err := client.Get(baseURL + "/api/price?code=" + url.QueryEscape(code))
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var reply priceReply
	err = json.NewDecoder(resp.Body).Decode(&reply)
	rr.TotalMs = time.Since(start).Milliseconds()
	rr.HTTPStatus = resp.StatusCode
	if err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	if resp.StatusCode != http.StatusOK {
		rr.Error = reply.Error
		return rr
	}
	rr.Success = reply.Success
	rr.Products = len(reply.Products)
	rr.DataLength = len(reply.Data)
	return rr
}

// computeAverages averages the runs that got a 200 reply.
func computeAverages(runs []runResult) *codeAverages {
	var n int
	var avg codeAverages
	for _, r := range runs {
		if r.Error != "" {
			continue
		}
		n++
		avg.TotalMs += float64(r.TotalMs)
		avg.Products += float64(r.Products)
	}
	if n == 0 {
		return nil
	}
	avg.TotalMs /= float64(n)
	avg.Products /= float64(n)
	return &avg
}

func printTable(results []codeResult) {
	fmt.Println(strings.Repeat("─", 70))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Code\tAvg Latency\tProducts\tStatuses\n")
	fmt.Fprintf(w, "────\t───────────\t────────\t────────\n")

	for _, r := range results {
		statuses := statusSummary(r.Runs)
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t%s\n", r.Code, statuses)
			continue
		}
		fmt.Fprintf(w, "%s\t%dms\t%.1f\t%s\n",
			r.Code,
			int64(r.Averages.TotalMs),
			r.Averages.Products,
			statuses,
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 70))
}

// statusSummary renders the HTTP statuses seen, e.g. "200x2 504x1".
func statusSummary(runs []runResult) string {
	counts := map[int]int{}
	for _, r := range runs {
		if r.HTTPStatus != 0 {
			counts[r.HTTPStatus]++
		}
	}
	if len(counts) == 0 {
		return "-"
	}
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%dx%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
