package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hamed0406/statuswatch/internal/status"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:3000"
	}
	base := flag.String("api", api, "base URL of a running statuswatch")
	asJSON := flag.Bool("json", false, "print the raw JSON rows")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Parse()

	rows, raw, err := fetch(*base, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error contacting API:", err)
		os.Exit(1)
	}

	if *asJSON {
		_, _ = os.Stdout.Write(raw)
		return
	}

	failing := printRows(os.Stdout, rows)
	if failing > 0 {
		os.Exit(2)
	}
}

func fetch(base string, timeout time.Duration) ([]status.Row, []byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	url := strings.TrimRight(base, "/") + "/api/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("API returned status: %s", resp.Status)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, err
	}
	var rows []status.Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, nil, fmt.Errorf("decode: %w", err)
	}
	return rows, raw, nil
}

// printRows writes one line per target and returns how many are failing.
func printRows(w io.Writer, rows []status.Row) int {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	failing := 0
	for _, r := range rows {
		when := "unknown"
		if r.Time != nil {
			when = r.Time.Local().Format(time.DateTime)
		}
		if r.Status == "fail" {
			failing++
		}
		fmt.Fprintf(tw, "[%s]\t%s\t%s\n", strings.ToUpper(r.Status), r.Host, when)
	}
	_ = tw.Flush()
	return failing
}
