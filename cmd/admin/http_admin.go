package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// healthCmd probes the running store's metrics listener.
func healthCmd(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:9090", "store metrics base url")
	showMetrics := fs.Bool("metrics", false, "also print store_* and session_* metrics")
	_ = fs.Parse(args)

	base := strings.TrimRight(strings.TrimSpace(*baseURL), "/")
	cl := &http.Client{Timeout: 5 * time.Second}
	body, ok := get(cl, base+"/healthz")
	fmt.Println(strings.TrimSpace(body))
	if !ok {
		os.Exit(1)
	}
	if !*showMetrics {
		return
	}
	body, ok = get(cl, base+"/metrics")
	if !ok {
		os.Exit(1)
	}
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "store_") || strings.HasPrefix(line, "session_") {
			fmt.Println(line)
		}
	}
}

func get(cl *http.Client, u string) (string, bool) {
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		return "", false
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return string(b), resp.StatusCode/100 == 2
}
