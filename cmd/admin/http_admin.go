package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	getAndPrint(*baseURL, "/admin/v1/state")
}

func sessionCmd(args []string) {
	fs := flag.NewFlagSet("session", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	getAndPrint(*baseURL, "/v1/session")
}

func getAndPrint(baseURL, path string) {
	b, err := fetch(baseURL, path)
	if len(b) > 0 {
		fmt.Println(strings.TrimSpace(string(b)))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
}

func fetch(baseURL, path string) ([]byte, error) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return b, fmt.Errorf("%s: %s", u, resp.Status)
	}
	return b, nil
}
