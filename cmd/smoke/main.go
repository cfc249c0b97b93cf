package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	baseURL := os.Getenv("NUVALIGN_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	system := os.Getenv("NUVALIGN_SMOKE_SYSTEM")
	if system == "" {
		system = "CVX"
	}
	client := &http.Client{Timeout: 30 * time.Second}

	fmt.Println("Starting smoke test against", baseURL)

	steps := []struct {
		name    string
		method  string
		path    string
		payload interface{}
	}{
		{"health", http.MethodGet, "/health", nil},
		{"list systems", http.MethodGet, "/systems", nil},
		{"list abstract concepts", http.MethodGet, "/concepts?abstract=true", nil},
		{"evaluate full", http.MethodPost, "/evaluate", map[string]string{"system": system, "mode": "full"}},
		{"evaluate generic", http.MethodPost, "/evaluate", map[string]string{"system": system, "mode": "generic"}},
		{"metrics", http.MethodGet, "/metrics", nil},
	}

	for i, s := range steps {
		fmt.Printf("%d. %s...\n", i+1, s.name)
		if !sendRequest(client, s.method, baseURL+s.path, s.payload) {
			fmt.Printf("FAILED: %s\n", s.name)
			os.Exit(1)
		}
		fmt.Printf("PASSED: %s\n", s.name)
	}
}

func sendRequest(client *http.Client, method, url string, payload interface{}) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return false
	}
	if len(respBody) > 300 {
		respBody = append(respBody[:300], "..."...)
	}
	fmt.Printf("Response: %s\n", string(respBody))
	return true
}
