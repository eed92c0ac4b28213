package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// Smoke test against a running `symbiosis serve`. The server must already be
// past intake (API key and memory URL configured).
func main() {
	baseURL := os.Getenv("SYMBIOSIS_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second)

	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	fmt.Println("1. Checking state...")
	var state struct {
		Stage string `json:"stage"`
		Mood  string `json:"mood"`
	}
	if !check(client.R().SetResult(&state).Get("/state")) {
		fail("state")
	}
	if state.Stage != "READY" {
		fmt.Printf("FAILED: server is in stage %s, finish intake first\n", state.Stage)
		os.Exit(1)
	}
	fmt.Println("PASSED: state")

	fmt.Println("2. Scripted line...")
	if !check(client.R().SetBody(map[string]string{"text": "/systems nominal"}).Post("/input")) {
		fail("scripted line")
	}
	fmt.Println("PASSED: scripted line")

	fmt.Println("3. Chat turn...")
	var out struct {
		Reply    string   `json:"reply"`
		Mood     string   `json:"mood"`
		Keywords []string `json:"keywords"`
	}
	body := map[string]string{"text": "My name is Alice and I am a software engineer who loves hiking."}
	if !check(client.R().SetBody(body).SetResult(&out).Post("/input")) {
		fail("chat turn")
	}
	if out.Reply == "" {
		fail("chat turn returned an empty reply")
	}
	fmt.Printf("PASSED: chat turn (mood %s, keywords %v)\n", out.Mood, out.Keywords)

	fmt.Println("4. History...")
	var history struct {
		History []map[string]string `json:"history"`
	}
	if !check(client.R().SetResult(&history).Get("/history")) || len(history.History) < 2 {
		fail("history")
	}
	fmt.Println("PASSED: history")
}

func check(resp *resty.Response, err error) bool {
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	if resp.StatusCode() != http.StatusOK {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode(), resp.String())
		return false
	}
	fmt.Printf("Response: %s\n", resp.String())
	return true
}

func fail(step string) {
	fmt.Printf("FAILED: %s\n", step)
	os.Exit(1)
}
