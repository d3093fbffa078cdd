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

const (
	baseURL = "http://localhost:8080"
)

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	userID := time.Now().Unix()

	// 1. Save a couple of entities that should resolve to each other
	fmt.Println("1. Saving entities...")
	entities := []map[string]interface{}{
		{"type": "Person", "name": "Robert Smith", "email": "rsmith@example.com", "source": "gmail", "user_id": userID},
		{"type": "Contact", "name": "Bob Smith", "email": "bob@example.com", "source": "phone", "user_id": userID},
	}
	for _, entity := range entities {
		if !sendRequest("POST", "/entities", entity) {
			fmt.Println("FAILED: Save entity")
			os.Exit(1)
		}
	}
	fmt.Println("PASSED: Save entities")

	// 2. Index content
	fmt.Println("2. Indexing content...")
	content := map[string]interface{}{
		"type":         "Email",
		"title":        "Q3 planning follow-up",
		"content":      "Following up on our discussion about the Q3 roadmap and budget allocations.",
		"source":       "gmail",
		"user_id":      userID,
		"participants": []string{"rsmith@example.com"},
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}
	if !sendRequest("POST", "/content", content) {
		fmt.Println("FAILED: Index content")
		os.Exit(1)
	}
	fmt.Println("PASSED: Index content")

	// 3. Run a resolution cycle
	fmt.Println("3. Running resolution cycle...")
	if !sendRequest("POST", "/resolution/cycle", nil) {
		fmt.Println("FAILED: Resolution cycle")
		os.Exit(1)
	}
	fmt.Println("PASSED: Resolution cycle")

	// 4. Apply decay (should be a no-op on fresh edges)
	fmt.Println("4. Applying decay...")
	if !sendRequest("POST", "/relationships/decay", nil) {
		fmt.Println("FAILED: Decay")
		os.Exit(1)
	}
	fmt.Println("PASSED: Decay")

	// 5. Assemble context
	fmt.Println("5. Assembling context...")
	assemble := map[string]interface{}{
		"query":         "what did Robert say about the Q3 roadmap?",
		"user_id":       userID,
		"include_graph": true,
	}
	if !sendRequest("POST", "/context/assemble", assemble) {
		fmt.Println("FAILED: Assemble context")
		os.Exit(1)
	}
	fmt.Println("PASSED: Assemble context")

	fmt.Println("Integration Test Completed Successfully.")
}

func sendRequest(method, endpoint string, payload interface{}) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return false
	}

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Response: %s\n", string(respBody))

	return true
}
