//go:build integration
// +build integration

// Package integration provides end-to-end tests for the Kestrel risk
// scoring service.
//
// These tests verify the COMPLETE scoring pipeline against a running
// server:
//
//	Transaction → Profile Update → Features → Ensemble → Policy Verdict
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// The server must be started first (community tier is enough):
//
//	go run ./cmd/kestrel
//
// Set KESTREL_TEST_URL to point at a non-default address.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

func baseURL() string {
	if url := os.Getenv("KESTREL_TEST_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func waitForServer(t *testing.T) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL() + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Skip("kestrel server not reachable; start it with: go run ./cmd/kestrel")
}

func analyzePayload(accountID string, amount float64) map[string]interface{} {
	now := time.Now()
	return map[string]interface{}{
		"TransactionID":           fmt.Sprintf("ITX%d", now.UnixNano()),
		"AccountID":               accountID,
		"TransactionAmount":       amount,
		"TransactionDuration":     60,
		"LoginAttempts":           1,
		"AccountBalance":          5000,
		"TransactionDate":         now.Format("2006-01-02 15:04:05"),
		"PreviousTransactionDate": now.Add(-96 * time.Hour).Format("2006-01-02 15:04:05"),
		"TransactionType":         "Debit",
		"Location":                "New York, NY",
		"DeviceID":                "D-integration",
		"MerchantID":              "M-integration",
		"Channel":                 "Online",
		"CustomerOccupation":      "Engineer",
	}
}

func postAnalyze(t *testing.T, payload map[string]interface{}) (int, map[string]interface{}) {
	t.Helper()
	body, _ := json.Marshal(payload)
	resp, err := http.Post(baseURL()+"/analyze", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /analyze failed: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestAnalyzePipeline(t *testing.T) {
	waitForServer(t)

	accountID := fmt.Sprintf("AC-IT-%d", time.Now().UnixNano())

	status, out := postAnalyze(t, analyzePayload(accountID, 250))
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, out)
	}

	for _, key := range []string{
		"evaluation_id", "status",
		"isolation_forest_score", "xgboost_probability", "gnn_probability",
		"composite_score", "customer_risk_score",
		"explanation", "drift_detected",
	} {
		if _, ok := out[key]; !ok {
			t.Errorf("response missing %q", key)
		}
	}

	for _, key := range []string{"isolation_forest_score", "xgboost_probability", "gnn_probability"} {
		v, _ := out[key].(float64)
		if v < 0 || v > 1 {
			t.Errorf("%s = %v outside [0,1]", key, out[key])
		}
	}

	if items, ok := out["explanation"].([]interface{}); ok && len(items) > 5 {
		t.Errorf("expected at most 5 explanation items, got %d", len(items))
	}
}

func TestAnalyzeValidation(t *testing.T) {
	waitForServer(t)

	payload := analyzePayload("AC-IT-validation", 100)
	delete(payload, "TransactionAmount")

	status, out := postAnalyze(t, payload)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %v", status, out)
	}
	if out["field"] != "TransactionAmount" {
		t.Errorf("expected field TransactionAmount, got %v", out["field"])
	}
}

func TestProfileTracksActivity(t *testing.T) {
	waitForServer(t)

	accountID := fmt.Sprintf("AC-IT-PROF-%d", time.Now().UnixNano())

	for _, amount := range []float64{100, 200, 300} {
		if status, out := postAnalyze(t, analyzePayload(accountID, amount)); status != http.StatusOK {
			t.Fatalf("analyze failed: %d %v", status, out)
		}
	}

	resp, err := http.Get(baseURL() + "/customer/" + accountID + "/profile")
	if err != nil {
		t.Fatalf("GET profile failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var profile map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&profile)

	if count, _ := profile["transaction_count"].(float64); count != 3 {
		t.Errorf("expected 3 transactions in profile, got %v", profile["transaction_count"])
	}
	if avg, _ := profile["avg_amount"].(float64); avg != 200 {
		t.Errorf("expected avg amount 200, got %v", profile["avg_amount"])
	}
}

func TestDriftStatusAndReset(t *testing.T) {
	waitForServer(t)

	resp, err := http.Get(baseURL() + "/drift/status")
	if err != nil {
		t.Fatalf("GET /drift/status failed: %v", err)
	}
	defer resp.Body.Close()

	var status map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&status)
	if _, ok := status["drift_detected"]; !ok {
		t.Error("missing drift_detected")
	}
	if _, ok := status["drift_count"]; !ok {
		t.Error("missing drift_count")
	}

	reset, err := http.Post(baseURL()+"/drift/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /drift/reset failed: %v", err)
	}
	reset.Body.Close()
	if reset.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from reset, got %d", reset.StatusCode)
	}
}

func TestRecentTransactionsWindow(t *testing.T) {
	waitForServer(t)

	resp, err := http.Get(baseURL() + "/transactions?days=0")
	if err != nil {
		t.Fatalf("GET /transactions failed: %v", err)
	}
	defer resp.Body.Close()

	var txs []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&txs)

	if len(txs) > 20 {
		t.Errorf("window exceeded capacity: %d", len(txs))
	}
	for _, tx := range txs {
		if _, err := time.Parse("2006-01-02 15:04:05", tx["TransactionDate"].(string)); err != nil {
			t.Errorf("bad TransactionDate: %v", err)
		}
	}
}

func TestMetricsExposed(t *testing.T) {
	waitForServer(t)

	resp, err := http.Get(baseURL() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
