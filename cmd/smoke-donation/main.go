package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"time"
)

// End-to-end smoke check against a running rabbithaven-api: self-report a
// transfer, log in as staff, verify it, then confirm the donor lookup and
// the rendered receipt.
func main() {
	base := os.Getenv("RESCUE_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	email := os.Getenv("RESCUE_SMOKE_EMAIL")
	password := os.Getenv("RESCUE_SMOKE_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("set RESCUE_SMOKE_EMAIL and RESCUE_SMOKE_PASSWORD to a staff account")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	last5 := fmt.Sprintf("%05d", rand.Intn(100000))
	donorName := fmt.Sprintf("煙霧測試-%d", rand.Intn(10000))

	// 1. donor self-report
	var reported struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	postJSON(client, base+"/v1/donations/report", map[string]any{
		"donor_name":    donorName,
		"donor_phone":   "0900000000",
		"amount":        1234,
		"transfer_date": time.Now().Format("2006-01-02"),
		"last5":         last5,
	}, nil, &reported)
	if reported.Status != "pending" {
		log.Fatalf("report: status = %q, want pending", reported.Status)
	}

	// 2. staff login
	var login struct {
		Token string `json:"token"`
	}
	postJSON(client, base+"/v1/auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, nil, &login)
	authHeader := map[string]string{"Authorization": "Bearer " + login.Token}

	// 3. verify
	var verified struct {
		Status    string  `json:"status"`
		ReceiptNo *string `json:"receipt_no"`
	}
	postJSON(client, base+"/v1/admin/donations/"+reported.ID+"/verify", nil, authHeader, &verified)
	if verified.Status != "verified" || verified.ReceiptNo == nil {
		log.Fatalf("verify: %+v", verified)
	}

	// 4. donor lookup sees the verification
	var lookup struct {
		Items []struct {
			Status           string `json:"status"`
			ReceiptAvailable bool   `json:"receipt_available"`
		} `json:"items"`
	}
	q := url.Values{"donor_name": {donorName}, "last5": {last5}}
	getJSON(client, base+"/v1/donations/lookup?"+q.Encode(), &lookup)
	if len(lookup.Items) != 1 || lookup.Items[0].Status != "verified" || !lookup.Items[0].ReceiptAvailable {
		log.Fatalf("lookup: %+v", lookup)
	}

	// 5. receipt
	var doc struct {
		ReceiptNo   string `json:"receipt_no"`
		AmountWords string `json:"amount_words"`
	}
	getJSON(client, base+"/v1/donations/"+reported.ID+"/receipt", &doc)
	if doc.ReceiptNo != *verified.ReceiptNo || doc.AmountWords == "" {
		log.Fatalf("receipt: %+v", doc)
	}

	fmt.Printf("smoke test passed: donation=%s receipt=%s\n", reported.ID, doc.ReceiptNo)
}

func postJSON(client *http.Client, target string, body any, headers map[string]string, dst any) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			log.Fatalf("marshal %s: %v", target, err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("request %s: %v", target, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	do(client, req, dst)
}

func getJSON(client *http.Client, target string, dst any) {
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		log.Fatalf("request %s: %v", target, err)
	}
	do(client, req, dst)
}

func do(client *http.Client, req *http.Request, dst any) {
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		log.Fatalf("%s %s: status %d: %s", req.Method, req.URL, resp.StatusCode, raw)
	}
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			log.Fatalf("decode %s: %v", req.URL, err)
		}
	}
}
