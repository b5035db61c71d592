// Mock MF white-list API for local development. Serves a small fixed set of
// taxpayers over the same search path the production service exposes.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort      = "8091"
	defaultLatencyMs = "50"
)

type subject struct {
	Name             string `json:"name"`
	NIP              string `json:"nip"`
	REGON            string `json:"regon,omitempty"`
	StatusVAT        string `json:"statusVat"`
	WorkingAddress   string `json:"workingAddress,omitempty"`
	ResidenceAddress string `json:"residenceAddress,omitempty"`
}

type searchResult struct {
	Subject   *subject `json:"subject"`
	RequestID string   `json:"requestId"`
}

type searchResponse struct {
	Result searchResult `json:"result"`
}

var taxpayers = map[string]subject{
	"1234563218": {
		Name:           "ACME SPÓŁKA Z OGRANICZONĄ ODPOWIEDZIALNOŚCIĄ",
		NIP:            "1234563218",
		REGON:          "123456785",
		StatusVAT:      "Czynny",
		WorkingAddress: "UL. PRÓŻNA 9, 00-107 WARSZAWA",
	},
	"5260250274": {
		Name:           "ORLEN SPÓŁKA AKCYJNA",
		NIP:            "5260250274",
		REGON:          "610188201",
		StatusVAT:      "Czynny",
		WorkingAddress: "UL. CHEMIKÓW 7, 09-411 PŁOCK",
	},
	"7740001454": {
		Name:      "ZWOLNIONY PODMIOT TESTOWY",
		NIP:       "7740001454",
		StatusVAT: "Zwolniony",
	},
}

var latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/api/search/nip/", handleSearchNIP)

	log.Printf("mock white-list API starting on port %s (latency %dms)", port, latencyMs)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "service": "white-list"})
}

func handleSearchNIP(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)

	nip := strings.TrimPrefix(r.URL.Path, "/api/search/nip/")
	w.Header().Set("Content-Type", "application/json")

	response := searchResponse{Result: searchResult{RequestID: "mock-" + nip}}
	if found, ok := taxpayers[nip]; ok {
		response.Result.Subject = &found
	}
	_ = json.NewEncoder(w).Encode(response)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key, fallback string) int {
	v := getEnv(key, fallback)
	n, err := strconv.Atoi(v)
	if err != nil {
		n, _ = strconv.Atoi(fallback)
	}
	return n
}
