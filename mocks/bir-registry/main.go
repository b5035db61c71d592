// Mock GUS BIR SOAP endpoint for local development. Implements the login,
// search and full-report operations with the session header scheme and a
// small fixed data set.
package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
)

const defaultPort = "8092"

type entity struct {
	regon      string
	nip        string
	name       string
	entityType string
	silosID    string
	street     string
	building   string
	city       string
	postal     string
}

var entities = []entity{
	{
		regon: "123456785", nip: "1234563218",
		name:       "ACME SPÓŁKA Z OGRANICZONĄ ODPOWIEDZIALNOŚCIĄ",
		entityType: "P", silosID: "6",
		street: "ul. Próżna", building: "9", city: "Warszawa", postal: "00-107",
	},
	{
		regon: "610188201", nip: "5260250274",
		name:       "ORLEN SPÓŁKA AKCYJNA",
		entityType: "P", silosID: "6",
		street: "ul. Chemików", building: "7", city: "Płock", postal: "09-411",
	},
	{
		regon: "770400145", nip: "7740001454",
		name:       "GOSPODARSTWO ROLNE JAN TESTOWY",
		entityType: "F", silosID: "6",
		city: "Sierpc", postal: "09-200",
	},
}

type sessions struct {
	mu     sync.Mutex
	nextID int
	active map[string]bool
}

func (s *sessions) open() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sid := fmt.Sprintf("mock-session-%d", s.nextID)
	s.active[sid] = true
	return sid
}

func (s *sessions) valid(sid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[sid]
}

var state = &sessions{active: make(map[string]bool)}

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy","service":"bir-registry"}`))
	})
	http.HandleFunc("/", handleSOAP)

	log.Printf("mock BIR registry starting on port %s", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleSOAP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	request := string(body)
	w.Header().Set("Content-Type", "application/soap+xml;charset=UTF-8")

	switch {
	case strings.Contains(request, "Zaloguj"):
		sid := state.open()
		writeEnvelope(w, `<ZalogujResponse xmlns="http://CIS/BIR/PUBL/2014/07"><ZalogujResult>`+sid+`</ZalogujResult></ZalogujResponse>`)

	case strings.Contains(request, "DaneSzukajPodmioty"):
		if !state.valid(r.Header.Get("sid")) {
			result := escape(`<root><dane><ErrorCode>7</ErrorCode><ErrorMessagePl>Sesja nieaktywna</ErrorMessagePl></dane></root>`)
			writeEnvelope(w, `<DaneSzukajPodmiotyResponse xmlns="http://CIS/BIR/PUBL/2014/07"><DaneSzukajPodmiotyResult>`+result+`</DaneSzukajPodmiotyResult></DaneSzukajPodmiotyResponse>`)
			return
		}
		result := escape(searchResult(request))
		writeEnvelope(w, `<DaneSzukajPodmiotyResponse xmlns="http://CIS/BIR/PUBL/2014/07"><DaneSzukajPodmiotyResult>`+result+`</DaneSzukajPodmiotyResult></DaneSzukajPodmiotyResponse>`)

	case strings.Contains(request, "DanePobierzPelnyRaport"):
		result := escape(reportResult(request))
		writeEnvelope(w, `<DanePobierzPelnyRaportResponse xmlns="http://CIS/BIR/PUBL/2014/07"><DanePobierzPelnyRaportResult>`+result+`</DanePobierzPelnyRaportResult></DanePobierzPelnyRaportResponse>`)

	default:
		http.Error(w, "unknown operation", http.StatusBadRequest)
	}
}

func searchResult(request string) string {
	for _, e := range entities {
		if strings.Contains(request, ">"+e.nip+"<") || strings.Contains(request, ">"+e.regon+"<") {
			return fmt.Sprintf(`<root><dane><Regon>%s</Regon><Nip>%s</Nip><Nazwa>%s</Nazwa><Typ>%s</Typ><SilosID>%s</SilosID><Ulica>%s</Ulica><NrNieruchomosci>%s</NrNieruchomosci><Miejscowosc>%s</Miejscowosc><KodPocztowy>%s</KodPocztowy></dane></root>`,
				e.regon, e.nip, e.name, e.entityType, e.silosID, e.street, e.building, e.city, e.postal)
		}
	}
	return `<root><dane><ErrorCode>4</ErrorCode><ErrorMessagePl>Nie znaleziono podmiotów</ErrorMessagePl></dane></root>`
}

func reportResult(request string) string {
	for _, e := range entities {
		if !strings.Contains(request, ">"+e.regon+"<") {
			continue
		}
		prefix := "praw_"
		if e.entityType == "F" {
			prefix = "fiz_"
		}
		return fmt.Sprintf(`<root><dane><%[1]snazwa>%[2]s</%[1]snazwa><%[1]snip>%[3]s</%[1]snip><%[1]sregon9>%[4]s</%[1]sregon9><%[1]sadSiedzUlica_Nazwa>%[5]s</%[1]sadSiedzUlica_Nazwa><%[1]sadSiedzNumerNieruchomosci>%[6]s</%[1]sadSiedzNumerNieruchomosci><%[1]sadSiedzMiejscowosc_Nazwa>%[7]s</%[1]sadSiedzMiejscowosc_Nazwa><%[1]sadSiedzKodPocztowy>%[8]s</%[1]sadSiedzKodPocztowy></dane></root>`,
			prefix, e.name, e.nip, e.regon, e.street, e.building, e.city, e.postal)
	}
	return ""
}

func writeEnvelope(w http.ResponseWriter, inner string) {
	_, _ = fmt.Fprintf(w, `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body>%s</s:Body></s:Envelope>`, inner)
}

func escape(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return replacer.Replace(s)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
