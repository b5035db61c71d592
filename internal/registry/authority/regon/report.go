package regon

import "strings"

// Report names a BIR full-report schema. The BIR search response only carries
// the entity type; the detailed record has to be requested again under one of
// these fixed report names.
type Report string

const (
	ReportLegalPerson              Report = "BIR11OsPrawna"
	ReportLegalPersonLocalUnit     Report = "BIR11JednLokalnaOsPrawnej"
	ReportNaturalPersonCeidg       Report = "BIR11OsFizycznaDzialalnoscCeidg"
	ReportNaturalPersonAgriculture Report = "BIR11OsFizycznaDzialalnoscRolnicza"
	ReportNaturalPersonLocalUnit   Report = "BIR11JednLokalnaOsFizycznej"
)

// ReportFor resolves the report schema to request for a search hit.
// entityType is the BIR "Typ" code, silosID the sub-classification carried by
// natural persons. An unrecognized combination yields ok=false - the caller
// decides whether the search record alone is good enough.
func ReportFor(entityType, silosID string) (report Report, ok bool) {
	switch strings.TrimSpace(entityType) {
	case "P":
		return ReportLegalPerson, true
	case "LP":
		return ReportLegalPersonLocalUnit, true
	case "LF":
		return ReportNaturalPersonLocalUnit, true
	case "F":
		switch strings.TrimSpace(silosID) {
		case "4":
			return ReportNaturalPersonCeidg, true
		case "6":
			return ReportNaturalPersonAgriculture, true
		}
	}
	return "", false
}

// canonicalFields maps BIR report field names, with their per-report prefix
// stripped, onto the flat payload keys used by the canonical constructors.
var canonicalFields = map[string]string{
	"nazwa":                     "name",
	"nip":                       "nip",
	"regon9":                    "regon",
	"regon14":                   "regon",
	"adSiedzUlica_Nazwa":        "street",
	"adSiedzNumerNieruchomosci": "building",
	"adSiedzMiejscowosc_Nazwa":  "city",
	"adSiedzKodPocztowy":        "postal_code",
}

// reportPrefixes are the field-name prefixes BIR uses per report family.
var reportPrefixes = []string{"praw_", "lokpraw_", "fizC_", "fizP_", "fiz_", "lokfiz_"}

// canonicalKey translates a raw BIR report field name like "praw_adSiedzUlica_Nazwa"
// to its canonical payload key. Unknown fields map to "".
func canonicalKey(raw string) string {
	for _, prefix := range reportPrefixes {
		if trimmed, found := strings.CutPrefix(raw, prefix); found {
			return canonicalFields[trimmed]
		}
	}
	return canonicalFields[raw]
}
