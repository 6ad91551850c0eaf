// Package match links certification records to municipal disclosure records.
//
// The pipeline runs in one direction: the Cascade produces one decision per
// source record, Resolve enforces one-to-one candidate ownership,
// ApplyOverrides layers reviewer decisions on top and Assemble joins the
// result into the master table and review queue. Every stage is pure and
// returns new values.
package match

// Method records which rule produced a decision.
type Method string

const (
	MethodParcelID     Method = "id_parcel"
	MethodBuildingID   Method = "id_building"
	MethodExactAddress Method = "exact_address"
	// MethodAddressNoZIP is the optional address-only tier. It is only
	// produced when Config.AddressOnlyTier is set.
	MethodAddressNoZIP Method = "exact_address_no_zip"
	MethodFuzzyAddress Method = "fuzzy_address"
	MethodFuzzyName    Method = "fuzzy_name"
	MethodManual       Method = "manual"
	MethodNone         Method = "none"
)

// Methods lists every method in cascade order.
var Methods = []Method{
	MethodParcelID, MethodBuildingID, MethodExactAddress, MethodAddressNoZIP,
	MethodFuzzyAddress, MethodFuzzyName, MethodManual, MethodNone,
}

// ConfidenceRange returns the inclusive confidence band a decision with this
// method must fall in.
func (m Method) ConfidenceRange() (lo, hi int) {
	switch m {
	case MethodParcelID, MethodBuildingID, MethodManual:
		return 100, 100
	case MethodExactAddress:
		return 90, 90
	case MethodAddressNoZIP:
		return 85, 85
	case MethodFuzzyAddress:
		return 70, 89
	case MethodFuzzyName:
		return 50, 69
	default:
		return 0, 0
	}
}

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	for _, k := range Methods {
		if m == k {
			return true
		}
	}
	return false
}

// SourceRecord is one certification registry entry. Normalized fields are
// filled by the loader; the matcher never normalizes.
type SourceRecord struct {
	ID           string   `json:"source_id"`
	SourceName   string   `json:"source_name"`
	NameRaw      string   `json:"building_name_raw"`
	BuildingName string   `json:"building_name_norm"`
	AddressRaw   string   `json:"address_raw"`
	AddressNorm  string   `json:"address_norm"`
	ZIP          string   `json:"zip"`
	Borough      string   `json:"borough"`
	ParcelID     string   `json:"bbl"`
	BuildingID   string   `json:"bin"`
	CertLevel    string   `json:"leed_level"`
	CertYear     *int     `json:"leed_cert_year"`
	GrossArea    *float64 `json:"gross_area_sqft,omitempty"`
}

// CandidateRecord is one municipal building after the sub-datasets have been
// merged.
type CandidateRecord struct {
	ID              string   `json:"candidate_id"`
	NameRaw         string   `json:"building_name_raw"`
	BuildingName    string   `json:"building_name_norm"`
	AddressRaw      string   `json:"address_raw"`
	AddressNorm     string   `json:"address_norm"`
	ZIP             string   `json:"zip"`
	Borough         string   `json:"borough"`
	ParcelID        string   `json:"bbl"`
	BuildingID      string   `json:"bin"`
	EnergyGrade     string   `json:"energy_grade"`
	EnergyStarScore *float64 `json:"energy_star_score"`
	SiteEUI         *float64 `json:"site_eui"`
	Emissions       *float64 `json:"ghg_emissions_tco2e"`
	EmissionsLimit  *float64 `json:"ll97_limit_tco2e"`
	Sources         []string `json:"sources,omitempty"`
	// RowIDs are the municipal row ids merged into this candidate. Manual
	// mappings may name a candidate by any of them.
	RowIDs []string `json:"row_ids,omitempty"`
}

// MatchDecision is the outcome for one source record. An empty CandidateID
// means no match.
type MatchDecision struct {
	SourceID    string `json:"source_id"`
	CandidateID string `json:"candidate_id"`
	Confidence  int    `json:"match_confidence"`
	Method      Method `json:"match_method"`
	Notes       string `json:"match_notes"`
}

// Matched reports whether the decision references a candidate.
func (d MatchDecision) Matched() bool {
	return d.CandidateID != ""
}

func noMatch(sourceID, notes string) MatchDecision {
	return MatchDecision{SourceID: sourceID, Method: MethodNone, Notes: notes}
}

// OverrideDecision is a reviewer verdict.
type OverrideDecision string

const (
	OverrideMatch  OverrideDecision = "match"
	OverrideReject OverrideDecision = "reject"
	OverrideSkip   OverrideDecision = "skip"
)

// Valid reports whether d is match, reject or skip.
func (d OverrideDecision) Valid() bool {
	switch d {
	case OverrideMatch, OverrideReject, OverrideSkip:
		return true
	}
	return false
}

// ManualOverride is a reviewer-supplied decision for one source record.
type ManualOverride struct {
	SourceID    string           `json:"source_id"`
	CandidateID string           `json:"candidate_id"`
	Decision    OverrideDecision `json:"decision"`
	Notes       string           `json:"notes"`
}

// MasterRecord is one row of the linked output table. Candidate attributes
// are nil when the source is unmatched.
type MasterRecord struct {
	SourceID        string   `json:"source_id"`
	SourceName      string   `json:"source_name"`
	BuildingNameRaw string   `json:"building_name_raw"`
	AddressRaw      string   `json:"address_raw"`
	AddressNorm     string   `json:"address_norm"`
	BBL             string   `json:"bbl"`
	BIN             string   `json:"bin"`
	Borough         string   `json:"borough"`
	ZIP             string   `json:"zip"`
	CertLevel       string   `json:"leed_level"`
	CertYear        *int     `json:"leed_cert_year"`
	EnergyGrade     string   `json:"energy_grade"`
	EnergyStarScore *float64 `json:"energy_star_score"`
	SiteEUI         *float64 `json:"site_eui"`
	Emissions       *float64 `json:"ghg_emissions_tco2e"`
	EmissionsLimit  *float64 `json:"ll97_limit_tco2e"`
	Overage         *float64 `json:"ll97_overage_tco2e"`
	CandidateID     string   `json:"candidate_id"`
	Confidence      int      `json:"match_confidence"`
	Method          Method   `json:"match_method"`
	Notes           string   `json:"match_notes"`
}

// ReviewQueueEntry has the same shape as a master row.
type ReviewQueueEntry = MasterRecord

// WarningKind classifies a non-fatal anomaly.
type WarningKind string

const (
	WarnUnknownOverrideReference WarningKind = "unknown_override_reference"
	WarnMalformedOverride        WarningKind = "malformed_override"
)

// Warning is reported to the caller without stopping the run.
type Warning struct {
	Kind        WarningKind `json:"kind"`
	SourceID    string      `json:"source_id,omitempty"`
	CandidateID string      `json:"candidate_id,omitempty"`
	Message     string      `json:"message"`
}

func (w Warning) String() string {
	return string(w.Kind) + ": " + w.Message
}
