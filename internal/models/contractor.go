// internal/models/contractor.go
package models

// Trade identifies a service specialty a contractor can be matched on.
type Trade string

const (
	TradePlumbing    Trade = "plumbing"
	TradeElectrical  Trade = "electrical"
	TradeHVAC        Trade = "hvac"
	TradeCarpentry   Trade = "carpentry"
	TradePainting    Trade = "painting"
	TradeRoofing     Trade = "roofing"
	TradeLandscaping Trade = "landscaping"
	TradeAppliance   Trade = "appliance_repair"
	TradeHandyman    Trade = "general_handyman"
)

// ValidTrades is the set of trades requests may reference.
var ValidTrades = map[Trade]bool{
	TradePlumbing:    true,
	TradeElectrical:  true,
	TradeHVAC:        true,
	TradeCarpentry:   true,
	TradePainting:    true,
	TradeRoofing:     true,
	TradeLandscaping: true,
	TradeAppliance:   true,
	TradeHandyman:    true,
}

// Availability is a contractor's live working state.
type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityBusy        Availability = "busy"
	AvailabilityUnavailable Availability = "unavailable"
	AvailabilityOnLeave     Availability = "on_leave"
)

// VerificationState tracks a contractor's onboarding verification.
type VerificationState string

const (
	VerificationPending   VerificationState = "pending"
	VerificationVerified  VerificationState = "verified"
	VerificationSuspended VerificationState = "suspended"
	VerificationRejected  VerificationState = "rejected"
)

// BackgroundCheckState mirrors the external background-check provider's result.
type BackgroundCheckState string

const (
	BackgroundCheckPending BackgroundCheckState = "pending"
	BackgroundCheckPassed  BackgroundCheckState = "passed"
	BackgroundCheckFailed  BackgroundCheckState = "failed"
)

// Location is a geographic point in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ContractorProfile is a read-only snapshot of a contractor as projected from
// the contractor directory. The matching pipeline passes these by value and
// never mutates them; the directory subsystem owns the source of truth.
type ContractorProfile struct {
	ID                 string               `json:"id"`
	Name               string               `json:"name"`
	Specialties        []Trade              `json:"specialties"`
	HourlyRate         float64              `json:"hourlyRate"`
	Location           Location             `json:"location"`
	ServiceRadiusMiles float64              `json:"serviceRadiusMiles"`
	Rating             float64              `json:"rating"`           // 0-5
	ReliabilityScore   float64              `json:"reliabilityScore"` // 0-1
	AvgResponseMinutes float64              `json:"avgResponseMinutes"`
	CompletedJobs      int                  `json:"completedJobs"`
	Availability       Availability         `json:"availability"`
	CurrentJobs        int                  `json:"currentJobs"`
	MaxConcurrentJobs  int                  `json:"maxConcurrentJobs"`
	Verification       VerificationState    `json:"verification"`
	BackgroundCheck    BackgroundCheckState `json:"backgroundCheck"`
	InsuranceVerified  bool                 `json:"insuranceVerified"`
}

// HasSpecialty reports whether the contractor covers the given trade.
func (c ContractorProfile) HasSpecialty(trade Trade) bool {
	for _, t := range c.Specialties {
		if t == trade {
			return true
		}
	}
	return false
}

// AtCapacity reports whether the contractor is already at the maximum number
// of concurrent jobs. A zero MaxConcurrentJobs means no limit is declared.
func (c ContractorProfile) AtCapacity() bool {
	return c.MaxConcurrentJobs > 0 && c.CurrentJobs >= c.MaxConcurrentJobs
}
