package domain

import (
	"time"
)

// KYCPhase is one of the three fulfiller verification phases.
type KYCPhase string

const (
	KYCPhaseProfile  KYCPhase = "profile"
	KYCPhaseIdentity KYCPhase = "identity"
	KYCPhaseVehicle  KYCPhase = "vehicle"
)

// KYCPhases lists phases in the order the wizard presents them.
var KYCPhases = []KYCPhase{KYCPhaseProfile, KYCPhaseIdentity, KYCPhaseVehicle}

func ParseKYCPhase(s string) (KYCPhase, bool) {
	switch KYCPhase(s) {
	case KYCPhaseProfile, KYCPhaseIdentity, KYCPhaseVehicle:
		return KYCPhase(s), true
	}
	return "", false
}

type VerificationStatus string

const (
	VerificationIdle      VerificationStatus = "idle"
	VerificationVerifying VerificationStatus = "verifying"
	VerificationVerified  VerificationStatus = "verified"
)

// PhaseFlags is used both for completion and for error flags.
type PhaseFlags struct {
	Profile  bool `json:"profile"`
	Identity bool `json:"identity"`
	Vehicle  bool `json:"vehicle"`
}

func (f PhaseFlags) Get(p KYCPhase) bool {
	switch p {
	case KYCPhaseProfile:
		return f.Profile
	case KYCPhaseIdentity:
		return f.Identity
	case KYCPhaseVehicle:
		return f.Vehicle
	}
	return false
}

// With returns a copy with one phase set; the other flags are untouched.
func (f PhaseFlags) With(p KYCPhase, v bool) PhaseFlags {
	switch p {
	case KYCPhaseProfile:
		f.Profile = v
	case KYCPhaseIdentity:
		f.Identity = v
	case KYCPhaseVehicle:
		f.Vehicle = v
	}
	return f
}

func (f PhaseFlags) All() bool {
	return f.Profile && f.Identity && f.Vehicle
}

// DocumentRef points at an uploaded file in document storage. It is what gets
// persisted in place of the file itself.
type DocumentRef struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	Checksum    string    `json:"checksum"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

type KYCProfileData struct {
	FirstName  string       `json:"firstName,omitempty"`
	LastName   string       `json:"lastName,omitempty"`
	Email      string       `json:"email,omitempty"`
	Phone      string       `json:"phone,omitempty"`
	Address    string       `json:"address,omitempty"`
	City       string       `json:"city,omitempty"`
	State      string       `json:"state,omitempty"`
	PostalCode string       `json:"postalCode,omitempty"`
	Location   string       `json:"location,omitempty"`
	Industry   []string     `json:"industry,omitempty"`
	Photo      *DocumentRef `json:"photo,omitempty"`
}

type KYCIdentityData struct {
	IDType     string       `json:"idType,omitempty"`
	IDNumber   string       `json:"idNumber,omitempty"`
	FrontImage *DocumentRef `json:"frontImage,omitempty"`
	BackImage  *DocumentRef `json:"backImage,omitempty"`
}

type KYCVehicleData struct {
	VehicleType       string       `json:"vehicleType,omitempty"`
	PlateNumber       string       `json:"plateNumber,omitempty"`
	VehicleModel      string       `json:"vehicleModel,omitempty"`
	VehicleYear       string       `json:"vehicleYear,omitempty"`
	Color             string       `json:"color,omitempty"`
	InsuranceProvider string       `json:"insuranceProvider,omitempty"`
	InsuranceExpiry   string       `json:"insuranceExpiry,omitempty"`
	Make              string       `json:"make,omitempty"`
	Model             string       `json:"model,omitempty"`
	Year              string       `json:"year,omitempty"`
	LicensePlate      string       `json:"licensePlate,omitempty"`
	RegistrationDoc   *DocumentRef `json:"registrationDoc,omitempty"`
	InsuranceDoc      *DocumentRef `json:"insuranceDoc,omitempty"`
}

type KYCData struct {
	Profile  KYCProfileData  `json:"profile"`
	Identity KYCIdentityData `json:"identity"`
	Vehicle  KYCVehicleData  `json:"vehicle"`
}

// KYCState is the full tracker state as returned to clients.
type KYCState struct {
	AccountLocked         bool               `json:"accountLocked"`
	ActivePhase           *KYCPhase          `json:"activePhase"`
	Completion            PhaseFlags         `json:"completion"`
	HasError              PhaseFlags         `json:"hasError"`
	Data                  KYCData            `json:"kycData"`
	VerificationStatus    VerificationStatus `json:"verificationStatus"`
	VerificationStartedAt *time.Time         `json:"verificationStartedAt,omitempty"`
}

// NewKYCState is the state of a user who has never touched the wizard.
func NewKYCState() *KYCState {
	return &KYCState{
		AccountLocked:      true,
		VerificationStatus: VerificationIdle,
	}
}
