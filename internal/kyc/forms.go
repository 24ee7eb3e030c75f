package kyc

import (
	"taskhub/internal/domain"
)

// documentSlot describes one file input on a phase form.
type documentSlot struct {
	field    string
	required bool
	types    []string
}

var (
	imageTypes    = []string{"image/jpeg", "image/jpg", "image/png"}
	documentTypes = []string{"image/jpeg", "image/jpg", "image/png", "application/pdf"}
)

var phaseSlots = map[domain.KYCPhase][]documentSlot{
	domain.KYCPhaseProfile: {
		{field: "photo", types: imageTypes},
	},
	domain.KYCPhaseIdentity: {
		{field: "frontImage", required: true, types: documentTypes},
		{field: "backImage", required: true, types: documentTypes},
	},
	domain.KYCPhaseVehicle: {
		{field: "registrationDoc", required: true, types: documentTypes},
		{field: "insuranceDoc", required: true, types: documentTypes},
	},
}

func slotFor(phase domain.KYCPhase, field string) (documentSlot, bool) {
	for _, s := range phaseSlots[phase] {
		if s.field == field {
			return s, true
		}
	}
	return documentSlot{}, false
}

type profileForm struct {
	Phone    string   `json:"phone" validate:"required,local_phone"`
	Location string   `json:"location" validate:"required"`
	State    string   `json:"state" validate:"required"`
	City     string   `json:"city" validate:"required"`
	Industry []string `json:"industry" validate:"min=1"`
}

type identityForm struct {
	IDType     string `json:"idType" validate:"required"`
	IDNumber   string `json:"idNumber" validate:"required,min=8"`
	FrontImage bool   `json:"frontImage" validate:"required"`
	BackImage  bool   `json:"backImage" validate:"required"`
}

type vehicleForm struct {
	Make            string `json:"make" validate:"required"`
	Model           string `json:"model" validate:"required"`
	Year            string `json:"year" validate:"required,year4"`
	Color           string `json:"color" validate:"required"`
	LicensePlate    string `json:"licensePlate" validate:"required"`
	RegistrationDoc bool   `json:"registrationDoc" validate:"required"`
	InsuranceDoc    bool   `json:"insuranceDoc" validate:"required"`
}

// phaseForm projects the candidate data of a phase onto its form rules.
// Document fields count as present when a new file was supplied or a
// reference is already stored.
func phaseForm(phase domain.KYCPhase, data *domain.KYCData, incoming map[string]bool) interface{} {
	has := func(field string, ref *domain.DocumentRef) bool {
		return incoming[field] || ref != nil
	}

	switch phase {
	case domain.KYCPhaseProfile:
		p := data.Profile
		return &profileForm{
			Phone:    p.Phone,
			Location: p.Location,
			State:    p.State,
			City:     p.City,
			Industry: p.Industry,
		}
	case domain.KYCPhaseIdentity:
		id := data.Identity
		return &identityForm{
			IDType:     id.IDType,
			IDNumber:   id.IDNumber,
			FrontImage: has("frontImage", id.FrontImage),
			BackImage:  has("backImage", id.BackImage),
		}
	case domain.KYCPhaseVehicle:
		v := data.Vehicle
		return &vehicleForm{
			Make:            v.Make,
			Model:           v.Model,
			Year:            v.Year,
			Color:           v.Color,
			LicensePlate:    v.LicensePlate,
			RegistrationDoc: has("registrationDoc", v.RegistrationDoc),
			InsuranceDoc:    has("insuranceDoc", v.InsuranceDoc),
		}
	}
	return nil
}

// documentRef returns a pointer to the stored reference for a slot so it can
// be read or replaced.
func documentRef(data *domain.KYCData, phase domain.KYCPhase, field string) **domain.DocumentRef {
	switch phase {
	case domain.KYCPhaseProfile:
		if field == "photo" {
			return &data.Profile.Photo
		}
	case domain.KYCPhaseIdentity:
		switch field {
		case "frontImage":
			return &data.Identity.FrontImage
		case "backImage":
			return &data.Identity.BackImage
		}
	case domain.KYCPhaseVehicle:
		switch field {
		case "registrationDoc":
			return &data.Vehicle.RegistrationDoc
		case "insuranceDoc":
			return &data.Vehicle.InsuranceDoc
		}
	}
	return nil
}

// phaseData returns the part of KYCData that belongs to phase.
func phaseData(data *domain.KYCData, phase domain.KYCPhase) interface{} {
	switch phase {
	case domain.KYCPhaseProfile:
		return &data.Profile
	case domain.KYCPhaseIdentity:
		return &data.Identity
	case domain.KYCPhaseVehicle:
		return &data.Vehicle
	}
	return nil
}
