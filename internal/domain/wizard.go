package domain

// CreatorKYCForm is the creator's five-step verification form. File fields
// hold document references, never raw files.
type CreatorKYCForm struct {
	// Step 1
	Industry    string `json:"industry"`
	AccountType string `json:"accountType" validate:"omitempty,oneof=business individual"`

	// Step 2
	FirstName    string       `json:"firstName"`
	LastName     string       `json:"lastName"`
	Email        string       `json:"email" validate:"omitempty,email"`
	PhoneNumber  string       `json:"phoneNumber"`
	State        string       `json:"state"`
	City         string       `json:"city"`
	ProfilePhoto *DocumentRef `json:"profilePhoto,omitempty"`

	// Step 3
	IDType         string       `json:"idType"`
	DocumentNumber string       `json:"documentNumber"`
	FrontDocument  *DocumentRef `json:"frontDocument,omitempty"`
	BackDocument   *DocumentRef `json:"backDocument,omitempty"`
	ProofOfAddress *DocumentRef `json:"proofOfAddress,omitempty"`
}

const (
	CreatorKYCFirstStep = 1
	CreatorKYCLastStep  = 5
)

type CreatorKYCProgress struct {
	CurrentStep int            `json:"currentStep"`
	Progress    float64        `json:"progress"`
	FormData    CreatorKYCForm `json:"formData"`
}

type CreatorKYCStatus struct {
	Status             string `json:"status"`
	VerificationStatus string `json:"verificationStatus"`
}

// TaskDraft accumulates the create-task wizard across its four pages.
type TaskDraft struct {
	Category      string `json:"category"`
	CategoryTitle string `json:"categoryTitle"`

	// details
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Duration    string `json:"duration,omitempty"`
	WorkMode    string `json:"workMode,omitempty"`

	// compensation
	Compensation    string `json:"compensation,omitempty"`
	Deadline        string `json:"deadline,omitempty"`
	ExperienceLevel string `json:"experienceLevel,omitempty"`

	// requirements
	RequiredSkills       string `json:"requiredSkills,omitempty"`
	RequireCV            bool   `json:"requireCV"`
	ResumeLink           string `json:"resumeLink,omitempty"`
	PortfolioLink        string `json:"portfolioLink,omitempty"`
	GithubLink           string `json:"githubLink,omitempty"`
	LinkedinLink         bool   `json:"linkedinLink"`
	BehanceLink          string `json:"behanceLink,omitempty"`
	OtherCertLink        string `json:"otherCertLink,omitempty"`
	RequireCoverLetter   bool   `json:"requireCoverLetter"`
	RequireQuestionnaire bool   `json:"requireQuestionnaire"`
	RequireLicense       bool   `json:"requireLicense"`
}
