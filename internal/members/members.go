package members

// Status is the lifecycle state of a membership request. Approved and
// rejected are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ValidStatus reports whether s is one of the known states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Action is a decision taken on a pending request.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// DefaultDesignation is assigned when an approval provides no designation.
const DefaultDesignation = "member"

// Photo is upload metadata attached to an application. The file itself is
// handled by the upload layer; only resolved metadata is stored here.
type Photo struct {
	PublicURL    string `json:"publicUrl,omitempty"`
	Mimetype     string `json:"mimetype,omitempty"`
	Size         int64  `json:"size,omitempty"`
	OriginalName string `json:"originalName,omitempty"`
}

// Request is a membership application. Immutable after submission except
// for status and updatedAt.
type Request struct {
	ID                        string `json:"id"`
	Name                      string `json:"name"`
	FathersName               string `json:"fathersName"`
	MothersName               string `json:"mothersName"`
	Region                    string `json:"region"`
	Institution               string `json:"institution"`
	Address                   string `json:"address"`
	Email                     string `json:"email"`
	WhyJoining                string `json:"whyJoining"`
	HowDidYouFindUs           string `json:"howDidYouFindUs"`
	Hobbies                   string `json:"hobbies"`
	ParticularSkill           string `json:"particularSkill,omitempty"`
	ExtraCurricularActivities string `json:"extraCurricularActivities,omitempty"`
	Photo                     *Photo `json:"photo,omitempty"`
	PhoneNumber               string `json:"phoneNumber"`
	Status                    Status `json:"status"`
	CreatedAt                 string `json:"createdAt"`
	UpdatedAt                 string `json:"updatedAt"`
}

// Official is an approved member. It shares its id with the request it was
// created from; the two records live under different key namespaces and are
// deleted independently.
type Official struct {
	ID                        string `json:"id"`
	Name                      string `json:"name"`
	FathersName               string `json:"fathersName"`
	MothersName               string `json:"mothersName"`
	Region                    string `json:"region"`
	Institution               string `json:"institution"`
	Address                   string `json:"address"`
	Email                     string `json:"email"`
	WhyJoining                string `json:"whyJoining"`
	HowDidYouFindUs           string `json:"howDidYouFindUs"`
	Hobbies                   string `json:"hobbies"`
	ParticularSkill           string `json:"particularSkill,omitempty"`
	ExtraCurricularActivities string `json:"extraCurricularActivities,omitempty"`
	Photo                     *Photo `json:"photo,omitempty"`
	PhoneNumber               string `json:"phoneNumber"`
	IsPinned                  bool   `json:"isPinned"`
	Designation               string `json:"designation"`
	CreatedAt                 string `json:"createdAt"`
	UpdatedAt                 string `json:"updatedAt"`
}

// Input holds the application fields supplied by the public form. Presence
// of required fields is validated by the HTTP layer.
type Input struct {
	Name                      string
	FathersName               string
	MothersName               string
	Region                    string
	Institution               string
	Address                   string
	Email                     string
	WhyJoining                string
	HowDidYouFindUs           string
	Hobbies                   string
	ParticularSkill           string
	ExtraCurricularActivities string
	Photo                     *Photo
	PhoneNumber               string
}

func official(req Request, designation, now string) Official {
	if designation == "" {
		designation = DefaultDesignation
	}
	return Official{
		ID:                        req.ID,
		Name:                      req.Name,
		FathersName:               req.FathersName,
		MothersName:               req.MothersName,
		Region:                    req.Region,
		Institution:               req.Institution,
		Address:                   req.Address,
		Email:                     req.Email,
		WhyJoining:                req.WhyJoining,
		HowDidYouFindUs:           req.HowDidYouFindUs,
		Hobbies:                   req.Hobbies,
		ParticularSkill:           req.ParticularSkill,
		ExtraCurricularActivities: req.ExtraCurricularActivities,
		Photo:                     req.Photo,
		PhoneNumber:               req.PhoneNumber,
		IsPinned:                  false,
		Designation:               designation,
		CreatedAt:                 req.CreatedAt,
		UpdatedAt:                 now,
	}
}
