package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Member is a team or viewer entry: either an existing user profile id or
// the e-mail address of a pending invitation.
type Member struct {
	ID    int
	Email string
}

// UserMember returns a member for an existing user profile.
func UserMember(id int) Member { return Member{ID: id} }

// InviteMember returns a member for a pending e-mail invitation.
func InviteMember(email string) Member { return Member{Email: email} }

// IsInvite reports whether the member is a pending invitation.
func (m Member) IsInvite() bool { return m.Email != "" }

func (m Member) MarshalJSON() ([]byte, error) {
	if m.IsInvite() {
		return json.Marshal(m.Email)
	}
	return json.Marshal(m.ID)
}

func (m *Member) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = Member{Email: s}
		return nil
	}
	var id int
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("member must be a user id or an e-mail: %w", err)
	}
	*m = Member{ID: id}
	return nil
}

// Link is an external link attached to a project.
type Link struct {
	LinkType int    `json:"link_type"`
	LinkURL  string `json:"link_url"`
}

// Partner is an implementing or funding partner of a project.
type Partner struct {
	PartnerType    int    `json:"partner_type"`
	PartnerName    string `json:"partner_name"`
	PartnerEmail   string `json:"partner_email,omitempty"`
	PartnerContact string `json:"partner_contact,omitempty"`
	PartnerWebsite string `json:"partner_website,omitempty"`
}

// CustomAnswer answers a donor or country specific question. DonorID is only
// set on the flattened donor answer list.
type CustomAnswer struct {
	QuestionID int      `json:"question_id"`
	Answer     []string `json:"answer"`
	DonorID    int      `json:"donor_id,omitempty"`
}

// APIProject is the project representation used by the REST API for both
// the draft and the published side of a project.
type APIProject struct {
	Name                    string     `json:"name"`
	Organisation            *int       `json:"organisation"`
	Country                 *int       `json:"country"`
	CountryOffice           *int       `json:"country_office"`
	Modified                *time.Time `json:"modified,omitempty"`
	ImplementationOverview  string     `json:"implementation_overview"`
	StartDate               string     `json:"start_date"`
	EndDate                 string     `json:"end_date"`
	ContactName             string     `json:"contact_name"`
	ContactEmail            string     `json:"contact_email"`
	GoalArea                *int       `json:"goal_area"`
	ResultArea              *int       `json:"result_area"`
	CapabilityLevels        []int      `json:"capability_levels"`
	CapabilityCategories    []int      `json:"capability_categories"`
	CapabilitySubcategories []int      `json:"capability_subcategories"`
	Platforms               []int      `json:"platforms"`
	DHIs                    []int      `json:"dhis"`
	HealthFocusAreas        []int      `json:"health_focus_areas"`
	HSCChallenges           []int      `json:"hsc_challenges"`
	Donors                  []int      `json:"donors"`
	UnicefSector            []int      `json:"unicef_sector"`
	Functions               []int      `json:"functions"`
	Hardware                []int      `json:"hardware"`
	Nontech                 []int      `json:"nontech"`
	RegionalPriorities      []int      `json:"regional_priorities"`
	Overview                string     `json:"overview"`
	ProgramTargets          string     `json:"program_targets"`
	ProgramTargetsAchieved  string     `json:"program_targets_achieved"`
	CurrentAchievements     string     `json:"current_achievements"`
	AWP                     string     `json:"awp"`
	TotalBudgetNarrative    string     `json:"total_budget_narrative"`
	FundingNeeds            string     `json:"funding_needs"`
	PartnershipNeeds        string     `json:"partnership_needs"`
	TargetGroupReached      string     `json:"target_group_reached"`
	Currency                *int       `json:"currency"`
	TotalBudget             *float64   `json:"total_budget"`
	WBS                     []string   `json:"wbs"`
	InnovationCategories    []int      `json:"innovation_categories"`
	Links                   []Link     `json:"links"`
	CPD                     []int      `json:"cpd"`
	Partners                []Partner  `json:"partners"`
	Phase                   *int       `json:"phase"`
	ISC                     *int       `json:"isc"`
	InnovationWays          []int      `json:"innovation_ways"`

	// Coverage data only travels on the read side.
	Coverage                []map[string]float64 `json:"coverage,omitempty"`
	NationalLevelDeployment map[string]float64   `json:"national_level_deployment,omitempty"`

	CountryCustomAnswers []CustomAnswer            `json:"country_custom_answers,omitempty"`
	DonorCustomAnswers   map[string][]CustomAnswer `json:"donor_custom_answers,omitempty"`
}

// ProjectEnvelope is the response shape of every project endpoint.
type ProjectEnvelope struct {
	ID        int         `json:"id"`
	PublicID  string      `json:"public_id,omitempty"`
	Draft     *APIProject `json:"draft,omitempty"`
	Published *APIProject `json:"published,omitempty"`
	Favorite  bool        `json:"favorite,omitempty"`
}

// IsPublished reports whether the envelope carries a published snapshot.
func (e *ProjectEnvelope) IsPublished() bool {
	return e != nil && e.Published != nil && e.Published.Name != ""
}

// Visible returns the published side when present, the draft otherwise.
func (e *ProjectEnvelope) Visible() *APIProject {
	if e.IsPublished() {
		return e.Published
	}
	if e.Draft != nil {
		return e.Draft
	}
	return &APIProject{}
}

// ProjectFields is the flattened editor shape of a project.
type ProjectFields struct {
	Name                    string
	Organisation            *int
	Country                 *int
	CountryOffice           *int
	Modified                time.Time
	ImplementationOverview  string
	StartDate               string
	EndDate                 string
	ContactName             string
	ContactEmail            string
	Team                    []Member
	Viewers                 []Member
	GoalArea                *int
	ResultArea              *int
	CapabilityLevels        []int
	CapabilityCategories    []int
	CapabilitySubcategories []int
	Platforms               []int
	DHIs                    []int
	HealthFocusAreas        []int
	HSCChallenges           []int
	Donors                  []int
	UnicefSector            []int
	Functions               []int
	Hardware                []int
	Nontech                 []int
	RegionalPriorities      []int
	Overview                string
	ProgramTargets          string
	ProgramTargetsAchieved  string
	CurrentAchievements     string
	AWP                     string
	TotalBudgetNarrative    string
	FundingNeeds            string
	PartnershipNeeds        string
	TargetGroupReached      string
	Currency                int
	TotalBudget             string
	WBS                     []string
	InnovationCategories    []int
	Links                   []Link
	CPD                     []int
	Partners                []Partner
	Phase                   *int
	ISC                     *int
	InnovationWays          []int
	CountryAnswers          []CustomAnswer
	DonorAnswers            []CustomAnswer
}

// DefaultCurrency is the currency id used when a project has none.
const DefaultCurrency = 1

// CleanFields returns an empty project with every default applied.
func CleanFields() ProjectFields {
	return ProjectFields{
		Team:                    []Member{},
		Viewers:                 []Member{},
		CapabilityLevels:        []int{},
		CapabilityCategories:    []int{},
		CapabilitySubcategories: []int{},
		Platforms:               []int{},
		DHIs:                    []int{},
		HealthFocusAreas:        []int{},
		HSCChallenges:           []int{},
		Donors:                  []int{},
		UnicefSector:            []int{},
		Functions:               []int{},
		Hardware:                []int{},
		Nontech:                 []int{},
		RegionalPriorities:      []int{},
		Currency:                DefaultCurrency,
		WBS:                     []string{},
		InnovationCategories:    []int{},
		Links:                   []Link{},
		CPD:                     []int{},
		Partners:                []Partner{},
		InnovationWays:          []int{},
		CountryAnswers:          []CustomAnswer{},
		DonorAnswers:            []CustomAnswer{},
	}
}

// Clone returns a deep copy of the fields.
func (f ProjectFields) Clone() ProjectFields {
	c := f
	c.Organisation = cloneInt(f.Organisation)
	c.Country = cloneInt(f.Country)
	c.CountryOffice = cloneInt(f.CountryOffice)
	c.GoalArea = cloneInt(f.GoalArea)
	c.ResultArea = cloneInt(f.ResultArea)
	c.Phase = cloneInt(f.Phase)
	c.ISC = cloneInt(f.ISC)
	c.Team = append([]Member{}, f.Team...)
	c.Viewers = append([]Member{}, f.Viewers...)
	c.CapabilityLevels = cloneInts(f.CapabilityLevels)
	c.CapabilityCategories = cloneInts(f.CapabilityCategories)
	c.CapabilitySubcategories = cloneInts(f.CapabilitySubcategories)
	c.Platforms = cloneInts(f.Platforms)
	c.DHIs = cloneInts(f.DHIs)
	c.HealthFocusAreas = cloneInts(f.HealthFocusAreas)
	c.HSCChallenges = cloneInts(f.HSCChallenges)
	c.Donors = cloneInts(f.Donors)
	c.UnicefSector = cloneInts(f.UnicefSector)
	c.Functions = cloneInts(f.Functions)
	c.Hardware = cloneInts(f.Hardware)
	c.Nontech = cloneInts(f.Nontech)
	c.RegionalPriorities = cloneInts(f.RegionalPriorities)
	c.WBS = append([]string{}, f.WBS...)
	c.InnovationCategories = cloneInts(f.InnovationCategories)
	c.Links = append([]Link{}, f.Links...)
	c.CPD = cloneInts(f.CPD)
	c.Partners = append([]Partner{}, f.Partners...)
	c.InnovationWays = cloneInts(f.InnovationWays)
	c.CountryAnswers = cloneAnswers(f.CountryAnswers)
	c.DonorAnswers = cloneAnswers(f.DonorAnswers)
	return c
}

// TotalBudgetValue parses the free-text budget; ok is false when it is empty
// or not a number.
func (f ProjectFields) TotalBudgetValue() (float64, bool) {
	if f.TotalBudget == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(f.TotalBudget, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInts(s []int) []int {
	return append([]int{}, s...)
}

func cloneAnswers(s []CustomAnswer) []CustomAnswer {
	out := make([]CustomAnswer, len(s))
	for i, a := range s {
		a.Answer = append([]string{}, a.Answer...)
		out[i] = a
	}
	return out
}
