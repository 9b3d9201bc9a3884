package domain

import "slices"

// UserProfile is the signed-in user as returned by the profile endpoints.
type UserProfile struct {
	ID                   int               `json:"id"`
	Name                 string            `json:"name"`
	Email                string            `json:"email,omitempty"`
	Country              *int              `json:"country"`
	CountryOffice        *int              `json:"country_office"`
	Organisation         *int              `json:"organisation"`
	Language             string            `json:"language,omitempty"`
	AccountType          string            `json:"account_type,omitempty"`
	IsSuperuser          bool              `json:"is_superuser"`
	GlobalPortfolioOwner bool              `json:"global_portfolio_owner"`
	Manager              []int             `json:"manager"`
	Member               []int             `json:"member"`
	Viewer               []int             `json:"viewer"`
	Favorite             []int             `json:"favorite"`
	Filters              map[string]string `json:"filters"`
}

// IsMember reports whether the user is on the team of the project.
func (u *UserProfile) IsMember(projectID int) bool {
	return u != nil && slices.Contains(u.Member, projectID)
}

// IsViewer reports whether the user is a viewer of the project.
func (u *UserProfile) IsViewer(projectID int) bool {
	return u != nil && slices.Contains(u.Viewer, projectID)
}

// IsFavorite reports whether the user marked the project as favourite.
func (u *UserProfile) IsFavorite(projectID int) bool {
	return u != nil && slices.Contains(u.Favorite, projectID)
}

// CanManageOrganisations reports whether the user may open the
// organisation-management pages at all.
func (u *UserProfile) CanManageOrganisations() bool {
	return u != nil && (u.IsSuperuser || u.GlobalPortfolioOwner || len(u.Manager) > 0)
}

// UpdateTeamViewers records the new team and viewer lists of a project on the
// profile and reports whether the user still belongs to the project.
func (u *UserProfile) UpdateTeamViewers(projectID int, team, viewers []Member) bool {
	if u == nil {
		return false
	}
	inTeam := slices.Contains(team, UserMember(u.ID))
	inViewers := slices.Contains(viewers, UserMember(u.ID))
	u.Member = toggle(u.Member, projectID, inTeam)
	u.Viewer = toggle(u.Viewer, projectID, inViewers)
	return inTeam || inViewers
}

func toggle(ids []int, id int, present bool) []int {
	out := slices.DeleteFunc(slices.Clone(ids), func(v int) bool { return v == id })
	if present {
		out = append(out, id)
	}
	return out
}

// Organisation is a project owner.
type Organisation struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Donor is a funding organisation with its custom questions.
type Donor struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Code           string     `json:"code,omitempty"`
	DonorQuestions []Question `json:"donor_questions"`
}

// Region is a UNICEF region.
type Region struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Country is a country with its custom questions.
type Country struct {
	ID               int        `json:"id"`
	Name             string     `json:"name"`
	Code             string     `json:"code,omitempty"`
	UnicefRegion     *int       `json:"unicef_region"`
	CountryQuestions []Question `json:"country_questions,omitempty"`
}

// Office is a UNICEF country office.
type Office struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Country int    `json:"country"`
	Region  *int   `json:"region"`
}

// Axis is a toolkit assessment axis.
type Axis struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// AxisDomain is a domain scored under one axis.
type AxisDomain struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Axis int    `json:"axis"`
}

// StaticData is the reference data shared by every view.
type StaticData struct {
	Axis               []Axis       `json:"axis"`
	Domains            []AxisDomain `json:"domains"`
	Regions            []Region     `json:"regions"`
	UnicefDonor        Donor        `json:"unicef_donor"`
	UnicefOrganisation Organisation `json:"unicef_organisation"`
}

// ProblemStatement belongs to a portfolio.
type ProblemStatement struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Portfolio is a named group of projects under review.
type Portfolio struct {
	ID                int                `json:"id"`
	Name              string             `json:"name"`
	Description       string             `json:"description"`
	ProblemStatements []ProblemStatement `json:"problem_statements"`
}
