package project

import (
	"slices"

	"github.com/inventhq/invent/internal/domain"
)

// Update is a single typed change to the project being edited.
type Update interface {
	apply(f *domain.ProjectFields)
}

// Free-text fields.
type (
	SetName                   string
	SetImplementationOverview string
	SetStartDate              string
	SetEndDate                string
	SetContactName            string
	SetContactEmail           string
	SetOverview               string
	SetProgramTargets         string
	SetProgramTargetsAchieved string
	SetCurrentAchievements    string
	SetAWP                    string
	SetTotalBudgetNarrative   string
	SetFundingNeeds           string
	SetPartnershipNeeds       string
	SetTargetGroupReached     string
	SetTotalBudget            string
)

func (u SetName) apply(f *domain.ProjectFields) { f.Name = string(u) }
func (u SetImplementationOverview) apply(f *domain.ProjectFields) { f.ImplementationOverview = string(u) }
func (u SetStartDate) apply(f *domain.ProjectFields) { f.StartDate = string(u) }
func (u SetEndDate) apply(f *domain.ProjectFields) { f.EndDate = string(u) }
func (u SetContactName) apply(f *domain.ProjectFields) { f.ContactName = string(u) }
func (u SetContactEmail) apply(f *domain.ProjectFields) { f.ContactEmail = string(u) }
func (u SetOverview) apply(f *domain.ProjectFields) { f.Overview = string(u) }
func (u SetProgramTargets) apply(f *domain.ProjectFields) { f.ProgramTargets = string(u) }
func (u SetProgramTargetsAchieved) apply(f *domain.ProjectFields) { f.ProgramTargetsAchieved = string(u) }
func (u SetCurrentAchievements) apply(f *domain.ProjectFields) { f.CurrentAchievements = string(u) }
func (u SetAWP) apply(f *domain.ProjectFields) { f.AWP = string(u) }
func (u SetTotalBudgetNarrative) apply(f *domain.ProjectFields) { f.TotalBudgetNarrative = string(u) }
func (u SetFundingNeeds) apply(f *domain.ProjectFields) { f.FundingNeeds = string(u) }
func (u SetPartnershipNeeds) apply(f *domain.ProjectFields) { f.PartnershipNeeds = string(u) }
func (u SetTargetGroupReached) apply(f *domain.ProjectFields) { f.TargetGroupReached = string(u) }
func (u SetTotalBudget) apply(f *domain.ProjectFields) { f.TotalBudget = string(u) }

// Optional references; a nil Value clears the field.
type (
	SetOrganisation  struct{ Value *int }
	SetCountry       struct{ Value *int }
	SetCountryOffice struct{ Value *int }
	SetResultArea    struct{ Value *int }
	SetPhase         struct{ Value *int }
	SetInfoSec       struct{ Value *int }
)

func (u SetOrganisation) apply(f *domain.ProjectFields) { f.Organisation = clonePtr(u.Value) }
func (u SetCountry) apply(f *domain.ProjectFields) { f.Country = clonePtr(u.Value) }
func (u SetCountryOffice) apply(f *domain.ProjectFields) { f.CountryOffice = clonePtr(u.Value) }
func (u SetResultArea) apply(f *domain.ProjectFields) { f.ResultArea = clonePtr(u.Value) }
func (u SetPhase) apply(f *domain.ProjectFields) { f.Phase = clonePtr(u.Value) }
func (u SetInfoSec) apply(f *domain.ProjectFields) { f.ISC = clonePtr(u.Value) }

// Multi-select fields.
type (
	SetCapabilityLevels           []int
	SetCapabilityCategories       []int
	SetCapabilitySubcategories    []int
	SetPlatforms                  []int
	SetDigitalHealthInterventions []int
	SetHealthFocusAreas           []int
	SetHSCChallenges              []int
	SetDonors                     []int
	SetSectors                    []int
	SetFunctions                  []int
	SetHardware                   []int
	SetNontech                    []int
	SetRegionalPriorities         []int
	SetInnovationCategories       []int
	SetCPD                        []int
	SetInnovationWays             []int
)

func (u SetCapabilityLevels) apply(f *domain.ProjectFields) { f.CapabilityLevels = orEmpty(u) }
func (u SetCapabilityCategories) apply(f *domain.ProjectFields) { f.CapabilityCategories = orEmpty(u) }
func (u SetCapabilitySubcategories) apply(f *domain.ProjectFields) { f.CapabilitySubcategories = orEmpty(u) }
func (u SetPlatforms) apply(f *domain.ProjectFields) { f.Platforms = orEmpty(u) }
func (u SetDigitalHealthInterventions) apply(f *domain.ProjectFields) { f.DHIs = orEmpty(u) }
func (u SetHealthFocusAreas) apply(f *domain.ProjectFields) { f.HealthFocusAreas = orEmpty(u) }
func (u SetHSCChallenges) apply(f *domain.ProjectFields) { f.HSCChallenges = orEmpty(u) }
func (u SetDonors) apply(f *domain.ProjectFields) { f.Donors = orEmpty(u) }
func (u SetSectors) apply(f *domain.ProjectFields) { f.UnicefSector = orEmpty(u) }
func (u SetFunctions) apply(f *domain.ProjectFields) { f.Functions = orEmpty(u) }
func (u SetHardware) apply(f *domain.ProjectFields) { f.Hardware = orEmpty(u) }
func (u SetNontech) apply(f *domain.ProjectFields) { f.Nontech = orEmpty(u) }
func (u SetRegionalPriorities) apply(f *domain.ProjectFields) { f.RegionalPriorities = orEmpty(u) }
func (u SetInnovationCategories) apply(f *domain.ProjectFields) { f.InnovationCategories = orEmpty(u) }
func (u SetCPD) apply(f *domain.ProjectFields) { f.CPD = orEmpty(u) }
func (u SetInnovationWays) apply(f *domain.ProjectFields) { f.InnovationWays = orEmpty(u) }

// SetCurrency selects the budget currency.
type SetCurrency int

func (u SetCurrency) apply(f *domain.ProjectFields) { f.Currency = int(u) }

// SetWBS replaces the WBS codes.
type SetWBS []string

func (u SetWBS) apply(f *domain.ProjectFields) { f.WBS = append([]string{}, u...) }

// SetLinks replaces the external links.
type SetLinks []domain.Link

func (u SetLinks) apply(f *domain.ProjectFields) { f.Links = append([]domain.Link{}, u...) }

// SetPartners replaces the partners.
type SetPartners []domain.Partner

func (u SetPartners) apply(f *domain.ProjectFields) { f.Partners = append([]domain.Partner{}, u...) }

// SetImplementationDates sets both ends of the implementation period.
type SetImplementationDates struct {
	Start string
	End   string
}

func (u SetImplementationDates) apply(f *domain.ProjectFields) {
	f.StartDate = u.Start
	f.EndDate = u.End
}

// SetGoalArea selects the goal area. Result area and capabilities depend on
// it, so they are cleared.
type SetGoalArea struct{ Value *int }

func (u SetGoalArea) apply(f *domain.ProjectFields) {
	f.GoalArea = clonePtr(u.Value)
	f.ResultArea = nil
	f.CapabilityLevels = []int{}
	f.CapabilityCategories = []int{}
	f.CapabilitySubcategories = []int{}
}

// SetTeam replaces the team, or appends a pending invitation when Invite is
// set.
type SetTeam struct {
	Members []domain.Member
	Invite  string
}

func (u SetTeam) apply(f *domain.ProjectFields) { f.Team = members(f.Team, u.Members, u.Invite) }

// SetViewers replaces the viewers, or appends a pending invitation when
// Invite is set.
type SetViewers struct {
	Members []domain.Member
	Invite  string
}

func (u SetViewers) apply(f *domain.ProjectFields) { f.Viewers = members(f.Viewers, u.Members, u.Invite) }

// SetDonorAnswer upserts an answer by question id.
type SetDonorAnswer domain.CustomAnswer

func (u SetDonorAnswer) apply(f *domain.ProjectFields) {
	f.DonorAnswers = domain.UpsertAnswer(f.DonorAnswers, domain.CustomAnswer(u))
}

// SetCountryAnswer upserts a country answer by question id.
type SetCountryAnswer domain.CustomAnswer

func (u SetCountryAnswer) apply(f *domain.ProjectFields) {
	f.CountryAnswers = domain.UpsertAnswer(f.CountryAnswers, domain.CustomAnswer(u))
}

func members(current, replace []domain.Member, invite string) []domain.Member {
	if invite != "" {
		return append(slices.Clone(current), domain.InviteMember(invite))
	}
	return append([]domain.Member{}, replace...)
}

func clonePtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func orEmpty(s []int) []int {
	return append([]int{}, s...)
}
