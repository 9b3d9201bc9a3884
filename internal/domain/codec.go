package domain

import (
	"sort"
	"strconv"
	"time"
)

// nowFunc is replaced in tests.
var nowFunc = time.Now

// WriteBody is the payload of the draft and publish endpoints.
type WriteBody struct {
	Project              APIProject                `json:"project"`
	CountryCustomAnswers []CustomAnswer            `json:"country_custom_answers"`
	DonorCustomAnswers   map[string][]CustomAnswer `json:"donor_custom_answers"`
}

// ReadParse converts an API project into editor fields, applying the
// declared defaults for everything the API left out. A nil project yields
// CleanFields with Modified set to now.
func ReadParse(p *APIProject) ProjectFields {
	f := CleanFields()
	f.Modified = nowFunc()
	if p == nil {
		return f
	}

	f.Name = p.Name
	f.Organisation = cloneInt(p.Organisation)
	f.Country = cloneInt(p.Country)
	f.CountryOffice = cloneInt(p.CountryOffice)
	if p.Modified != nil {
		f.Modified = *p.Modified
	}
	f.ImplementationOverview = p.ImplementationOverview
	f.StartDate = p.StartDate
	f.EndDate = p.EndDate
	f.ContactName = p.ContactName
	f.ContactEmail = p.ContactEmail
	f.GoalArea = cloneInt(p.GoalArea)
	f.ResultArea = cloneInt(p.ResultArea)
	f.CapabilityLevels = orInts(p.CapabilityLevels)
	f.CapabilityCategories = orInts(p.CapabilityCategories)
	f.CapabilitySubcategories = orInts(p.CapabilitySubcategories)
	f.Platforms = orInts(p.Platforms)
	f.DHIs = orInts(p.DHIs)
	f.HealthFocusAreas = orInts(p.HealthFocusAreas)
	f.HSCChallenges = orInts(p.HSCChallenges)
	f.Donors = orInts(p.Donors)
	f.UnicefSector = orInts(p.UnicefSector)
	f.Functions = orInts(p.Functions)
	f.Hardware = orInts(p.Hardware)
	f.Nontech = orInts(p.Nontech)
	f.RegionalPriorities = orInts(p.RegionalPriorities)
	f.Overview = p.Overview
	f.ProgramTargets = p.ProgramTargets
	f.ProgramTargetsAchieved = p.ProgramTargetsAchieved
	f.CurrentAchievements = p.CurrentAchievements
	f.AWP = p.AWP
	f.TotalBudgetNarrative = p.TotalBudgetNarrative
	f.FundingNeeds = p.FundingNeeds
	f.PartnershipNeeds = p.PartnershipNeeds
	f.TargetGroupReached = p.TargetGroupReached
	if p.Currency != nil {
		f.Currency = *p.Currency
	}
	if p.TotalBudget != nil {
		f.TotalBudget = strconv.FormatFloat(*p.TotalBudget, 'f', -1, 64)
	}
	if p.WBS != nil {
		f.WBS = append([]string{}, p.WBS...)
	}
	f.InnovationCategories = orInts(p.InnovationCategories)
	if p.Links != nil {
		f.Links = append([]Link{}, p.Links...)
	}
	f.CPD = orInts(p.CPD)
	if p.Partners != nil {
		f.Partners = append([]Partner{}, p.Partners...)
	}
	f.Phase = cloneInt(p.Phase)
	f.ISC = cloneInt(p.ISC)
	f.InnovationWays = orInts(p.InnovationWays)

	f.CountryAnswers = cloneAnswers(p.CountryCustomAnswers)
	f.DonorAnswers = flattenDonorAnswers(p.DonorCustomAnswers)
	return f
}

// WriteParse builds the write payload for fields plus the reconciled country
// and donor answers. Modified is left to the server.
func WriteParse(f ProjectFields, countryAnswers, donorAnswers []CustomAnswer) WriteBody {
	p := APIProject{
		Name:                    f.Name,
		Organisation:            cloneInt(f.Organisation),
		Country:                 cloneInt(f.Country),
		CountryOffice:           cloneInt(f.CountryOffice),
		ImplementationOverview:  f.ImplementationOverview,
		StartDate:               f.StartDate,
		EndDate:                 f.EndDate,
		ContactName:             f.ContactName,
		ContactEmail:            f.ContactEmail,
		GoalArea:                cloneInt(f.GoalArea),
		ResultArea:              cloneInt(f.ResultArea),
		CapabilityLevels:        orInts(f.CapabilityLevels),
		CapabilityCategories:    orInts(f.CapabilityCategories),
		CapabilitySubcategories: orInts(f.CapabilitySubcategories),
		Platforms:               orInts(f.Platforms),
		DHIs:                    orInts(f.DHIs),
		HealthFocusAreas:        orInts(f.HealthFocusAreas),
		HSCChallenges:           orInts(f.HSCChallenges),
		Donors:                  orInts(f.Donors),
		UnicefSector:            orInts(f.UnicefSector),
		Functions:               orInts(f.Functions),
		Hardware:                orInts(f.Hardware),
		Nontech:                 orInts(f.Nontech),
		RegionalPriorities:      orInts(f.RegionalPriorities),
		Overview:                f.Overview,
		ProgramTargets:          f.ProgramTargets,
		ProgramTargetsAchieved:  f.ProgramTargetsAchieved,
		CurrentAchievements:     f.CurrentAchievements,
		AWP:                     f.AWP,
		TotalBudgetNarrative:    f.TotalBudgetNarrative,
		FundingNeeds:            f.FundingNeeds,
		PartnershipNeeds:        f.PartnershipNeeds,
		TargetGroupReached:      f.TargetGroupReached,
		Currency:                IntPtr(f.Currency),
		WBS:                     append([]string{}, f.WBS...),
		InnovationCategories:    orInts(f.InnovationCategories),
		Links:                   append([]Link{}, f.Links...),
		CPD:                     orInts(f.CPD),
		Partners:                append([]Partner{}, f.Partners...),
		Phase:                   cloneInt(f.Phase),
		ISC:                     cloneInt(f.ISC),
		InnovationWays:          orInts(f.InnovationWays),
	}
	if v, ok := f.TotalBudgetValue(); ok {
		p.TotalBudget = &v
	}

	country := make([]CustomAnswer, 0, len(countryAnswers))
	for _, a := range countryAnswers {
		country = append(country, CustomAnswer{
			QuestionID: a.QuestionID,
			Answer:     orStrings(a.Answer),
		})
	}

	return WriteBody{
		Project:              p,
		CountryCustomAnswers: country,
		DonorCustomAnswers:   groupDonorAnswers(donorAnswers),
	}
}

// flattenDonorAnswers turns the per-donor answer object into one list tagged
// with the donor id, ordered by donor id. Keys that are not donor ids are
// ignored.
func flattenDonorAnswers(byDonor map[string][]CustomAnswer) []CustomAnswer {
	type keyed struct {
		id  int
		key string
	}
	keys := make([]keyed, 0, len(byDonor))
	for k := range byDonor {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		keys = append(keys, keyed{id: id, key: k})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].id < keys[j].id })

	out := []CustomAnswer{}
	for _, k := range keys {
		for _, a := range byDonor[k.key] {
			out = append(out, CustomAnswer{
				QuestionID: a.QuestionID,
				Answer:     orStrings(a.Answer),
				DonorID:    k.id,
			})
		}
	}
	return out
}

func groupDonorAnswers(answers []CustomAnswer) map[string][]CustomAnswer {
	out := make(map[string][]CustomAnswer)
	for _, a := range answers {
		key := strconv.Itoa(a.DonorID)
		out[key] = append(out[key], CustomAnswer{
			QuestionID: a.QuestionID,
			Answer:     orStrings(a.Answer),
		})
	}
	return out
}

func orInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return append([]int{}, s...)
}

func orStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}
