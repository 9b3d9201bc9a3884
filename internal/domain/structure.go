package domain

import "strings"

// Option is one selectable taxonomy entry.
type Option struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	GoalAreaID int    `json:"goal_area_id,omitempty"`
	Region     int    `json:"region,omitempty"`
}

// Strategy is a digital health intervention.
type Strategy struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// StrategyGroup groups interventions under a category.
type StrategyGroup struct {
	Name       string     `json:"name"`
	Strategies []Strategy `json:"strategies"`
}

// StrategyCategory is the top level of the intervention tree.
type StrategyCategory struct {
	Name      string          `json:"name"`
	SubGroups []StrategyGroup `json:"subGroups"`
}

// ProjectStructure is the taxonomy every project is classified against.
type ProjectStructure struct {
	GoalAreas                 []Option           `json:"goal_areas"`
	ResultAreas               []Option           `json:"result_areas"`
	RegionalOffices           []Option           `json:"regional_offices"`
	CapabilityLevels          []Option           `json:"capability_levels"`
	CapabilityCategories      []Option           `json:"capability_categories"`
	CapabilitySubcategories   []Option           `json:"capability_subcategories"`
	HealthFocusAreas          []Option           `json:"health_focus_areas"`
	HISBucket                 []Option           `json:"his_bucket"`
	HSCChallenges             []Option           `json:"hsc_challenges"`
	InteroperabilityLinks     []Option           `json:"interoperability_links"`
	InteroperabilityStandards []Option           `json:"interoperability_standards"`
	Licenses                  []Option           `json:"licenses"`
	Strategies                []StrategyCategory `json:"strategies"`
	TechnologyPlatforms       []Option           `json:"technology_platforms"`
	Sectors                   []Option           `json:"sectors"`
	ISC                       []Option           `json:"isc"`
	InnovationWays            []Option           `json:"innovation_ways"`
	RegionalPriorities        []Option           `json:"regional_priorities"`
	Hardware                  []Option           `json:"hardware"`
	Nontech                   []Option           `json:"nontech"`
	Functions                 []Option           `json:"functions"`
	Currencies                []Option           `json:"currencies"`
	Phases                    []Option           `json:"phases"`
	Stages                    []Option           `json:"stages"`
	CPD                       []Option           `json:"cpd"`
	InnovationCategories      []Option           `json:"innovation_categories"`
}

// IsEmpty reports whether the structure has never been loaded.
func (s *ProjectStructure) IsEmpty() bool {
	return s == nil || (len(s.GoalAreas) == 0 && len(s.Strategies) == 0 && len(s.TechnologyPlatforms) == 0 &&
		len(s.Functions) == 0 && len(s.Sectors) == 0)
}

// Options returns the option list backing a project field, by field name.
func (s *ProjectStructure) Options(field string) ([]Option, bool) {
	if s == nil {
		return nil, false
	}
	switch field {
	case "goal_area":
		return s.GoalAreas, true
	case "result_area":
		return s.ResultAreas, true
	case "capability_levels":
		return s.CapabilityLevels, true
	case "capability_categories":
		return s.CapabilityCategories, true
	case "capability_subcategories":
		return s.CapabilitySubcategories, true
	case "platforms":
		return s.TechnologyPlatforms, true
	case "health_focus_areas":
		return s.HealthFocusAreas, true
	case "hsc_challenges":
		return s.HSCChallenges, true
	case "dhis":
		var out []Option
		for _, c := range s.Strategies {
			for _, g := range c.SubGroups {
				for _, st := range g.Strategies {
					out = append(out, Option{ID: st.ID, Name: st.Name})
				}
			}
		}
		return out, true
	case "functions":
		return s.Functions, true
	case "hardware":
		return s.Hardware, true
	case "nontech":
		return s.Nontech, true
	case "regional_priorities":
		return s.RegionalPriorities, true
	case "innovation_categories":
		return s.InnovationCategories, true
	case "cpd":
		return s.CPD, true
	case "unicef_sector":
		return s.Sectors, true
	case "innovation_ways":
		return s.InnovationWays, true
	case "isc":
		return s.ISC, true
	case "phase":
		return s.Phases, true
	case "field_office":
		return s.RegionalOffices, true
	}
	return nil, false
}

// FindOption resolves a display value to an option. Exact names match first;
// otherwise a leading numbering such as "21." or "1.1" is ignored on both
// sides.
func FindOption(options []Option, value string) (Option, bool) {
	value = strings.TrimSpace(value)
	for _, o := range options {
		if strings.EqualFold(o.Name, value) {
			return o, true
		}
	}
	bare := stripNumbering(value)
	for _, o := range options {
		if strings.EqualFold(stripNumbering(o.Name), bare) {
			return o, true
		}
	}
	return Option{}, false
}

// stripNumbering drops a leading "1.2.3", "21." or "21-01" token.
func stripNumbering(s string) string {
	s = strings.TrimSpace(s)
	head, rest, found := strings.Cut(s, " ")
	if !found {
		return s
	}
	if strings.Trim(head, "0123456789.-") == "" {
		return strings.TrimSpace(rest)
	}
	return s
}
