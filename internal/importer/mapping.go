// Package importer maps projects to and from the spreadsheet columns used
// for bulk import and export.
package importer

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Column ties a project field to its spreadsheet header.
type Column struct {
	Field  string `yaml:"field"`
	Header string `yaml:"header"`
}

// Mapping is an ordered list of columns.
type Mapping []Column

// InventNameMapping holds the columns only INVENT projects carry.
var InventNameMapping = Mapping{
	{"functions", "Function(s) of Platform"},
	{"hardware", "Hardware platforms"},
	{"nontech", "Non-Technology platforms"},
	{"regional_priorities", "Regional Priorities"},
	{"innovation_categories", "Innovation Categories"},
	{"cpd", "In Country programme document (CPD)"},
}

// NameMapping holds every importable column in spreadsheet order.
var NameMapping = append(Mapping{
	{"name", "Project Name"},
	{"implementation_overview", "Initiative Description"},
	{"start_date", "Project Start Date"},
	{"end_date", "Project End Date"},
	{"contact_name", "Programme Focal Point Name"},
	{"contact_email", "Programme Focal Point Email"},
	{"platforms", "Software"},
	{"health_focus_areas", "Health Focus Areas"},
	{"hsc_challenges", "Health System Challenges"},
	{"dhis", "Digital Health Interventions"},
	{"goal_area", "Goal Area"},
	{"result_area", "Result Area"},
	{"capability_levels", "Capability Levels"},
	{"capability_categories", "Capability Categories"},
	{"capability_subcategories", "Capability Subcategories"},
	{"field_office", "Field Office"},
}, InventNameMapping...)

// StructureLookup names the taxonomy list each option column is resolved
// against.
var StructureLookup = map[string]string{
	"platforms":                "technology_platforms",
	"health_focus_areas":       "health_focus_areas",
	"hsc_challenges":           "hsc_challenges",
	"dhis":                     "strategies",
	"goal_area":                "goal_areas",
	"result_area":              "result_areas",
	"capability_levels":        "capability_levels",
	"capability_categories":    "capability_categories",
	"capability_subcategories": "capability_subcategories",
	"field_office":             "regional_offices",
	"functions":                "functions",
	"hardware":                 "hardware",
	"nontech":                  "nontech",
	"regional_priorities":      "regional_priorities",
	"innovation_categories":    "innovation_categories",
	"cpd":                      "cpd",
}

// FieldOfficeFromCountry is the field office placeholder meaning "use the
// office of the selected country".
const FieldOfficeFromCountry = "According to selected country office"

// Template is the example sheet offered for download.
var Template = []map[string]string{
	{
		"Project Name":                 "MyProject",
		"Initiative Description":       "Narrative free text",
		"Project Start Date":           "01/01/2015",
		"Project End Date":             "01/01/2019",
		"Programme Focal Point Name":   "Nico",
		"Programme Focal Point Email":  "nico@pulilab.com",
		"Software":                     "Bamboo",
		"Digital Health Interventions": "3.4.1 Notify birth event|3.4.2 Register birth event",
		"Health Focus Areas":           "Adolescents and communicable diseases|Other sexual and reproductive health",
		"Health System Challenges":     "1.1 Lack of population denominator|1.2 Delayed reporting of events",
		"Goal Area":                    "21. Survive and Thrive",
		"Result Area":                  "21-01 Maternal and newborn health",
		"Field Office":                 FieldOfficeFromCountry,
	},
	{
		"Project Name":                "MyProject2",
		"Initiative Description":      "Narrative free text",
		"Project Start Date":          "04/22/2015",
		"Project End Date":            "03/22/2019",
		"Programme Focal Point Name":  "Nico",
		"Programme Focal Point Email": "nico@pulilab.com",
		"Software":                    "Bamboo",
		"Goal Area":                   "22. Learn",
		"Result Area":                 "22-01 Equitable access to quality education",
		"Field Office":                FieldOfficeFromCountry,
		"Capability Levels":           "4. Interventions for data services",
		"Capability Categories":       "1.3 Student to student communication",
		"Capability Subcategories":    "1.1.1 Transmit education event alerts to specific population group(s)",
	},
}

// Header returns the header of a field.
func (m Mapping) Header(field string) (string, bool) {
	for _, c := range m {
		if c.Field == field {
			return c.Header, true
		}
	}
	return "", false
}

// Field returns the field of a header. Headers match case-insensitively.
func (m Mapping) Field(header string) (string, bool) {
	header = strings.TrimSpace(header)
	for _, c := range m {
		if strings.EqualFold(c.Header, header) {
			return c.Field, true
		}
	}
	return "", false
}

// Headers returns the headers in column order.
func (m Mapping) Headers() []string {
	out := make([]string, len(m))
	for i, c := range m {
		out[i] = c.Header
	}
	return out
}

// WithOverrides returns a copy of m with headers replaced by field.
func (m Mapping) WithOverrides(overrides map[string]string) (Mapping, error) {
	out := append(Mapping{}, m...)
	for field, header := range overrides {
		found := false
		for i := range out {
			if out[i].Field == field {
				out[i].Header = header
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown import field %q", field)
		}
	}
	return out, nil
}

// LoadOverrides reads a YAML file of field: header pairs.
func LoadOverrides(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read header overrides: %w", err)
	}
	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("invalid header overrides: %w", err)
	}
	return overrides, nil
}
