package importer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/inventhq/invent/internal/domain"
)

const (
	sheetDate  = "01/02/2006"
	apiDate    = "2006-01-02"
	valueSplit = "|"
)

// Row is one imported project.
type Row struct {
	Line        int                  `json:"line"`
	Project     domain.ProjectFields `json:"-"`
	FieldOffice *int                 `json:"field_office,omitempty"`
}

// RowError reports a cell that could not be imported.
type RowError struct {
	Line    int    `json:"line"`
	Column  string `json:"column"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("line %d, %s: %s (%q)", e.Line, e.Column, e.Message, e.Value)
	}
	return fmt.Sprintf("line %d, %s: %s", e.Line, e.Column, e.Message)
}

// rowSchema validates the raw text cells of a row.
const rowSchema = `{
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "contact_email": {"type": "string", "anyOf": [{"maxLength": 0}, {"format": "email"}]},
    "start_date": {"type": "string", "pattern": "^([0-9]{2}/[0-9]{2}/[0-9]{4})?$"},
    "end_date": {"type": "string", "pattern": "^([0-9]{2}/[0-9]{2}/[0-9]{4})?$"}
  }
}`

// rowValidator is compiled once and shared by every row.
var rowValidator = mustCompile(rowSchema)

func mustCompile(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("importer: invalid row schema: %v", err))
	}
	return s
}

// ValidateRow checks the text cells of a row, keyed by field.
func ValidateRow(line int, cells map[string]string, m Mapping) ([]RowError, error) {
	doc := make(map[string]string, 4)
	for _, field := range []string{"name", "contact_email", "start_date", "end_date"} {
		if v, ok := cells[field]; ok {
			doc[field] = v
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	result, err := rowValidator.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validate row %d: %w", line, err)
	}
	if result.Valid() {
		return nil, nil
	}

	out := make([]RowError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		field := re.Field()
		if field == "(root)" {
			if f, ok := re.Details()["property"].(string); ok {
				field = f
			}
		}
		header, ok := m.Header(field)
		if !ok {
			header = field
		}
		value := ""
		if v, ok := re.Value().(string); ok {
			value = v
		}
		out = append(out, RowError{Line: line, Column: header, Value: value, Message: re.Description()})
	}
	return out, nil
}

// ParseCSV reads projects from a sheet. The first record holds the headers;
// unknown headers are ignored. Option cells are resolved by name against
// the structure and may hold several values separated by "|". Rows with
// errors are left out of the result and every problem is reported.
func ParseCSV(r io.Reader, structure *domain.ProjectStructure, m Mapping) ([]Row, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("sheet has no header row")
		}
		return nil, nil, fmt.Errorf("failed to read headers: %w", err)
	}
	fields := make([]string, len(headers))
	for i, h := range headers {
		fields[i], _ = m.Field(strings.TrimPrefix(h, "\ufeff"))
	}

	var (
		rows    []Row
		rowErrs []RowError
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		cells := make(map[string]string, len(record))
		for i, v := range record {
			if i < len(fields) && fields[i] != "" {
				cells[fields[i]] = strings.TrimSpace(v)
			}
		}
		if isBlank(cells) {
			continue
		}

		errs, err := ValidateRow(line, cells, m)
		if err != nil {
			return nil, nil, err
		}
		row, cellErrs := parseRow(line, cells, structure, m)
		for _, ce := range cellErrs {
			if !slices.ContainsFunc(errs, func(e RowError) bool { return e.Column == ce.Column && e.Value == ce.Value }) {
				errs = append(errs, ce)
			}
		}
		if len(errs) > 0 {
			rowErrs = append(rowErrs, errs...)
			continue
		}
		rows = append(rows, row)
	}
	return rows, rowErrs, nil
}

func isBlank(cells map[string]string) bool {
	for _, v := range cells {
		if v != "" {
			return false
		}
	}
	return true
}

func parseRow(line int, cells map[string]string, structure *domain.ProjectStructure, m Mapping) (Row, []RowError) {
	row := Row{Line: line, Project: domain.CleanFields()}
	f := &row.Project
	var errs []RowError

	fail := func(field, value, msg string) {
		header, _ := m.Header(field)
		errs = append(errs, RowError{Line: line, Column: header, Value: value, Message: msg})
	}
	date := func(field string) string {
		v := cells[field]
		if v == "" {
			return ""
		}
		t, err := time.Parse(sheetDate, v)
		if err != nil {
			fail(field, v, "date must be MM/DD/YYYY")
			return ""
		}
		return t.Format(apiDate)
	}
	many := func(field string) []int {
		out := []int{}
		v := cells[field]
		if v == "" {
			return out
		}
		options, _ := structure.Options(field)
		for _, part := range strings.Split(v, valueSplit) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			o, ok := domain.FindOption(options, part)
			if !ok {
				fail(field, part, "not found in "+StructureLookup[field])
				continue
			}
			out = append(out, o.ID)
		}
		return out
	}
	one := func(field string) *int {
		ids := many(field)
		switch len(ids) {
		case 0:
			return nil
		case 1:
			return &ids[0]
		}
		fail(field, cells[field], "only one value is allowed")
		return nil
	}

	f.Name = cells["name"]
	f.ImplementationOverview = cells["implementation_overview"]
	f.ContactName = cells["contact_name"]
	f.ContactEmail = cells["contact_email"]
	f.StartDate = date("start_date")
	f.EndDate = date("end_date")
	f.Platforms = many("platforms")
	f.HealthFocusAreas = many("health_focus_areas")
	f.HSCChallenges = many("hsc_challenges")
	f.DHIs = many("dhis")
	f.GoalArea = one("goal_area")
	f.ResultArea = one("result_area")
	f.CapabilityLevels = many("capability_levels")
	f.CapabilityCategories = many("capability_categories")
	f.CapabilitySubcategories = many("capability_subcategories")
	f.Functions = many("functions")
	f.Hardware = many("hardware")
	f.Nontech = many("nontech")
	f.RegionalPriorities = many("regional_priorities")
	f.InnovationCategories = many("innovation_categories")
	f.CPD = many("cpd")
	if !strings.EqualFold(cells["field_office"], FieldOfficeFromCountry) {
		row.FieldOffice = one("field_office")
	}
	return row, errs
}

// ExportCSV writes projects with display names in the columns of m.
// Dates are written as MM/DD/YYYY and multiple values joined with "|".
// Ids missing from the structure are written as numbers.
func ExportCSV(w io.Writer, projects []domain.ProjectFields, structure *domain.ProjectStructure, m Mapping) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(m.Headers()); err != nil {
		return err
	}

	for _, p := range projects {
		record := make([]string, len(m))
		for i, c := range m {
			record[i] = exportCell(c.Field, p, structure)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportCell(field string, p domain.ProjectFields, structure *domain.ProjectStructure) string {
	switch field {
	case "name":
		return p.Name
	case "implementation_overview":
		return p.ImplementationOverview
	case "contact_name":
		return p.ContactName
	case "contact_email":
		return p.ContactEmail
	case "start_date":
		return exportDate(p.StartDate)
	case "end_date":
		return exportDate(p.EndDate)
	case "goal_area":
		return names(field, optional(p.GoalArea), structure)
	case "result_area":
		return names(field, optional(p.ResultArea), structure)
	case "field_office":
		return ""
	}
	if ids, ok := projectIDs(field, p); ok {
		return names(field, ids, structure)
	}
	return ""
}

func projectIDs(field string, p domain.ProjectFields) ([]int, bool) {
	switch field {
	case "platforms":
		return p.Platforms, true
	case "health_focus_areas":
		return p.HealthFocusAreas, true
	case "hsc_challenges":
		return p.HSCChallenges, true
	case "dhis":
		return p.DHIs, true
	case "capability_levels":
		return p.CapabilityLevels, true
	case "capability_categories":
		return p.CapabilityCategories, true
	case "capability_subcategories":
		return p.CapabilitySubcategories, true
	case "functions":
		return p.Functions, true
	case "hardware":
		return p.Hardware, true
	case "nontech":
		return p.Nontech, true
	case "regional_priorities":
		return p.RegionalPriorities, true
	case "innovation_categories":
		return p.InnovationCategories, true
	case "cpd":
		return p.CPD, true
	}
	return nil, false
}

func optional(id *int) []int {
	if id == nil {
		return nil
	}
	return []int{*id}
}

func names(field string, ids []int, structure *domain.ProjectStructure) string {
	options, _ := structure.Options(field)
	byID := make(map[int]string, len(options))
	for _, o := range options {
		byID[o.ID] = o.Name
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := byID[id]; ok {
			out = append(out, name)
		} else {
			out = append(out, fmt.Sprint(id))
		}
	}
	return strings.Join(out, valueSplit)
}

func exportDate(v string) string {
	if v == "" {
		return ""
	}
	t, err := time.Parse(apiDate, v)
	if err != nil {
		return v
	}
	return t.Format(sheetDate)
}

// WriteTemplate writes the example sheet.
func WriteTemplate(w io.Writer, m Mapping) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(m.Headers()); err != nil {
		return err
	}
	for _, row := range Template {
		record := make([]string, len(m))
		for i, c := range m {
			if h, ok := NameMapping.Header(c.Field); ok {
				record[i] = row[h]
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
