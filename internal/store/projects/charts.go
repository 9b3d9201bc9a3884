package projects

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/inventhq/invent/internal/domain"
)

const dateLayout = "2006-01-02"

// toolkitAxes is the number of axes a complete toolkit assessment scores.
const toolkitAxes = 6

// coverageSeries maps coverage keys to chart series, in series order.
var coverageSeries = []string{"clients", "facilities", "health_workers"}

// ChartPoint is one dated point of a chart. Series are named axis1, axis2...
type ChartPoint struct {
	Date   string
	Values map[string]float64
}

func (p ChartPoint) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Values)+1)
	for k, v := range p.Values {
		out[k] = v
	}
	out["date"] = p.Date
	return json.Marshal(out)
}

// Chart is a labelled series of points.
type Chart struct {
	Labels []string     `json:"labels"`
	Data   []ChartPoint `json:"data"`
}

// DomainChart holds one chart per axis, keyed by axis name.
type DomainChart struct {
	Labels []string         `json:"labels"`
	Axes   map[string]Chart `json:"axes"`
}

func series(i int) string { return fmt.Sprintf("axis%d", i+1) }

func versionDate(modified string, today time.Time) string {
	if modified == "" {
		return today.Format(dateLayout)
	}
	date, _, _ := strings.Cut(modified, "T")
	return date
}

// AxisData charts the axis scores of every toolkit version followed by the
// live scores, which are only added when all six axes are scored.
func AxisData(axes []domain.Axis, versions []domain.ToolkitVersion, live []domain.AxisScore, today time.Time) Chart {
	chart := Chart{Labels: make([]string, 0, len(axes)), Data: []ChartPoint{}}
	for _, a := range axes {
		chart.Labels = append(chart.Labels, a.Name)
	}

	for _, v := range versions {
		chart.Data = append(chart.Data, axisPoint(versionDate(v.Modified, today), v.Data))
	}
	if len(live) == toolkitAxes {
		chart.Data = append(chart.Data, axisPoint(today.Format(dateLayout), live))
	}
	return chart
}

func axisPoint(date string, scores []domain.AxisScore) ChartPoint {
	p := ChartPoint{Date: date, Values: make(map[string]float64, toolkitAxes)}
	for i := 0; i < toolkitAxes && i < len(scores); i++ {
		p.Values[series(i)] = scores[i].AxisScore / 100
	}
	return p
}

// DomainData charts the domain scores of every axis, one chart per axis.
func DomainData(axes []domain.Axis, domains []domain.AxisDomain, versions []domain.ToolkitVersion, live []domain.AxisScore, today time.Time) DomainChart {
	chart := DomainChart{Labels: make([]string, 0, len(axes)), Axes: make(map[string]Chart, len(axes))}
	for i, a := range axes {
		chart.Labels = append(chart.Labels, a.Name)

		c := Chart{Labels: []string{}, Data: []ChartPoint{}}
		for _, d := range domains {
			if d.Axis == a.ID {
				c.Labels = append(c.Labels, d.Name)
			}
		}
		for _, v := range versions {
			if i < len(v.Data) {
				c.Data = append(c.Data, domainPoint(versionDate(v.Modified, today), v.Data[i].Domains))
			}
		}
		if i < len(live) {
			c.Data = append(c.Data, domainPoint(today.Format(dateLayout), live[i].Domains))
		}
		chart.Axes[a.Name] = c
	}
	return chart
}

func domainPoint(date string, scores []domain.DomainScore) ChartPoint {
	p := ChartPoint{Date: date, Values: make(map[string]float64, len(scores))}
	for i, d := range scores {
		p.Values[series(i)] = d.DomainPercentage / 100
	}
	return p
}

// CoverageData charts coverage totals per version, followed by the current
// coverage of the project dated today. Versions are ordered by version
// number.
func CoverageData(versions []domain.CoverageVersion, current *domain.APIProject, today time.Time) Chart {
	ordered := append([]domain.CoverageVersion{}, versions...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	chart := Chart{Labels: []string{}, Data: []ChartPoint{}}
	for _, v := range ordered {
		chart.Data = append(chart.Data, coveragePoint(versionDate(v.Modified, today), v.Data))
	}

	if current != nil {
		data := append([]map[string]float64{}, current.Coverage...)
		data = append(data, current.NationalLevelDeployment)
		chart.Data = append(chart.Data, coveragePoint(today.Format(dateLayout), data))
	}
	return chart
}

func coveragePoint(date string, districts []map[string]float64) ChartPoint {
	p := ChartPoint{Date: date, Values: map[string]float64{}}
	for _, d := range districts {
		for i, key := range coverageSeries {
			if v, ok := d[key]; ok {
				p.Values[series(i)] += v
			}
		}
	}
	return p
}
