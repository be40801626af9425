package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"strings"

	"github.com/BarkinBalci/synthesis-engine/internal/domain"
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
<h2>{{.Title}}</h2>
<p>Period: {{.Period}} &middot; generated {{.GeneratedAt}}</p>
{{if .Narrative}}<p>{{.Narrative}}</p>{{end}}
{{if .Summary}}<h3>Summary</h3>
<table cellpadding="4">
{{range .Summary}}<tr><td>{{.Name}}</td><td><strong>{{.Value}}</strong></td></tr>
{{end}}</table>{{end}}
{{if .Recommendations}}<h3>Recommendations</h3>
<ul>
{{range .Recommendations}}<li><strong>[{{.Priority}}]</strong> {{.Message}}</li>
{{end}}</ul>{{end}}
</body>
</html>
`))

type summaryRow struct {
	Name  string
	Value string
}

type reportView struct {
	Title           string
	Period          string
	GeneratedAt     string
	Narrative       string
	Summary         []summaryRow
	Recommendations []domain.Recommendation
}

// RenderReportHTML renders the mail body for a report
func RenderReportHTML(report *domain.Report) (string, error) {
	view := reportView{
		Title:           fmt.Sprintf("%s report", report.ReportType),
		Period:          report.Period,
		GeneratedAt:     report.GeneratedAt.Format("2006-01-02 15:04 MST"),
		Recommendations: report.Recommendations,
	}

	if narrative, ok := report.Insights["narrative"].(string); ok {
		view.Narrative = narrative
	}

	keys := make([]string, 0, len(report.Summary))
	for k := range report.Summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if value, ok := formatValue(report.Summary[k]); ok {
			view.Summary = append(view.Summary, summaryRow{Name: strings.ReplaceAll(k, "_", " "), Value: value})
		}
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

// formatValue renders scalar summary values; nested sections are left to
// the JSON report.
func formatValue(v any) (string, bool) {
	switch value := v.(type) {
	case int:
		return strconv.Itoa(value), true
	case float64:
		return strconv.FormatFloat(value, 'f', 2, 64), true
	case string:
		return value, true
	case fmt.Stringer:
		return value.String(), true
	}
	return "", false
}
