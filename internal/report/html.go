package report

import (
	"bytes"
	"fmt"
	"html/template"

	"mileagecal/internal/model"
)

var htmlTemplate = template.Must(template.New("mileage").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; font-size: 11px; margin: 24px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #999; padding: 3px 6px; text-align: left; }
td.num { text-align: right; }
tr.excluded td { color: #888; }
</style>
</head>
<body>
<h1>Mileage Summary</h1>
<p>{{.Start}} to {{.End}}</p>
<ul>
<li>Total Included Mileage: {{.Summary.TotalMiles}} miles</li>
<li>Excluded Mileage: {{.Summary.ExcludedMiles}} miles</li>
<li>Maximum One-Way Distance: {{.Threshold}} miles</li>
<li>Total Drive Events: {{len .Rows}}</li>
</ul>
<table>
<tr><th>Time</th><th>Meeting Title</th><th>Location</th><th>Round Trip Miles</th><th>One-Way Miles</th><th>Included In Total</th></tr>
{{- range .Rows}}
<tr{{if not .Included}} class="excluded"{{end}}><td>{{.Time}}</td><td>{{.Title}}</td><td>{{.Location}}</td><td class="num">{{.RoundTrip}}</td><td class="num">{{.OneWay}}</td><td>{{if .Included}}Yes{{else}}No{{end}}</td></tr>
{{- end}}
</table>
</body>
</html>
`))

type htmlRow struct {
	Time      string
	Title     string
	Location  string
	RoundTrip string
	OneWay    string
	Included  bool
}

// HTML renders the mileage table as a printable page.
func (e Emitter) HTML(r model.MileageReport) ([]byte, error) {
	drive := r.DriveEvents()
	rows := make([]htmlRow, 0, len(drive))
	for _, ev := range drive {
		rows = append(rows, htmlRow{
			Time:      e.FormatTime(ev.Start),
			Title:     ev.Summary,
			Location:  deref(ev.Location),
			RoundTrip: ev.Distance.RoundTripMiles.String(),
			OneWay:    ev.Distance.OneWayMiles.String(),
			Included:  ev.IncludeInTotal,
		})
	}

	data := struct {
		Title     string
		Start     string
		End       string
		Threshold string
		Summary   model.Summary
		Rows      []htmlRow
	}{
		Title:     BaseName(r.Summary),
		Start:     e.FormatTime(r.Summary.DateRange.Start()),
		End:       e.FormatTime(r.Summary.DateRange.End()),
		Threshold: FormatThreshold(r.Summary.MaxOneWayMiles),
		Summary:   r.Summary,
		Rows:      rows,
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("report: render html: %w", err)
	}
	return buf.Bytes(), nil
}
