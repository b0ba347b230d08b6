package templates

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"agri-dashboard/internal/crops"
	"agri-dashboard/internal/models"
	"agri-dashboard/internal/query"
)

const pageTemplates = `
{{define "form"}}<form class="filters" method="post" action="{{.Action}}">
{{- range .Fields}}<label>{{.Label}}<br><select name="{{.Param}}"><option value="">All</option>
{{- range .Options}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Value}}</option>{{end -}}
</select></label>{{end -}}
<button type="submit">Apply</button></form>
{{end}}

{{define "records"}}{{if not .}}{{template "empty" "No records found."}}{{else}}<table class="data-table">
<thead><tr><th>State</th><th>District</th><th>Block</th><th>Village</th><th>Year</th>{{range crops}}<th>{{.Display}}</th>{{end}}</tr></thead>
<tbody>
{{range $rec := .}}<tr><td>{{.State}}</td><td>{{.District}}</td><td>{{.Block}}</td><td>{{.Village}}</td><td>{{.Year}}</td>
{{- range $c := crops}}<td class="num">{{formatQuantity ($rec.Quantity $c.Key)}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
{{end}}{{end}}

{{define "totals"}}{{if not .}}{{template "empty" "No records match the selected filters."}}{{else}}<table class="data-table">
<thead><tr><th>Year</th>{{range crops}}<th>{{.Display}}</th>{{end}}<th>All crops</th></tr></thead>
<tbody>
{{range $y := .}}<tr><td>{{.Year}}</td>
{{- range $c := crops}}<td class="num">{{formatQuantity ($y.Total $c.Key)}}</td>{{end -}}
<td class="num"><strong>{{formatQuantity $y.GrandTotal}}</strong></td></tr>
{{end}}</tbody>
</table>
{{end}}{{end}}

{{define "ranking"}}<div id="ranking">{{if not .Ranking}}{{template "empty" "No villages recorded."}}{{else}}<table class="data-table">
<thead><tr><th>#</th><th>Village</th><th>{{.Crop.Display}}</th></tr></thead>
<tbody>
{{range $i, $v := .Ranking}}<tr><td>{{inc $i}}</td><td>{{.Village}}</td><td class="num">{{formatQuantity .Total}}</td></tr>
{{end}}</tbody>
</table>{{end}}</div>{{end}}

{{define "index"}}{{template "header" "Yield records"}}
{{- if .Message}}{{template "notice" .Message}}{{end}}
{{template "records" .Records}}
{{- template "footer"}}{{end}}

{{define "filter"}}{{template "header" "Filter records"}}
{{- template "form" .Form}}
{{- if .Submitted}}{{template "records" .Records}}{{end}}
{{- template "footer"}}{{end}}

{{define "aggregate"}}{{template "header" "Yearly totals"}}
{{- template "form" .Form}}
{{- template "totals" .Totals}}
{{- template "footer"}}{{end}}

{{define "top-villages"}}{{template "header" (printf "Top villages for %s" .Crop.Display)}}
<p><button data-on-click="@get('/sse/top_villages/{{.Crop.Key}}')">Refresh</button></p>
{{template "ranking" .}}
{{- template "footer"}}{{end}}

{{define "error"}}{{template "header" .Title}}
<div class="error-page"><p>{{.Message}}</p>
{{- if .RequestID}}<p class="request-id">Request ID: {{.RequestID}}</p>{{end}}
<p><a href="/">Back to records</a></p></div>
{{template "footer"}}{{end}}
`

var paramLabels = map[string]string{
	query.ParamDistrict: "District",
	query.ParamBlock:    "Block",
	query.ParamVillage:  "Village",
	query.ParamState:    "State",
}

// FilterForm is the dropdown form of a filterable view. Options is keyed by
// stored field name.
type FilterForm struct {
	Action  string
	Params  []string
	Filter  query.Filter
	Options models.FilterOptions
}

type formField struct {
	Param   string
	Label   string
	Options []formOption
}

type formOption struct {
	Value    string
	Selected bool
}

// Fields lists one dropdown per param, marking the option that matches the
// current filter case-insensitively.
func (f FilterForm) Fields() []formField {
	fields := make([]formField, 0, len(f.Params))
	for _, param := range f.Params {
		selected := f.Filter.Get(param)
		field := formField{Param: param, Label: paramLabels[param]}
		for _, opt := range f.Options[query.StoredField(param)] {
			field.Options = append(field.Options, formOption{
				Value:    opt,
				Selected: selected != "" && strings.EqualFold(opt, selected),
			})
		}
		fields = append(fields, field)
	}
	return fields
}

type rankingView struct {
	Crop    crops.Crop
	Ranking []models.VillageTotal
}

// RecordsTable lists raw yield records with one column per crop.
func RecordsTable(records []models.YieldRecord) templ.Component {
	return view("records", records)
}

// TotalsTable shows one row per year with each crop's total.
func TotalsTable(totals []models.YearlyTotals) templ.Component {
	return view("totals", totals)
}

// IndexPage lists the first records, preceded by a one-shot notice when
// one is pending.
func IndexPage(records []models.YieldRecord, message string) templ.Component {
	return view("index", struct {
		Message string
		Records []models.YieldRecord
	}{message, records})
}

// FilterPage shows the filter form and, once the form was submitted, the
// matching records.
func FilterPage(form FilterForm, records []models.YieldRecord, submitted bool) templ.Component {
	return view("filter", struct {
		Form      FilterForm
		Records   []models.YieldRecord
		Submitted bool
	}{form, records, submitted})
}

func AggregatePage(form FilterForm, totals []models.YearlyTotals) templ.Component {
	return view("aggregate", struct {
		Form   FilterForm
		Totals []models.YearlyTotals
	}{form, totals})
}

// RankingTable is the top villages table for one crop. Its element id is
// the target of the ranking SSE patch.
func RankingTable(c crops.Crop, ranking []models.VillageTotal) templ.Component {
	return view("ranking", rankingView{Crop: c, Ranking: ranking})
}

func TopVillagesPage(c crops.Crop, ranking []models.VillageTotal) templ.Component {
	return view("top-villages", rankingView{Crop: c, Ranking: ranking})
}

func ErrorPage(status int, message, requestID string) templ.Component {
	return view("error", struct {
		Title     string
		Message   string
		RequestID string
	}{strconv.Itoa(status) + " " + http.StatusText(status), message, requestID})
}
