package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"agri-dashboard/internal/crops"
	"agri-dashboard/internal/models"
	"agri-dashboard/internal/query"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	if err := c.Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	return b.String()
}

func assertContains(t *testing.T, html string, want ...string) {
	t.Helper()
	for _, s := range want {
		if !strings.Contains(html, s) {
			t.Errorf("expected HTML to contain %q", s)
		}
	}
}

func TestFormatQuantity(t *testing.T) {
	tests := map[float64]string{
		0:         "0",
		30:        "30",
		1200.5:    "1200.5",
		0.1 + 0.2: "0.3",
		12.346:    "12.35",
		100:       "100",
		-4:        "-4",
	}
	for in, want := range tests {
		if got := formatQuantity(in); got != want {
			t.Errorf("formatQuantity(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestIndexPage(t *testing.T) {
	records := []models.YieldRecord{{
		State: "Gujarat", District: "Valsad", Block: "Dharampur", Village: "Bhensdhara",
		Year: 2020, Quantities: map[string]float64{"mango": 10},
	}}

	html := render(t, IndexPage(records, "Unknown crop"))

	assertContains(t, html,
		"<!DOCTYPE html>",
		"<title>Yield records · Agri Dashboard</title>",
		`<div class="notice" role="status">Unknown crop</div>`,
		"<td>Bhensdhara</td>",
		"<td>2020</td>",
		`<td class="num">10</td>`,
		"Mango (કેરી)",
		`href="/top_villages/neem"`,
		"datastar",
	)
}

func TestIndexPage_NoNotice(t *testing.T) {
	html := render(t, IndexPage(nil, ""))
	if strings.Contains(html, `class="notice"`) {
		t.Error("notice rendered without a message")
	}
	assertContains(t, html, "No records found.")
}

func TestRecordsTable_Escapes(t *testing.T) {
	html := render(t, RecordsTable([]models.YieldRecord{{Village: "<script>x</script>"}}))
	if strings.Contains(html, "<script>x</script>") {
		t.Error("village name was not escaped")
	}
	assertContains(t, html, "&lt;script&gt;")
}

func TestFilterPage(t *testing.T) {
	form := FilterForm{
		Action: "/filter",
		Params: []string{query.ParamDistrict, query.ParamBlock, query.ParamVillage},
		Filter: query.Filter{District: "valsad"},
		Options: models.FilterOptions{
			models.FieldDistrict: {"Dang", "Valsad"},
			models.FieldBlock:    {"Dharampur"},
		},
	}

	html := render(t, FilterPage(form, nil, false))
	assertContains(t, html,
		`<form class="filters" method="post" action="/filter">`,
		`<select name="district">`,
		`<option value="Valsad" selected>Valsad</option>`,
		`<option value="Dang">Dang</option>`,
		`<select name="village"><option value="">All</option></select>`,
	)
	if strings.Contains(html, "No records found.") {
		t.Error("results rendered before the form was submitted")
	}

	html = render(t, FilterPage(form, nil, true))
	assertContains(t, html, "No records found.")
}

func TestAggregatePage(t *testing.T) {
	form := FilterForm{Action: "/aggregate", Params: []string{query.ParamState}}
	totals := []models.YearlyTotals{
		{Year: 2020, Totals: map[string]float64{"mango": 30, "neem": 2}},
		{Year: 2021, Totals: map[string]float64{"mango": 7}},
	}

	html := render(t, AggregatePage(form, totals))
	assertContains(t, html,
		`<select name="state">`,
		"<td>2020</td>",
		`<td class="num">30</td>`,
		`<td class="num"><strong>32</strong></td>`,
		"<td>2021</td>",
	)
	if strings.Index(html, "<td>2020</td>") > strings.Index(html, "<td>2021</td>") {
		t.Error("years should be rendered in ascending order")
	}

	html = render(t, AggregatePage(form, nil))
	assertContains(t, html, "No records match the selected filters.")
}

func TestAnalysisPage(t *testing.T) {
	form := FilterForm{
		Action: "/analysis",
		Params: []string{query.ParamDistrict, query.ParamBlock},
		Filter: query.Filter{District: "Valsad"},
	}
	totals := []models.YearlyTotals{{Year: 2020, Totals: map[string]float64{"mango": 30}}}
	summary := models.ChartSummary{
		Years:       []int{2020},
		GrandTotals: []float64{30},
		Series:      []models.CropSeries{{Key: "mango", Display: "Mango (કેરી)", Values: []float64{30}, Overall: 30}},
	}

	html := render(t, AnalysisPage(form, totals, summary))
	assertContains(t, html,
		`<canvas id="yearly-chart">`,
		`<canvas id="crop-chart">`,
		`id="chart-data"`,
		`"grand_totals":[30]`,
		`@get('/sse/analysis?district=Valsad')`,
		`<div id="analysis-table">`,
		"chart.umd.min.js",
	)
}

func TestAnalysisPage_Empty(t *testing.T) {
	form := FilterForm{Action: "/analysis", Params: []string{query.ParamDistrict}}

	html := render(t, AnalysisPage(form, nil, models.ChartSummary{}))
	assertContains(t, html, "No records match the selected filters.")
	if strings.Contains(html, "<canvas") {
		t.Error("charts rendered for an empty result")
	}
}

func TestTopVillagesPage(t *testing.T) {
	c, err := crops.Lookup("lemon")
	if err != nil {
		t.Fatal(err)
	}
	ranking := []models.VillageTotal{
		{Village: "Kakadkuva", Total: 22},
		{Village: "Bhensdhara", Total: 15.5},
	}

	html := render(t, TopVillagesPage(c, ranking))
	assertContains(t, html,
		"Top villages for Lemon (લીંબુ)",
		`<div id="ranking">`,
		"<td>1</td><td>Kakadkuva</td>",
		"<td>2</td><td>Bhensdhara</td>",
		`<td class="num">15.5</td>`,
		`@get('/sse/top_villages/lemon')`,
	)
}

func TestRankingTable_Empty(t *testing.T) {
	c, _ := crops.Lookup("neem")
	html := render(t, RankingTable(c, nil))
	assertContains(t, html, `<div id="ranking">`, "No villages recorded.")
}

func TestErrorPage(t *testing.T) {
	html := render(t, ErrorPage(500, "Could not load records", "req-1"))
	assertContains(t, html,
		"500 Internal Server Error",
		"Could not load records",
		"Request ID: req-1",
		`<a href="/">Back to records</a>`,
	)
}

func TestFilterForm_EscapesOptionValues(t *testing.T) {
	form := FilterForm{
		Action:  "/filter",
		Params:  []string{query.ParamVillage},
		Options: models.FilterOptions{models.FieldVillage: {`"><script>x</script>`}},
	}

	html := render(t, FilterPage(form, nil, false))
	if strings.Contains(html, `"><script>`) {
		t.Error("option value broke out of its attribute")
	}
	assertContains(t, html, `value="&#34;&gt;&lt;script&gt;x&lt;/script&gt;"`)
}

func TestAnalysisPage_ChartDataStaysInScript(t *testing.T) {
	form := FilterForm{Action: "/analysis", Params: []string{query.ParamDistrict}}
	totals := []models.YearlyTotals{{Year: 2020, Totals: map[string]float64{"mango": 1}}}
	summary := models.ChartSummary{
		Years:       []int{2020},
		GrandTotals: []float64{1},
		Series:      []models.CropSeries{{Key: "mango", Display: "</script><b>x</b>", Values: []float64{1}, Overall: 1}},
	}

	html := render(t, AnalysisPage(form, totals, summary))
	if strings.Contains(html, "</script><b>") {
		t.Error("chart data closed its script element")
	}
	assertContains(t, html, `@get('/sse/analysis')`)
}

func TestTopVillagesPage_EscapesVillage(t *testing.T) {
	c, _ := crops.Lookup("mango")
	html := render(t, RankingTable(c, []models.VillageTotal{{Village: "<b>Ahwa</b>", Total: 1}}))
	if strings.Contains(html, "<b>Ahwa</b>") {
		t.Error("village name was not escaped")
	}
	assertContains(t, html, "&lt;b&gt;Ahwa&lt;/b&gt;")
}
