package templates

import (
	"github.com/a-h/templ"

	"agri-dashboard/internal/models"
)

const analysisTemplates = `
{{define "analysis-table"}}<div id="analysis-table">{{template "totals" .}}</div>{{end}}

{{define "analysis"}}{{template "header" "Analysis"}}
{{- template "form" .Form}}
{{- if not .Totals}}{{template "notice" "No records match the selected filters."}}{{else}}
<div data-signals="{summary: null}" data-effect="$summary &amp;&amp; window.renderCharts($summary)">
<p><button data-on-click="@get('/sse/analysis{{.Query}}')">Refresh</button></p>
<div class="charts">
<figure><figcaption>Total yield per year</figcaption><canvas id="yearly-chart"></canvas></figure>
<figure><figcaption>Total yield per crop</figcaption><canvas id="crop-chart"></canvas></figure>
</div>
</div>
{{template "analysis-table" .Totals}}
<script id="chart-data" type="application/json">{{.Summary}}</script>
<script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"></script>
<script>
window.renderCharts = function (summary) {
  if (!summary || !window.Chart) { return; }
  const draw = function (id, config) {
    const canvas = document.getElementById(id);
    const existing = Chart.getChart(canvas);
    if (existing) { existing.destroy(); }
    new Chart(canvas, config);
  };
  draw("yearly-chart", {
    type: "line",
    data: {
      labels: summary.years,
      datasets: [{label: "All crops", data: summary.grand_totals, borderColor: "#2f5d34", tension: 0.2}]
    }
  });
  draw("crop-chart", {
    type: "bar",
    data: {
      labels: summary.series.map(function (s) { return s.display; }),
      datasets: [{label: "Total across years", data: summary.series.map(function (s) { return s.overall; }), backgroundColor: "#7aa874"}]
    }
  });
};
document.addEventListener("DOMContentLoaded", function () {
  const data = document.getElementById("chart-data");
  if (data) { window.renderCharts(JSON.parse(data.textContent)); }
});
</script>
{{end}}
{{- template "footer"}}{{end}}
`

// AnalysisTable wraps the yearly totals in the element patched by the
// analysis SSE endpoint.
func AnalysisTable(totals []models.YearlyTotals) templ.Component {
	return view("analysis-table", totals)
}

// AnalysisPage charts the grand total per year and each crop's overall
// sum. With no matching records it shows a notice instead of empty charts.
// The summary is embedded as JSON for the first paint.
func AnalysisPage(form FilterForm, totals []models.YearlyTotals, summary models.ChartSummary) templ.Component {
	var q string
	if enc := form.Filter.Values().Encode(); enc != "" {
		q = "?" + enc
	}
	return view("analysis", struct {
		Form    FilterForm
		Totals  []models.YearlyTotals
		Summary models.ChartSummary
		Query   string
	}{form, totals, summary, q})
}
