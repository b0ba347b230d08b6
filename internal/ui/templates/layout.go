package templates

import (
	"context"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"agri-dashboard/internal/crops"
)

const layoutTemplates = `
{{define "header"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.}} · Agri Dashboard</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f6f8f5;color:#1d2a1f}
nav{display:flex;flex-wrap:wrap;gap:1rem;align-items:center;padding:.75rem 1.5rem;background:#2f5d34}
nav a{color:#fff;text-decoration:none}
nav .crops{display:flex;gap:.5rem;font-size:.85rem}
main{padding:1.5rem}
table.data-table{border-collapse:collapse;width:100%;background:#fff}
table.data-table th,table.data-table td{border:1px solid #d5ddd3;padding:.4rem .6rem;text-align:left}
table.data-table td.num{text-align:right}
.notice{padding:.75rem 1rem;background:#fff4d6;border:1px solid #e8c766;margin-bottom:1rem}
.empty{color:#6b776c;font-style:italic}
form.filters{display:flex;gap:1rem;align-items:end;margin-bottom:1rem}
.charts{display:grid;grid-template-columns:repeat(auto-fit,minmax(420px,1fr));gap:1.5rem}
</style>
</head>
<body>
<nav><a href="/">Records</a><a href="/filter">Filter</a><a href="/aggregate">Yearly totals</a><a href="/analysis">Analysis</a>
<span class="crops">Top villages:{{range crops}} <a href="/top_villages/{{.Key}}">{{.Name}}</a>{{end}}</span></nav>
<main>
<h1>{{.}}</h1>
{{end}}

{{define "footer"}}</main>
</body>
</html>
{{end}}

{{define "notice"}}<div class="notice" role="status">{{.}}</div>{{end}}

{{define "empty"}}<p class="empty">{{.}}</p>{{end}}
`

// views holds every page and fragment. Pages open with "header" and close
// with "footer" so the shell is escaped in the same pass as the content.
var views = template.Must(template.New("views").Funcs(template.FuncMap{
	"crops":          crops.All,
	"formatQuantity": formatQuantity,
	"inc":            func(i int) int { return i + 1 },
}).Parse(layoutTemplates + pageTemplates + analysisTemplates))

// view adapts a named template to the component interface the handlers
// render through.
func view(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return views.ExecuteTemplate(w, name, data)
	})
}

// formatQuantity renders a quantity with at most two decimals and no
// trailing zeros.
func formatQuantity(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
