package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/Z3nt0/ROVOCS-web-sub000/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"ppb": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
	"yesNo": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
	"rfc3339": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<title>breath-analyzer</title>
<meta http-equiv="refresh" content="5">
<style>
body { font-family: monospace; margin: 2em; }
table { border-collapse: collapse; }
td, th { border: 1px solid #999; padding: 4px 10px; text-align: left; }
.ok { color: #080; }
.bad { color: #b00; }
</style>
</head>
<body>
<h1>breath-analyzer</h1>
<p>uptime {{uptime .Uptime}} &mdash; broker
{{if .MQTTConnected}}<span class="ok">connected</span>{{else}}<span class="bad">disconnected</span>{{end}}
({{.Config.Broker}})</p>

<h2>sessions</h2>
{{if .Sessions}}
<table>
<tr><th>session</th><th>baseline TVOC</th><th>baseline eCO2</th><th>stable</th><th>event open</th><th>last reading</th></tr>
{{range .Sessions}}
<tr>
<td>{{.ID}}</td>
<td>{{ppb .BaselineTVOC}}</td>
<td>{{ppb .BaselineECO2}}</td>
<td>{{yesNo .Stable}}</td>
<td>{{yesNo .EventOpen}}</td>
<td>{{rfc3339 .LastReading}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>no active sessions</p>
{{end}}

<h2>totals</h2>
<table>
<tr><td>readings</td><td>{{.Counts.Readings}}</td></tr>
<tr><td>readings dropped</td><td>{{.Counts.ReadingsDropped}}</td></tr>
<tr><td>events opened</td><td>{{.Counts.EventsOpened}}</td></tr>
<tr><td>events closed</td><td>{{.Counts.EventsClosed}}</td></tr>
<tr><td>metrics</td><td>{{.Counts.Metrics}}</td></tr>
</table>

<p><a href="/index.json">status JSON</a> &mdash; live feed at <code>/live</code></p>
</body>
</html>
`))

func renderHTML(w io.Writer, snap status.Snapshot) {
	if err := indexTmpl.Execute(w, snap); err != nil {
		log.Printf("web: render status page: %v", err)
	}
}
