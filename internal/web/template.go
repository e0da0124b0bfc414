package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/actuator-node/internal/status"
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
	"onoff": status.OnOff,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Actuator Node</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.moving { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Actuator Node <small>{{.Config.BaseTopic}}</small></h1>
{{with .Window}}
<h2>Window</h2>
<table>
<tr><th>Position</th><td id="window-position">{{.Position}} / {{.Steps}}</td></tr>
<tr><th>Motion</th><td class="{{if .Moving}}moving{{else}}off{{end}}">{{if .Moving}}moving to {{.Target}}{{else}}idle{{end}}</td></tr>
<tr><th>Transitions</th><td>{{.Transitions}}</td></tr>
<tr><th>Close extensions</th><td>{{.Extensions}}</td></tr>
<tr><th>Rejected commands</th><td>{{.Rejected}}</td></tr>
</table>
{{end}}{{with .Door}}
<h2>Door</h2>
<table>
<tr><th>Strike</th><td id="door-state" class="{{onoff .Energized}}">{{onoff .Energized}}</td></tr>
<tr><th>Pulses</th><td>{{.Pulses}}</td></tr>
</table>
{{end}}{{with .Gate}}
<h2>Gate</h2>
<table>
<tr><th>Occupancy</th><td id="gate-state" class="{{onoff .Occupied}}">{{onoff .Occupied}}{{if .Pending}} (pending){{end}}</td></tr>
<tr><th>Changes</th><td>{{.Changes}}</td></tr>
<tr><th>Cancelled</th><td>{{.Cancelled}}</td></tr>
</table>
{{end}}
<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Client</th><td>{{.Config.ClientID}}</td></tr>
<tr><th>Notifications</th><td>{{.Notifications}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Loop</th><td>{{.Config.LoopMs}}ms</td></tr>
<tr><th>Ping</th><td>{{if eq .Config.PingMs 0}}disabled{{else}}{{.Config.PingMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
