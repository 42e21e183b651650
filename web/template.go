package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"ringer/audio"
	"ringer/status"
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
	"clock": func(t time.Time) string {
		return t.Local().Format("15:04:05")
	},
	"ringAt": func(t time.Time, offset int) string {
		return t.Add(-time.Duration(offset) * time.Second).Local().Format("15:04:05")
	},
	"describe": audio.Describe,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Ringer</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ringing { background: #c00; color: #fff; padding: 1em; font-weight: bold; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
button { font-family: monospace; font-size: 1.2em; padding: 0.5em 1.5em; }
</style>
</head>
<body>
<h1>Ringer</h1>

<div id="state">
{{if .Ring.Ringing}}<p class="ringing">RINGING{{with .Ring.Current}}: {{.Asset}} {{.Direction}} at {{clock .Time}}{{end}}</p>
{{else}}<p class="idle">idle{{if not .Ring.Monitoring}} (no signals){{end}}</p>{{end}}
</div>
<button id="ring-off">Ring off</button>

<h2>Settings</h2>
<table>
<tr><th>Offset</th><td>{{.Ring.Offset}}s</td></tr>
<tr><th>Ringtone</th><td>{{describe .Ring.Ringtone}}</td></tr>
<tr><th>Wake lock</th><td>{{if .Ring.WakeLock}}held{{else}}released{{end}}</td></tr>
</table>

<h2>Upcoming</h2>
<table>
{{range .Upcoming}}<tr><th>{{ringAt .Time $.Ring.Offset}}</th><td>{{.Asset}} {{.Direction}}</td></tr>
{{else}}<tr><td class="idle">none</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Fired</th><td>{{.Counts.Fires}}</td></tr>
<tr><th>Suppressed ticks</th><td>{{.Counts.Suppressed}}</td></tr>
<tr><th>Ring-offs</th><td>{{.Counts.RingOffs}}</td></tr>
<tr><th>Fallback tones</th><td>{{.Counts.Fallbacks}}</td></tr>
<tr><th>Silent failures</th><td>{{.Counts.Failures}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .Config.Broker}}{{if .MQTTConnected}}connected{{else}}disconnected{{end}} ({{.Config.Broker}}){{else}}disabled{{end}}</td></tr>
</table>

<p><a href="/status.json">JSON</a> · <a href="/metrics">metrics</a></p>
<script>
(function() {
  document.getElementById("ring-off").onclick = function() {
    fetch("/ring-off", { method: "POST" });
  };
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws?types=fired,ring_off");
  ws.onmessage = function() { location.reload(); };
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
