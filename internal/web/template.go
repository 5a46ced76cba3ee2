package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/boilerd/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"modeClass": func(m fmt.Stringer) string {
		return "mode-" + strings.ToLower(m.String())
	},
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
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Boiler Controller</title>
<style>
body { font-family: monospace; max-width: 700px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.mode-normal { color: green; font-weight: bold; }
.mode-degraded { color: orange; font-weight: bold; }
.mode-rescue { color: orangered; font-weight: bold; }
.mode-emergency_stop { color: red; font-weight: bold; }
.mode-waiting, .mode-ready { color: #888; }
.open { color: green; }
.closed { color: #888; }
.fault { color: red; font-weight: bold; }
.ok { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Boiler Controller<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Mode</h2>
<table>
<tr><th>Current mode</th><td id="mode" class="{{modeClass .Mode}}">{{.Mode}}</td></tr>
<tr><th>Level</th><td>{{printf "%.1f" .Level}}</td></tr>
<tr><th>Steam</th><td>{{printf "%.1f" .Steam}}</td></tr>
<tr><th>Valve</th><td class="{{if .ValveOpen}}open{{else}}closed{{end}}">{{if .ValveOpen}}open{{else}}closed{{end}}</td></tr>
</table>

<h2>Pumps</h2>
<table>
<tr><th>#</th><th>Command</th><th>State</th><th>Controller</th><th>Fault</th></tr>
{{range $i, $cmd := .PumpCommand}}
<tr>
<td>{{$i}}</td>
<td class="{{if $cmd}}open{{else}}closed{{end}}">{{if $cmd}}open{{else}}closed{{end}}</td>
<td>{{if index $.PumpState $i}}open{{else}}closed{{end}}</td>
<td>{{if index $.PumpControlState $i}}open{{else}}closed{{end}}</td>
<td class="{{if eq (index $.Pumps $i).Kind "OK"}}ok{{else}}fault{{end}}">{{(index $.Pumps $i).Kind}}</td>
</tr>
{{end}}
</table>

<h2>Faults</h2>
<table>
<tr><th>Valve</th><td class="{{if eq .ValveFault.Kind "OK"}}ok{{else}}fault{{end}}">{{.ValveFault.Kind}}</td></tr>
<tr><th>Steam sensor</th><td class="{{if eq .SteamFault.Kind "OK"}}ok{{else}}fault{{end}}">{{.SteamFault.Kind}}</td></tr>
<tr><th>Level sensor</th><td class="{{if eq .LevelFault.Kind "OK"}}ok{{else}}fault{{end}}">{{.LevelFault.Kind}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick interval</th><td>{{.Config.TickSeconds}}s</td></tr>
<tr><th>Pumps</th><td>{{.Config.Pumps}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var modeEl = document.getElementById("mode");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss:" : "ws:";
    var ws = new WebSocket(proto + "//" + location.host + "/ws");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "disconnected");
      setTimeout(connect, 5000);
    };
    ws.onerror = function() { setDot("err", "error"); };
    ws.onmessage = function(ev) {
      try {
        var msg = JSON.parse(ev.data);
        if (msg.status && msg.status.mode && modeEl) {
          modeEl.textContent = msg.status.mode;
          modeEl.className = "mode-" + msg.status.mode.toLowerCase();
        }
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but the template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
