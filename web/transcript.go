// Package web renders the chat room as an HTML page using the same
// element classes as the browser client.
package web

import (
	"html/template"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/stomp-chat/chat"
)

// Transcript is a chat.View that keeps the page state in memory.
type Transcript struct {
	mu         sync.RWMutex
	username   string
	chatShown  bool
	connecting string
	failed     bool
	online     bool
	entries    []chat.Entry
}

func NewTranscript() *Transcript {
	return &Transcript{connecting: "Connecting..."}
}

func (t *Transcript) ShowChat(username string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.username = username
	t.chatShown = true
}

func (t *Transcript) ConnectionEstablished() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connecting = ""
	t.failed = false
}

func (t *Transcript) ConnectionFailed(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connecting = text
	t.failed = true
}

func (t *Transcript) SetOnline(online bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.online = online
}

func (t *Transcript) Append(e chat.Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
}

type pageData struct {
	Name       string
	Username   string
	ChatShown  bool
	Connecting string
	Failed     bool
	Online     bool
	Entries    []entryData
}

// entryData fields are plain strings: the template escapes them, so the
// page shows exactly the text that was sent.
type entryData struct {
	Class     string
	System    bool
	Initial   string
	Color     string
	Sender    string
	Timestamp string
	Text      string
}

func (t *Transcript) snapshot(name string) pageData {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d := pageData{
		Name:       name,
		Username:   t.username,
		ChatShown:  t.chatShown,
		Connecting: t.connecting,
		Failed:     t.failed,
		Online:     t.online,
		Entries:    make([]entryData, 0, len(t.entries)),
	}
	for _, e := range t.entries {
		d.Entries = append(d.Entries, entryData{
			Class:     e.Kind.Class(),
			System:    e.Kind.System(),
			Initial:   e.Avatar.Initial,
			Color:     e.Avatar.Color,
			Sender:    e.Sender,
			Timestamp: e.Timestamp,
			Text:      e.Text,
		})
	}
	return d
}

// NewHandler builds the transcript HTTP router.
func NewHandler(name string, t *Transcript) http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pageTmpl.Execute(w, t.snapshot(name)); err != nil {
			log.Debug().Err(err).Msg("[web] render transcript")
		}
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}

var pageTmpl = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <meta http-equiv="refresh" content="5" />
  <title>{{if .Username}}Chat - {{.Username}}{{else}}{{.Name}}{{end}}</title>
  <style>
    :root{ --bg:#0d1117; --panel:#111827; --border:#1f2937; --fg:#e5e7eb; --text-light:#9ca3af; --success-color:#22c55e; --error-color:#ef4444 }
    body{ margin:0; padding:24px; background:var(--bg); color:var(--fg); font-family: ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Helvetica, Arial }
    .hidden{ display:none }
    .chat-page{ max-width:920px; margin:0 auto }
    .chat-header{ display:flex; align-items:center; gap:8px; margin-bottom:12px }
    .indicator{ width:10px; height:10px; border-radius:50% }
    .connecting{ color:var(--text-light) }
    .connecting.error{ color:var(--error-color) }
    .message-list{ list-style:none; padding:12px; margin:0; background:var(--panel); border:1px solid var(--border); border-radius:8px }
    .message{ display:flex; gap:10px; padding:6px 0 }
    .message-join,.message-leave{ justify-content:center; color:var(--text-light); font-style:italic }
    .message-outgoing{ flex-direction:row-reverse }
    .avatar{ width:32px; height:32px; border-radius:50%; display:flex; align-items:center; justify-content:center; color:#fff; font-weight:700 }
    .message-header{ display:flex; gap:8px; font-size:12px; color:var(--text-light) }
    .sender{ font-weight:600; color:var(--fg) }
  </style>
</head>
<body>
  <div class="user-form{{if .ChatShown}} hidden{{end}}">Waiting for a name...</div>
  <div class="chat-page{{if not .ChatShown}} hidden{{end}}">
    <div class="chat-header">
      <span class="user-name">{{.Username}}</span>
      <span class="indicator" style="background-color: {{if .Online}}var(--success-color){{else}}var(--text-light){{end}}"></span>
      <span class="status-text">{{if .Online}}Online{{else}}Offline{{end}}</span>
    </div>
    <div class="connecting{{if .Failed}} error{{end}}{{if not .Connecting}} hidden{{end}}">{{.Connecting}}</div>
    <ul class="message-list">
      {{- range .Entries}}
      {{- if .System}}
      <li class="message {{.Class}}">{{.Text}}</li>
      {{- else}}
      <li class="message {{.Class}}">
        <div class="avatar" style="background-color: {{.Color}}">{{.Initial}}</div>
        <div class="message-content">
          <div class="message-header"><span class="sender">{{.Sender}}</span><span class="timestamp">{{.Timestamp}}</span></div>
          <span class="message-text">{{.Text}}</span>
        </div>
      </li>
      {{- end}}
      {{- end}}
    </ul>
  </div>
  <script>const l=document.querySelector('.message-list'); window.scrollTo(0, document.body.scrollHeight); l.scrollTop=l.scrollHeight;</script>
</body>
</html>`))
