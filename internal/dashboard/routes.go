package dashboard

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	// defaultMessageLimit bounds message listings when no limit is given.
	defaultMessageLimit = 50
	// maxMessageLimit caps the limit query parameter.
	maxMessageLimit = 500
)

// NewRouter builds the dashboard's gin engine: one HTML status page, a JSON
// API, and an SSE feed. Every route is read-only.
func NewRouter(db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	tmpl := template.Must(template.New("index").
		Funcs(template.FuncMap{"timeago": TimeAgo}).
		Parse(indexHTML))
	router.SetHTMLTemplate(tmpl)

	router.GET("/", handleIndex(db))
	router.GET("/api/agents", handleAgents(db))
	router.GET("/api/messages", handleMessages(db))
	router.GET("/events", handleEvents(db))

	return router
}

func handleIndex(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		agents, err := AgentSummary(db)
		if err != nil {
			c.String(http.StatusInternalServerError, "agent summary: %v", err)
			return
		}
		messages, err := RecentMessages(db, defaultMessageLimit)
		if err != nil {
			c.String(http.StatusInternalServerError, "recent messages: %v", err)
			return
		}
		c.HTML(http.StatusOK, "index", gin.H{
			"Agents":   agents,
			"Messages": messages,
		})
	}
}

func handleAgents(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		agents, err := AgentSummary(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"agents": agents})
	}
}

func handleMessages(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultMessageLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}
		if limit > maxMessageLimit {
			limit = maxMessageLimit
		}

		messages, err := RecentMessages(db, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": messages})
	}
}

// indexHTML is the single status page. It server-renders the swarm picture
// and reloads itself when the event feed reports new mailbox traffic.
const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>switchyard</title>
<style>
body { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; margin: 2rem; background: #14161a; color: #d8dee4; }
h1 { font-size: 1.1rem; margin: 1.5rem 0 0.5rem; }
table { border-collapse: collapse; }
th, td { text-align: left; padding: 0.25rem 1.25rem 0.25rem 0; border-bottom: 1px solid #2a2e35; }
th { color: #8a919a; font-weight: normal; }
.status-working { color: #7bc96f; }
.status-online { color: #7bc96f; }
.status-idle { color: #9aa3ad; }
.status-error { color: #e5625e; }
.status-offline { color: #5c636b; }
.unread { color: #e3b341; }
</style>
</head>
<body>
<h1>switchyard</h1>
<table>
<tr><th>agent</th><th>role</th><th>status</th><th>unread</th><th>last seen</th></tr>
{{range .Agents}}<tr>
<td>{{.Name}}</td>
<td>{{.Role}}</td>
<td class="status-{{.Status}}">{{.Status}}</td>
<td{{if .Unread}} class="unread"{{end}}>{{.Unread}}</td>
<td>{{timeago .LastSeen}}</td>
</tr>
{{else}}<tr><td colspan="5">no agents registered</td></tr>
{{end}}</table>
<h1>recent messages</h1>
<table>
<tr><th>id</th><th>from</th><th>to</th><th>content</th><th>when</th></tr>
{{range .Messages}}<tr>
<td>{{.ID}}</td>
<td>{{.From}}</td>
<td>{{.To}}</td>
<td>{{printf "%.96s" .Content}}</td>
<td>{{timeago .Timestamp}}</td>
</tr>
{{else}}<tr><td colspan="5">no messages yet</td></tr>
{{end}}</table>
<script>
const feed = new EventSource("/events");
feed.addEventListener("message_created", () => location.reload());
</script>
</body>
</html>
`
