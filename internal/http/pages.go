package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/sanctum-auth/internal/auth"
	"github.com/mrlokans/sanctum-auth/internal/entities"
	"github.com/mrlokans/sanctum-auth/internal/sanctum"
)

// PagesController renders the server-side pages sitting behind the guards.
type PagesController struct {
	client *sanctum.Client
}

func NewPagesController(client *sanctum.Client) *PagesController {
	return &PagesController{client: client}
}

// Home is public. It shows whoever the session last knew about without asking
// the backend.
func (p *PagesController) Home(c *gin.Context) {
	state := p.client.State(c.Request.Context())
	var user entities.User
	if state.LoggedIn {
		user = state.User
	}
	p.render(c, "home.html", user, nil)
}

func (p *PagesController) Account(c *gin.Context) {
	p.render(c, "account.html", auth.GetUser(c), nil)
}

func (p *PagesController) Verify(c *gin.Context) {
	p.render(c, "verify.html", auth.GetUser(c), nil)
}

func (p *PagesController) Login(c *gin.Context) {
	p.render(c, "login.html", nil, gin.H{
		"Next": auth.SanitizeRedirectPath(c.Query("next"), p.client.Config().Redirects.Home),
	})
}

// render answers JSON callers with the user and everyone else with the named
// template.
func (p *PagesController) render(c *gin.Context, name string, user entities.User, extra gin.H) {
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"user": user})
		return
	}

	data := gin.H{
		"User":      user,
		"Name":      user.String("name"),
		"Email":     user.String("email"),
		"Verified":  user.IsVerified(),
		"CSRFField": auth.CSRFTokenField(c),
		"Error":     c.Query("error"),
		"Status":    c.Query("status"),
		"Redirects": p.client.Config().Redirects,
	}
	for k, v := range extra {
		data[k] = v
	}
	c.HTML(http.StatusOK, name, data)
}

const pageTemplates = `
{{define "header"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.}}</title></head>
<body>
{{end}}

{{define "messages"}}{{if .Error}}<p class="error">{{.Error}}</p>{{end}}{{if .Status}}<p class="status">{{.Status}}</p>{{end}}{{end}}

{{define "logout"}}<form method="post" action="/auth/logout">{{.CSRFField}}<button type="submit">Sign out</button></form>{{end}}

{{define "home.html"}}{{template "header" "Home"}}
{{template "messages" .}}
{{if .User}}<p>Signed in as {{.Name}} ({{.Email}})</p><a href="/account">Account</a>{{template "logout" .}}
{{else}}<a href="{{.Redirects.Login}}">Sign in</a>{{end}}
</body></html>
{{end}}

{{define "account.html"}}{{template "header" "Account"}}
{{template "messages" .}}
<h1>{{.Name}}</h1>
<p>{{.Email}}{{if not .Verified}} (not verified, <a href="{{.Redirects.Verify}}">verify</a>){{end}}</p>
{{template "logout" .}}
</body></html>
{{end}}

{{define "verify.html"}}{{template "header" "Verify your email"}}
{{template "messages" .}}
<p>We sent a verification link to {{.Email}}.</p>
<form method="post" action="/auth/resend-verification">
{{.CSRFField}}
<input type="hidden" name="next" value="{{.Redirects.Verify}}">
<button type="submit">Send it again</button>
</form>
{{template "logout" .}}
</body></html>
{{end}}

{{define "login.html"}}{{template "header" "Sign in"}}
{{template "messages" .}}
<form method="post" action="/auth/login">
{{.CSRFField}}
<input type="hidden" name="next" value="{{.Next}}">
<label>Email <input type="email" name="email" required></label>
<label>Password <input type="password" name="password" required></label>
<label><input type="checkbox" name="remember" value="1"> Remember me</label>
<button type="submit">Sign in</button>
</form>
</body></html>
{{end}}
`
