package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/utafrali/identity/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// RendererConfig holds the values shared by every rendered email.
type RendererConfig struct {
	ProjectName  string
	FrontendHost string
	TokenTTL     time.Duration
}

// Renderer turns email jobs into subject lines and HTML bodies.
type Renderer struct {
	cfg       RendererConfig
	templates map[domain.EmailTemplate]*template.Template
}

type templateData struct {
	ProjectName string
	Subject     string
	Username    string
	Email       string
	Link        string
	ValidHours  int
}

var templateNames = []domain.EmailTemplate{
	domain.TemplateConfirmSignup,
	domain.TemplateActivation,
	domain.TemplateResetPassword,
	domain.TemplateTest,
}

// NewRenderer parses the embedded templates once.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	funcs := template.FuncMap{
		"button": func(link, label string) map[string]string {
			return map[string]string{"Link": link, "Label": label}
		},
	}

	r := &Renderer{cfg: cfg, templates: make(map[domain.EmailTemplate]*template.Template, len(templateNames))}
	for _, name := range templateNames {
		file := string(name) + ".html"
		t, err := template.New(file).Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/"+file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Render builds the message for job.
func (r *Renderer) Render(job domain.EmailJob) (Message, error) {
	t, ok := r.templates[job.Template]
	if !ok {
		return Message{}, fmt.Errorf("unknown email template %q", job.Template)
	}

	data := templateData{
		ProjectName: r.cfg.ProjectName,
		Username:    job.Username,
		Email:       job.To,
		ValidHours:  int(r.cfg.TokenTTL.Hours()),
	}
	if data.Username == "" {
		data.Username = job.To
	}

	switch job.Template {
	case domain.TemplateConfirmSignup:
		data.Subject = r.cfg.ProjectName + " - Confirm your signup"
		data.Link = r.link("activate", job.Token)
	case domain.TemplateActivation:
		data.Subject = r.cfg.ProjectName + " - Activate your account"
		data.Link = r.link("activate", job.Token)
	case domain.TemplateResetPassword:
		data.Subject = r.cfg.ProjectName + " - Password recovery for user " + job.To
		data.Link = r.link("reset-password", job.Token)
	case domain.TemplateTest:
		data.Subject = r.cfg.ProjectName + " - Test email"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, string(job.Template)+".html", data); err != nil {
		return Message{}, fmt.Errorf("render template %s: %w", job.Template, err)
	}

	return Message{
		Template: job.Template,
		To:       job.To,
		Subject:  data.Subject,
		HTML:     buf.String(),
	}, nil
}

func (r *Renderer) link(path, token string) string {
	return strings.TrimRight(r.cfg.FrontendHost, "/") + "/" + path + "?token=" + url.QueryEscape(token)
}
