package domain

// EmailTemplate names one of the rendered email kinds.
type EmailTemplate string

const (
	TemplateConfirmSignup EmailTemplate = "confirm_signup"
	TemplateActivation    EmailTemplate = "activation"
	TemplateResetPassword EmailTemplate = "reset_password"
	TemplateTest          EmailTemplate = "test_email"
)

// EmailJob is everything needed to render and send one email. It is the
// payload carried between the API and the mailer worker, so it never holds
// rendered HTML.
type EmailJob struct {
	Template EmailTemplate `json:"template"`
	To       string        `json:"to"`
	Username string        `json:"username,omitempty"`
	Token    string        `json:"token,omitempty"`
}
