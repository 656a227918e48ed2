package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

type linkData struct {
	Name string
	Link string
}

var (
	resetText = texttemplate.Must(texttemplate.New("reset").Parse(
		"Hello {{.Name}},\n\nUse the link below to reset your password:\n{{.Link}}\n\nThis link expires in 15 minutes.\n"))
	resetHTML = htmltemplate.Must(htmltemplate.New("reset").Parse(
		`<p>Hello {{.Name}},</p><p><a href="{{.Link}}">Reset your password</a></p><p>This link expires in 15 minutes.</p>`))

	verifyText = texttemplate.Must(texttemplate.New("verify").Parse(
		"Hello {{.Name}},\n\nConfirm your email address by opening the link below:\n{{.Link}}\n"))
	verifyHTML = htmltemplate.Must(htmltemplate.New("verify").Parse(
		`<p>Hello {{.Name}},</p><p><a href="{{.Link}}">Confirm your email</a></p>`))
)

func PasswordResetMessage(from, to Address, link string) (*Message, error) {
	return render(from, to, "Password reset", resetText, resetHTML, linkData{Name: to.Name, Link: link})
}

func VerificationMessage(from, to Address, link string) (*Message, error) {
	return render(from, to, "Confirm your email", verifyText, verifyHTML, linkData{Name: to.Name, Link: link})
}

func render(from, to Address, subject string, txt *texttemplate.Template, html *htmltemplate.Template, data linkData) (*Message, error) {
	var tb, hb bytes.Buffer
	if err := txt.Execute(&tb, data); err != nil {
		return nil, fmt.Errorf("render %s text: %w", txt.Name(), err)
	}
	if err := html.Execute(&hb, data); err != nil {
		return nil, fmt.Errorf("render %s html: %w", html.Name(), err)
	}
	return &Message{
		From:    from,
		To:      []Address{to},
		Subject: subject,
		Text:    tb.String(),
		HTML:    hb.String(),
	}, nil
}
