package mailer

import (
	"fmt"
	"html/template"
	"strings"
)

// CategorySummary is the slice of category data shown in the link digest.
type CategorySummary struct {
	Name     string
	Slug     string
	ImageURL string
}

// ActivationEmail builds the registration confirmation message. The embedded
// link points at the frontend, which posts the token back to the API.
func ActivationEmail(clientURL, to, signedToken, replyTo string) Message {
	return Message{
		To:      to,
		ReplyTo: replyTo,
		Subject: "Complete your registration",
		HTML: fmt.Sprintf(`<html>
<h1>Verify your email address</h1>
<p>Please use the following link to complete your registration:</p>
<p>%s/auth/activate/%s</p>
</html>`, clientURL, signedToken),
	}
}

// PasswordResetEmail builds the reset-link message.
func PasswordResetEmail(clientURL, to, signedToken, replyTo string) Message {
	return Message{
		To:      to,
		ReplyTo: replyTo,
		Subject: "Password reset link",
		HTML: fmt.Sprintf(`<html>
<h1>Reset password link</h1>
<p>Please use the following link to reset your password:</p>
<p>%s/auth/password/reset/%s</p>
</html>`, clientURL, signedToken),
	}
}

var linkPublishedTmpl = template.Must(template.New("link_published").Parse(`<html>
<h1>New link published</h1>
<p>A new link titled <b>{{.Title}}</b> has just been published in the following categories.</p>
{{range .Categories}}<div>
<h2>{{.Name}}</h2>
{{if .ImageURL}}<img src="{{.ImageURL}}" alt="{{.Name}}" style="height:50px;" />{{end}}
<h3><a href="{{$.ClientURL}}/links/{{.Slug}}">Check it out!</a></h3>
</div>
{{end}}<br/>
<a href="{{.ClientURL}}/user/profile/update">Unsubscribe</a>
</html>`))

// LinkPublishedEmail builds the subscriber digest sent when a link lands in a
// category the recipient follows.
func LinkPublishedEmail(clientURL, to, linkTitle, replyTo string, categories []CategorySummary) (Message, error) {
	var b strings.Builder
	err := linkPublishedTmpl.Execute(&b, struct {
		Title      string
		ClientURL  string
		Categories []CategorySummary
	}{Title: linkTitle, ClientURL: clientURL, Categories: categories})
	if err != nil {
		return Message{}, fmt.Errorf("mailer: render link digest: %w", err)
	}
	return Message{
		To:      to,
		ReplyTo: replyTo,
		Subject: "New link published",
		HTML:    b.String(),
	}, nil
}
