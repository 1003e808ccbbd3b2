package email

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

// StatusEmail holds the values rendered into a certificate status email.
type StatusEmail struct {
	AppName         string
	CertificateName string
	Status          string
	ViewURL         string
}

// CertificateViewURL builds the public view link <base>/view/<shareToken>.
func CertificateViewURL(baseURL, shareToken string) string {
	return strings.TrimRight(baseURL, "/") + "/view/" + url.PathEscape(shareToken)
}

// StatusEmailSubject returns the subject line for a status change email.
func StatusEmailSubject(certificateName string) string {
	return fmt.Sprintf(`Certificate Status Update: "%s"`, certificateName)
}

// StatusEmailText returns the plain-text body for a status change email.
func StatusEmailText(data StatusEmail) string {
	return fmt.Sprintf(`Hello,

Your certificate "%s" has been %s.

You can view it here: %s

Best regards,
%s Team`, data.CertificateName, data.Status, data.ViewURL, data.AppName)
}

// StatusEmailHTML returns the HTML body for a status change email.
func StatusEmailHTML(data StatusEmail) string {
	name := html.EscapeString(data.CertificateName)
	status := html.EscapeString(data.Status)
	link := html.EscapeString(data.ViewURL)
	appName := html.EscapeString(data.AppName)

	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">Certificate Status Update</h2>
  <p>Hello,</p>
  <p>Your certificate <strong>"%s"</strong> has been <strong>%s</strong>.</p>
  <p>You can view your certificate by clicking the link below:</p>
  <a href="%s" style="background-color: #007bff; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; display: inline-block;">View Certificate</a>
  <p style="margin-top: 20px;">Best regards,<br>%s Team</p>
</div>`, name, status, link, appName)
}

// NewStatusMessage builds the complete message for a status change email.
func NewStatusMessage(to string, data StatusEmail) Message {
	return Message{
		To:       to,
		Subject:  StatusEmailSubject(data.CertificateName),
		TextBody: StatusEmailText(data),
		HTMLBody: StatusEmailHTML(data),
	}
}
