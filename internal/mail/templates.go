package mail

import (
	"bytes"
	"errors"
	htmltemplate "html/template"
	"net/url"
	texttemplate "text/template"
)

// Invitation carries what the workspace invitation mail shows.
type Invitation struct {
	InviteeEmail  string
	WorkspaceName string
	InviterName   string
	Token         string
}

type invitationView struct {
	WorkspaceName string
	InviterName   string
	Link          string
}

var invitationHTML = htmltemplate.Must(htmltemplate.New("invitation.html").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8" /><title>{{.WorkspaceName}}</title></head>
<body style="margin: 0; padding: 0; font-family: sans-serif; background-color: #f7f9fc;">
	<table align="center" border="0" cellpadding="0" cellspacing="0" width="600" style="border-collapse: collapse; background-color: #ffffff;">
		<tr>
			<td style="padding: 40px 30px; color: #333333; font-size: 16px; line-height: 1.6;">
				<p><strong>{{.InviterName}}</strong> invited you to join <strong>{{.WorkspaceName}}</strong> on Nowlisten.</p>
				<p style="text-align: center; padding: 20px 0;">
					<a href="{{.Link}}" target="_blank" style="display: inline-block; background-color: #5271ff; color: #ffffff; font-weight: bold; text-decoration: none; padding: 12px 30px; border-radius: 4px;">Join workspace</a>
				</p>
				<p style="font-size: 13px; color: #666666;">If you were not expecting this invitation, you can ignore this email.</p>
			</td>
		</tr>
	</table>
</body>
</html>
`))

var invitationText = texttemplate.Must(texttemplate.New("invitation.txt").Parse(`{{.InviterName}} invited you to join {{.WorkspaceName}} on Nowlisten.

Open the link below to accept:

{{.Link}}

If you were not expecting this invitation, you can ignore this email.
`))

// InvitationLink builds the public accept link for token.
func InvitationLink(domain, token string) string {
	u := url.URL{Scheme: "https", Host: domain, Path: "/invite/" + token}
	return u.String()
}

// InvitationMessage renders the workspace invitation mail.
func InvitationMessage(domain string, inv Invitation) (Message, error) {
	if inv.InviteeEmail == "" || inv.Token == "" {
		return Message{}, errors.New("mail: invitation requires invitee and token")
	}
	view := invitationView{
		WorkspaceName: inv.WorkspaceName,
		InviterName:   inv.InviterName,
		Link:          InvitationLink(domain, inv.Token),
	}
	var html, text bytes.Buffer
	if err := invitationHTML.Execute(&html, view); err != nil {
		return Message{}, err
	}
	if err := invitationText.Execute(&text, view); err != nil {
		return Message{}, err
	}
	return Message{
		To:      inv.InviteeEmail,
		Subject: inv.InviterName + " invited you to " + inv.WorkspaceName + " on Nowlisten",
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
