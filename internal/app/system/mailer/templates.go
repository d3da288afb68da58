// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// FamilyInviteData holds data for the "you were added to a family" email.
type FamilyInviteData struct {
	SiteName    string
	FamilyName  string
	InviterName string
	InviteeName string
	Link        string // may be empty when no base URL is configured
}

// BuildFamilyInviteEmail creates the invite notification with text and HTML
// bodies. The caller sets To.
func BuildFamilyInviteEmail(data FamilyInviteData) Email {
	return Email{
		Subject:  fmt.Sprintf("%s added you to %s on %s", data.InviterName, data.FamilyName, data.SiteName),
		TextBody: buildFamilyInviteText(data),
		HTMLBody: buildFamilyInviteHTML(data),
	}
}

// FamilyInvite builds the invite email using the mailer's site settings.
func (m *Mailer) FamilyInvite(to, inviteeName, inviterName, familyName string) Email {
	site := "RecipeHub"
	link := ""
	if m != nil {
		if m.cfg.SiteName != "" {
			site = m.cfg.SiteName
		}
		if m.cfg.BaseURL != "" {
			link = strings.TrimRight(m.cfg.BaseURL, "/") + "/family"
		}
	}
	e := BuildFamilyInviteEmail(FamilyInviteData{
		SiteName:    site,
		FamilyName:  familyName,
		InviterName: inviterName,
		InviteeName: inviteeName,
		Link:        link,
	})
	e.To = to
	return e
}

func buildFamilyInviteText(data FamilyInviteData) string {
	var buf bytes.Buffer
	if data.InviteeName != "" {
		fmt.Fprintf(&buf, "Hi %s,\n\n", data.InviteeName)
	}
	fmt.Fprintf(&buf, "%s added you to the family group \"%s\" on %s.\n\n", data.InviterName, data.FamilyName, data.SiteName)
	buf.WriteString("You can now see the recipes, pantry and shopping lists your family shares.\n")
	if data.Link != "" {
		buf.WriteString("\nOpen your family page:\n" + data.Link + "\n")
	}
	return buf.String()
}

var familyInviteTmpl = template.Must(template.New("family_invite").Parse(familyInviteHTMLTemplate))

func buildFamilyInviteHTML(data FamilyInviteData) string {
	var buf bytes.Buffer
	_ = familyInviteTmpl.Execute(&buf, data)
	return buf.String()
}

const familyInviteHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Family invitation</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #15803d;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              {{if .InviteeName}}<p style="margin: 0 0 16px; color: #374151;">Hi {{.InviteeName}},</p>{{end}}
              <p style="margin: 0 0 16px; color: #374151;"><strong>{{.InviterName}}</strong> added you to the family group <strong>{{.FamilyName}}</strong>.</p>
              <p style="margin: 0 0 24px; color: #6b7280;">You can now see the recipes, pantry and shopping lists your family shares.</p>
              {{if .Link}}
              <p style="margin: 0; text-align: center;">
                <a href="{{.Link}}" style="display: inline-block; padding: 12px 24px; background-color: #15803d; color: #ffffff; text-decoration: none; border-radius: 6px;">Open your family</a>
              </p>
              {{end}}
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
