package templates

import (
	"bytes"
	"fmt"
	"html/template"
)

// Template names.
const (
	WelcomeCredentials = "welcome_credentials"
)

var welcomeHTML = template.Must(template.New(WelcomeCredentials).Parse(`
<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #222;">
    <h2>Bem-vindo(a), {{.FullName}}!</h2>
    <p>Sua compra de <strong>{{.ProductName}}</strong> foi confirmada e seu acesso já está liberado.</p>
    <p>Entre na área de membros com as credenciais abaixo e troque a senha no primeiro acesso:</p>
    <p style="background:#f4f4f4;padding:12px;border-radius:6px;">
      E-mail: <strong>{{.Email}}</strong><br/>
      Senha temporária: <strong>{{.TempPassword}}</strong>
    </p>
    <p><a href="{{.LoginURL}}">Acessar a área de membros</a></p>
  </body>
</html>
`))

// Render renders a named template. Returns subject, text fallback and HTML.
func Render(name string, data map[string]any) (subject, text, html string, err error) {
	switch name {
	case WelcomeCredentials:
		var buf bytes.Buffer
		if err = welcomeHTML.Execute(&buf, data); err != nil {
			return "", "", "", err
		}
		subject = "Seu acesso à área de membros"
		text = fmt.Sprintf("Seu acesso foi liberado. E-mail: %v / Senha temporária: %v", data["Email"], data["TempPassword"])
		return subject, text, buf.String(), nil
	default:
		return "", "", "", fmt.Errorf("unknown email template %q", name)
	}
}
