package emails

import (
	"bytes"
	"html/template"
)

// baseTemplate is the shared HTML shell for system mail. Inline CSS only;
// most mail clients strip <style> blocks.
const baseTemplate = `<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background-color:#f4f5f7;font-family:Arial,Helvetica,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
    <tr><td align="center" style="padding:24px;">
      <table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:6px;">
        <tr><td style="background:#1a3e5c;color:#ffffff;padding:16px 24px;border-radius:6px 6px 0 0;font-size:18px;font-weight:bold;">
          {{.Title}}
        </td></tr>
        <tr><td style="padding:24px;color:#333333;font-size:14px;line-height:1.6;">
          {{.Body}}
        </td></tr>
        <tr><td style="padding:16px 24px;color:#8a8f98;font-size:11px;border-top:1px solid #e4e6ea;">
          Generated by the Quality Management System. This record is maintained under 21 CFR Part 11 controls; do not reply.
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

var base = template.Must(template.New("base").Parse(baseTemplate))

// RenderBody wraps pre-rendered inner HTML in the system mail shell.
func RenderBody(title string, innerHTML string) (string, error) {
	var buf bytes.Buffer
	err := base.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: template.HTML(innerHTML)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderTable renders key/value rows as an HTML detail table, the common
// body shape for notification mail.
func RenderTable(rows [][2]string) string {
	var buf bytes.Buffer
	buf.WriteString(`<table role="presentation" width="100%" cellpadding="6" cellspacing="0" style="border-collapse:collapse;">`)
	for _, row := range rows {
		buf.WriteString(`<tr><td style="width:40%;color:#6b7280;border-bottom:1px solid #eef0f3;">`)
		template.HTMLEscape(&buf, []byte(row[0]))
		buf.WriteString(`</td><td style="border-bottom:1px solid #eef0f3;">`)
		template.HTMLEscape(&buf, []byte(row[1]))
		buf.WriteString(`</td></tr>`)
	}
	buf.WriteString(`</table>`)
	return buf.String()
}
