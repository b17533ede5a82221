package service

import "strings"

// offerTemplate is the fixed HTML document the PDF is rendered from.
// {{name}} tokens are inline placeholders; {{#name}}...{{/name}} pairs mark
// conditional blocks that are removed entirely when the field is absent.
const offerTemplate = `<!DOCTYPE html>
<html lang="pl">
<head>
<meta charset="UTF-8">
<style>
  @page { margin: 2cm; size: A4; }
  body { font-family: 'Segoe UI', Arial, sans-serif; color: #333; line-height: 1.6; font-size: 14px; }
  .header { border-bottom: 3px solid #2563eb; padding-bottom: 20px; margin-bottom: 30px; }
  .header h1 { color: #2563eb; font-size: 24px; margin: 0 0 5px 0; }
  .header .subtitle { color: #666; font-size: 14px; }
  .client-info { background: #f8fafc; padding: 15px 20px; border-radius: 8px; margin-bottom: 30px; }
  .client-info h3 { margin: 0 0 8px 0; color: #2563eb; font-size: 16px; }
  .client-info p { margin: 3px 0; font-size: 13px; }
  .content h2 { color: #1e40af; font-size: 18px; border-bottom: 1px solid #e2e8f0; padding-bottom: 5px; }
  .content p { margin: 8px 0; }
  .content ul { padding-left: 20px; }
  .content li { margin: 4px 0; }
  .footer { margin-top: 40px; padding-top: 20px; border-top: 2px solid #e2e8f0; font-size: 12px; color: #666; }
  .footer .validity { font-weight: bold; color: #333; }
</style>
</head>
<body>
  <div class="header">
    <h1>{{title}}</h1>
    <div class="subtitle">Oferta handlowa</div>
  </div>

  <div class="client-info">
    <h3>Dane klienta</h3>
    <p><strong>{{company_name}}</strong></p>
    {{#company_nip}}<p>NIP: {{company_nip}}</p>{{/company_nip}}
    {{#company_address}}<p>{{company_address}}</p>{{/company_address}}
    {{#contact_name}}<p>Osoba kontaktowa: {{contact_name}}</p>{{/contact_name}}
    {{#contact_email}}<p>Email: {{contact_email}}</p>{{/contact_email}}
    {{#contact_phone}}<p>Tel: {{contact_phone}}</p>{{/contact_phone}}
  </div>

  <div class="content">
    {{ai_generated_content}}
  </div>

  <div class="footer">
    {{#valid_until}}<p class="validity">Oferta ważna do: {{valid_until}}</p>{{/valid_until}}
    <p>Dokument wygenerowany automatycznie.</p>
  </div>
</body>
</html>`

// TemplateData carries the values substituted into the offer template.
// Title, CompanyName and AIContent are required; the rest are optional and
// control their conditional blocks.
type TemplateData struct {
	Title          string
	CompanyName    string
	CompanyNIP     string
	CompanyAddress string
	ContactName    string
	ContactEmail   string
	ContactPhone   string
	ValidUntil     string
	AIContent      string
}

// renderOfferHTML substitutes the data into the offer template. For each
// optional field: when present, the inline token is replaced and the block
// markers stripped; when absent, the whole marked block is removed. Either
// way no marker tokens survive in the output.
func renderOfferHTML(data TemplateData) string {
	html := offerTemplate
	html = strings.ReplaceAll(html, "{{title}}", data.Title)
	html = strings.ReplaceAll(html, "{{company_name}}", data.CompanyName)

	optional := []struct {
		field string
		value string
	}{
		{"company_nip", data.CompanyNIP},
		{"company_address", data.CompanyAddress},
		{"contact_name", data.ContactName},
		{"contact_email", data.ContactEmail},
		{"contact_phone", data.ContactPhone},
		{"valid_until", data.ValidUntil},
	}
	for _, f := range optional {
		html = substituteBlock(html, f.field, f.value)
	}

	return strings.ReplaceAll(html, "{{ai_generated_content}}", data.AIContent)
}

func substituteBlock(html, field, value string) string {
	opener := "{{#" + field + "}}"
	closer := "{{/" + field + "}}"

	if value != "" {
		html = strings.ReplaceAll(html, "{{"+field+"}}", value)
		html = strings.ReplaceAll(html, opener, "")
		return strings.ReplaceAll(html, closer, "")
	}

	// Remove every marked block including its content.
	for {
		start := strings.Index(html, opener)
		if start < 0 {
			return html
		}
		end := strings.Index(html[start:], closer)
		if end < 0 {
			// Unbalanced markers would be a template bug; drop the opener so
			// no token leaks into the rendered document.
			return strings.ReplaceAll(html, opener, "")
		}
		html = html[:start] + html[start+end+len(closer):]
	}
}
