package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderOfferHTMLAllFieldsPresent(t *testing.T) {
	html := renderOfferHTML(TemplateData{
		Title:          "Wdrożenie systemu",
		CompanyName:    "Acme Sp. z o.o.",
		CompanyNIP:     "1234567890",
		CompanyAddress: "Main 1, Warszawa",
		ContactName:    "Jan Kowalski",
		ContactEmail:   "jan@acme.pl",
		ContactPhone:   "+48 600 000 000",
		ValidUntil:     "2026-09-30",
		AIContent:      "<h2>Wstęp</h2><p>Treść oferty.</p>",
	})

	assert.Contains(t, html, "<h1>Wdrożenie systemu</h1>")
	assert.Contains(t, html, "<strong>Acme Sp. z o.o.</strong>")
	assert.Contains(t, html, "NIP: 1234567890")
	assert.Contains(t, html, "Osoba kontaktowa: Jan Kowalski")
	assert.Contains(t, html, "Email: jan@acme.pl")
	assert.Contains(t, html, "Tel: +48 600 000 000")
	assert.Contains(t, html, "Oferta ważna do: 2026-09-30")
	assert.Contains(t, html, "<h2>Wstęp</h2><p>Treść oferty.</p>")

	assertNoMarkers(t, html)
}

func TestRenderOfferHTMLAbsentFieldsRemoveWholeBlocks(t *testing.T) {
	html := renderOfferHTML(TemplateData{
		Title:       "Oferta",
		CompanyName: "Globex",
		AIContent:   "<p>body</p>",
	})

	assert.NotContains(t, html, "NIP:")
	assert.NotContains(t, html, "Osoba kontaktowa:")
	assert.NotContains(t, html, "Email:")
	assert.NotContains(t, html, "Tel:")
	assert.NotContains(t, html, "Oferta ważna do:")

	// unconditional parts stay
	assert.Contains(t, html, "<strong>Globex</strong>")
	assert.Contains(t, html, "Dokument wygenerowany automatycznie.")

	assertNoMarkers(t, html)
}

func TestRenderOfferHTMLMixedPresence(t *testing.T) {
	html := renderOfferHTML(TemplateData{
		Title:       "Oferta",
		CompanyName: "Globex",
		CompanyNIP:  "999",
		ContactName: "Anna Nowak",
		AIContent:   "<p>body</p>",
	})

	assert.Contains(t, html, "NIP: 999")
	assert.Contains(t, html, "Osoba kontaktowa: Anna Nowak")
	assert.NotContains(t, html, "Tel:")
	assert.NotContains(t, html, "Oferta ważna do:")

	assertNoMarkers(t, html)
}

func assertNoMarkers(t *testing.T, html string) {
	t.Helper()
	assert.False(t, strings.Contains(html, "{{"), "leftover template marker in output")
	assert.False(t, strings.Contains(html, "}}"), "leftover template marker in output")
}
