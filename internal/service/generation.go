package service

import (
	"context"
	"fmt"
	"strings"

	"offer-service/internal/model"
	"offer-service/pkg/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxContentTokens = 4000

const offerSystemPrompt = `You are a senior sales consultant specializing in creating professional commercial offers.
Your task is to generate a well-structured, professional commercial offer in Polish language.
The offer should be persuasive yet professional, highlighting value propositions clearly.
Structure the content with clear sections using HTML tags for formatting.
Use <h2> for section headings, <p> for paragraphs, <ul>/<li> for bullet lists.
Do NOT include company header data or footer - these are handled by the template.
Focus only on the main body content of the offer.`

// ContentGenerator produces the offer body text from prompts.
type ContentGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// PDFRenderer converts an assembled HTML document to PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// GenerationPipeline orchestrates description retrieval, AI content
// generation, HTML assembly, PDF rendering and the record update. Each step
// is a potential failure point; the offer record is only touched after the
// document bytes have been persisted.
type GenerationPipeline struct {
	db     *gorm.DB
	offers *OfferService
	store  storage.Store
	ai     ContentGenerator
	pdf    PDFRenderer
	locks  *OfferLocks
	log    *zap.Logger
}

func NewGenerationPipeline(db *gorm.DB, offers *OfferService, store storage.Store, ai ContentGenerator, pdf PDFRenderer, locks *OfferLocks, log *zap.Logger) *GenerationPipeline {
	if locks == nil {
		locks = NewOfferLocks()
	}
	return &GenerationPipeline{db: db, offers: offers, store: store, ai: ai, pdf: pdf, locks: locks, log: log}
}

// Generate runs the full pipeline for one offer. Re-invoking on an already
// generated offer regenerates content end-to-end and overwrites the prior
// artifacts; that is a normal user action, not an error.
func (p *GenerationPipeline) Generate(ctx context.Context, id string) (*model.Offer, error) {
	offer, err := p.offers.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	release := p.locks.acquire(offer.ID)
	defer release()

	description, err := p.readDescription(offer)
	if err != nil {
		return nil, err
	}

	content, err := p.ai.Generate(ctx, offerSystemPrompt, buildOfferPrompt(offer, description), maxContentTokens)
	if err != nil {
		return nil, upstream("ai", err)
	}

	html := renderOfferHTML(TemplateData{
		Title:          offer.Title,
		CompanyName:    offer.CompanyName,
		CompanyNIP:     offer.CompanyNIP,
		CompanyAddress: offer.CompanyAddress,
		ContactName:    offer.ContactFullName(),
		ContactEmail:   offer.ContactEmail,
		ContactPhone:   offer.ContactPhone,
		ValidUntil:     offer.ValidUntilString(),
		AIContent:      content,
	})

	pdfBytes, err := p.pdf.Render(ctx, html)
	if err != nil {
		return nil, upstream("pdf", err)
	}

	key := documentKey(offer.ID)
	if err := p.store.Save(key, pdfBytes); err != nil {
		return nil, fmt.Errorf("store offer document: %w", err)
	}

	if current := Status(offer.Status); !current.CanTransition(StatusGenerated) {
		p.log.Warn("Generating outside the canonical lifecycle order",
			zap.String("offer_id", offer.ID.String()),
			zap.String("status", offer.Status))
	}

	offer.AIGeneratedContent = content
	offer.DocumentPath = key
	offer.Status = string(StatusGenerated)
	if err := p.db.WithContext(ctx).Save(offer).Error; err != nil {
		return nil, fmt.Errorf("update offer after generation: %w", err)
	}

	p.log.Info("Offer document generated",
		zap.String("offer_id", offer.ID.String()),
		zap.String("document", key),
		zap.Int("pdf_bytes", len(pdfBytes)))
	return offer, nil
}

func (p *GenerationPipeline) readDescription(offer *model.Offer) (string, error) {
	if offer.DescriptionPath == "" || !p.store.Exists(offer.DescriptionPath) {
		return "", &PreconditionError{Reason: "No description file found. Upload a description first."}
	}

	data, err := p.store.Read(offer.DescriptionPath)
	if err != nil {
		return "", fmt.Errorf("read offer description: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", &PreconditionError{Reason: "No description file found. Upload a description first."}
	}
	return string(data), nil
}

// buildOfferPrompt assembles the user prompt from the client snapshot and
// description text. Optional lines are dropped when the field is absent.
func buildOfferPrompt(offer *model.Offer, description string) string {
	var b strings.Builder
	b.WriteString("Generate a professional commercial offer in Polish based on the following data:\n\n")
	fmt.Fprintf(&b, "Company: %s\n", offer.CompanyName)
	if offer.CompanyNIP != "" {
		fmt.Fprintf(&b, "NIP: %s\n", offer.CompanyNIP)
	}
	if name := offer.ContactFullName(); name != "" {
		fmt.Fprintf(&b, "Contact person: %s\n", name)
	}
	if validUntil := offer.ValidUntilString(); validUntil != "" {
		fmt.Fprintf(&b, "Valid until: %s\n", validUntil)
	}
	b.WriteString("\nDescription / Scope of the offer:\n")
	b.WriteString(description)
	b.WriteString("\n\nGenerate the body content of the offer with clear sections. Use HTML tags (<h2>, <p>, <ul>, <li>) for formatting.\n")
	b.WriteString("Include sections like: Introduction, Scope of Services/Products, Benefits, Pricing (if mentioned), Terms, and Summary.\n")
	b.WriteString("Write in a professional but approachable tone.")
	return b.String()
}
