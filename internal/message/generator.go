package message

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/wa-outreach/internal/cost"
	"github.com/sells-group/wa-outreach/internal/model"
	"github.com/sells-group/wa-outreach/internal/resilience"
	"github.com/sells-group/wa-outreach/pkg/anthropic"
)

// Generator produces an AI-written opener for a lead.
type Generator interface {
	// GenerateOpener returns the opener for lead. A non-empty prompt
	// replaces the default industry instruction.
	GenerateOpener(ctx context.Context, lead model.Lead, prompt string) (string, error)
	// Available reports whether generation can reach the AI service.
	Available() bool
}

// AIConfig configures AIGenerator.
type AIConfig struct {
	Model       string
	MaxTokens   int64
	Temperature float64
	AgentName   string
	CompanyName string
}

// AIGenerator writes openers with the Anthropic Messages API and falls back
// to FallbackOpener when the service is unavailable or returns nothing.
type AIGenerator struct {
	client  anthropic.Client
	cfg     AIConfig
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
	meter   *cost.Meter
}

// NewAIGenerator returns a generator. A nil client yields a generator that
// only ever serves fallback openers and reports itself unavailable.
func NewAIGenerator(client anthropic.Client, cfg AIConfig) *AIGenerator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 150
	}
	if cfg.AgentName == "" {
		cfg.AgentName = "Joao"
	}
	if cfg.CompanyName == "" {
		cfg.CompanyName = "Homodeus"
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("anthropic", "opener")
	return &AIGenerator{
		client:  client,
		cfg:     cfg,
		retry:   retry,
		breaker: resilience.NewBreaker(3, 2*time.Minute),
		meter:   cost.NewMeter(cost.NewCalculator(cost.DefaultRates())),
	}
}

// Available reports whether a client is configured and the breaker is closed.
func (g *AIGenerator) Available() bool {
	return g.client != nil && !g.breaker.Open()
}

// Usage returns token and cost totals for successful calls.
func (g *AIGenerator) Usage() cost.Usage {
	return g.meter.Snapshot()
}

// GenerateOpener only returns an error when ctx is done. Every service
// failure degrades to the fallback opener.
func (g *AIGenerator) GenerateOpener(ctx context.Context, lead model.Lead, prompt string) (string, error) {
	if g.client == nil {
		return FallbackOpener(lead), nil
	}
	if err := g.breaker.Allow(); err != nil {
		zap.L().Debug("message: ai breaker open, using fallback", zap.String("business", businessOf(lead)))
		return FallbackOpener(lead), nil
	}

	if prompt == "" {
		prompt = lead.PromptVariant
	}
	req := g.request(lead, prompt)

	resp, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return g.client.CreateMessage(ctx, req)
	})
	g.breaker.Record(err)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		zap.L().Warn("message: ai generation failed, using fallback",
			zap.String("business", businessOf(lead)),
			zap.Error(err),
		)
		return FallbackOpener(lead), nil
	}
	resp.Usage.Log(g.cfg.Model, "opener")
	g.meter.Add(g.cfg.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		zap.L().Warn("message: empty ai response, using fallback", zap.String("business", businessOf(lead)))
		return FallbackOpener(lead), nil
	}
	zap.L().Info("message: generated opener", zap.String("business", businessOf(lead)), zap.String("text", text))
	return text, nil
}

func (g *AIGenerator) request(lead model.Lead, prompt string) anthropic.MessageRequest {
	temp := g.cfg.Temperature
	req := anthropic.MessageRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: &temp,
	}
	if prompt != "" {
		req.System = customSystemPrompt
		req.Messages = []anthropic.Message{{Role: "user", Content: customUserPrompt(lead, prompt)}}
	} else {
		req.System = g.openerSystemPrompt()
		req.Messages = []anthropic.Message{{Role: "user", Content: openerUserPrompt(lead)}}
	}
	return req
}

func businessOf(lead model.Lead) string {
	if lead.BusinessName != "" {
		return lead.BusinessName
	}
	return lead.Name
}

func industryOf(lead model.Lead) string {
	if lead.Industry != "" {
		return lead.Industry
	}
	return "general business"
}

const customSystemPrompt = "You are a sales outreach assistant. Write a personalized, conversational " +
	"WhatsApp message that follows the user's instruction and uses the business details provided. " +
	"Keep it to one to three short sentences. Output only the message."

func (g *AIGenerator) openerSystemPrompt() string {
	return fmt.Sprintf(`You write the first WhatsApp message to a business on behalf of %s from %s.
Write as a prospective client, not a seller.
The message is exactly one short question tailored to the business's industry.
Plain words, conversational, no dashes, no emoji, no greeting line of its own.
Examples by industry:
Gym: Hey do you still offer trial passes
Dentist: Hi are you taking new patients this month
Restaurant: Hi are you taking reservations this week
Salon: Hi do you have openings this week
Home services: Hi do you handle urgent jobs in {city}
Ecommerce: Hi do you answer product questions here
Marketing agency: Hi do you take on new clients this month
Auto repair: Hi do you handle urgent repairs today
Output only the question.`, g.cfg.AgentName, g.cfg.CompanyName)
}

// details renders the optional business lines shared by both prompts.
func details(lead model.Lead, prefix string) string {
	var b strings.Builder
	add := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s%s: %s\n", prefix, label, value)
		}
	}
	add("City", ExtractCity(lead.Address))
	add("Address", lead.Address)
	add("Rating", lead.Rating)
	add("Website", lead.Website)
	return b.String()
}

func openerUserPrompt(lead model.Lead) string {
	var b strings.Builder
	b.WriteString("Generate the first opener message for this business:\n\n")
	fmt.Fprintf(&b, "Business: %s\nIndustry: %s\n", businessOf(lead), industryOf(lead))
	b.WriteString(details(lead, ""))
	fmt.Fprintf(&b, "\nYou are talking with a %s called %q. Reply with one short question tailored to that industry.",
		strings.ToLower(industryOf(lead)), businessOf(lead))
	return b.String()
}

func customUserPrompt(lead model.Lead, prompt string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(prompt))
	fmt.Fprintf(&b, "\n\nBusiness Details:\n- Name: %s\n- Industry: %s\n", businessOf(lead), industryOf(lead))
	b.WriteString(details(lead, "- "))
	if lead.Email != "" {
		fmt.Fprintf(&b, "- Email: %s\n", lead.Email)
	}
	b.WriteString("\nWrite a personalized message following the instruction above for these business details. Keep it conversational and concise.")
	return b.String()
}
