package enrich

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cratehq/enrich-cli/internal/email"
	"github.com/cratehq/enrich-cli/internal/model"
	"github.com/cratehq/enrich-cli/internal/platform"
	"github.com/cratehq/enrich-cli/internal/resilience"
	"github.com/cratehq/enrich-cli/pkg/anthropic"
	"github.com/cratehq/enrich-cli/pkg/perplexity"
)

// noEmailSentinel is the bare reply the search model is told to use when
// it finds nothing. Accepted case-insensitively, also inside the JSON
// email field.
const noEmailSentinel = "NO_EMAIL_FOUND"

// errNoEmail marks a search answer that affirmed no address exists. It
// fails the step, not the run.
var errNoEmail = eris.New("enrich: search found no email")

// aiAnswer is the structured contract the search model is asked for.
// Parsing is permissive: unknown fields are ignored, missing fields stay
// empty.
type aiAnswer struct {
	Email        string `json:"email"`
	EmailSource  string `json:"email_source"`
	Website      string `json:"website"`
	Management   string `json:"management"`
	BookingAgent string `json:"booking_agent"`
}

// aiFinding is everything mined from one search reply. It is also the
// answer-cache payload, so a repeated prompt costs nothing.
type aiFinding struct {
	Answer    aiAnswer      `json:"answer"`
	Hits      []email.Found `json:"hits,omitempty"`
	Source    string        `json:"source"`
	NoEmail   bool          `json:"no_email"`
	Citations []string      `json:"citations,omitempty"`
}

const aiContract = `Respond with ONLY a JSON object in exactly this shape:
{"email": "", "email_source": "", "website": "", "management": "", "booking_agent": ""}
- email: the single best business, booking or management email address
- email_source: where the address was found
- website: the artist's official website, if any
- management: the management company name, if mentioned
- booking_agent: the booking agency name, if mentioned
Use empty strings for anything you cannot find. If you find no email at
all, respond with exactly NO_EMAIL_FOUND instead of JSON.`

const structurePrompt = `You convert web-search findings about a music artist into JSON.
Return a valid JSON object with these fields:
- email: string (the single best business, booking or management email)
- email_source: string (where it was found)
- website: string
- management: string
- booking_agent: string
If a field cannot be determined, use an empty string. Respond with ONLY the JSON object.`

// stepAIYouTube is the paid deep dive over the artist's YouTube presence.
// The pipeline only reaches it with no accepted email in hand.
func (p *Pipeline) stepAIYouTube(ctx context.Context, rs *runState, step *model.EnrichmentStep) error {
	channelURL := rs.urls[platform.YouTube]
	if channelURL == "" {
		markSkipped(step, model.SkipNoURL)
		return nil
	}

	prompt := fmt.Sprintf(`Find the business, booking or management contact email for the music artist %q.
Start from their YouTube channel at %s: check the channel About page and
recent video descriptions.

%s`, rs.artist.Name, channelURL, aiContract)

	return p.aiSearch(ctx, rs, step, prompt, []string{"youtube.com"})
}

// stepAIInstagram dives into the Instagram presence, including the
// link-in-bio page the profile points at.
func (p *Pipeline) stepAIInstagram(ctx context.Context, rs *runState, step *model.EnrichmentStep) error {
	profileURL := rs.urls[platform.Instagram]
	if profileURL == "" {
		markSkipped(step, model.SkipNoURL)
		return nil
	}

	prompt := fmt.Sprintf(`Find the business, booking or management contact email for the music artist %q.
Start from their Instagram profile at %s: check the bio text, the
link-in-bio page and any contact buttons.

%s`, rs.artist.Name, profileURL, aiContract)

	return p.aiSearch(ctx, rs, step, prompt, []string{"instagram.com", "linktr.ee"})
}

// stepAIGeneric is the unscoped last resort: a plain web search over the
// artist's name.
func (p *Pipeline) stepAIGeneric(ctx context.Context, rs *runState, step *model.EnrichmentStep) error {
	if strings.TrimSpace(rs.artist.Name) == "" {
		markSkipped(step, model.SkipNoURL)
		return nil
	}

	prompt := fmt.Sprintf(`Find the business, booking or management contact email for the music artist %q.
Check booking agency rosters, festival and venue listings, press kits and
the artist's official website.

%s`, rs.artist.Name, aiContract)

	return p.aiSearch(ctx, rs, step, prompt, nil)
}

// aiSearch runs one paid web-search query and mines the reply. The answer
// cache is consulted first; a cached reply costs nothing. An answer that
// affirms there is no email fails the step.
func (p *Pipeline) aiSearch(ctx context.Context, rs *runState, step *model.EnrichmentStep, prompt string, domains []string) error {
	if p.pplx == nil {
		return eris.New("enrich: ai search client not configured")
	}

	key := promptHash(p.cfg.Perplexity.Model, prompt)
	if finding, ok := p.cachedFinding(ctx, key); ok {
		zap.L().Info("enrich: using cached ai answer", zap.String("step", string(step.Method)))
		p.applyFinding(rs, step, finding)
		return finding.outcome()
	}

	raw, citations, err := p.query(ctx, rs, prompt, domains)
	if err != nil {
		return err
	}

	finding := p.mineAnswer(ctx, rs, raw)
	finding.Citations = citations
	p.applyFinding(rs, step, finding)
	p.storeFinding(ctx, key, finding)
	return finding.outcome()
}

// query runs the chat completion through the ai_search breaker, retrying
// a 429 exactly once. Each attempt that reaches the wire is paid for,
// succeed or fail.
func (p *Pipeline) query(ctx context.Context, rs *runState, prompt string, domains []string) (string, []string, error) {
	retry := resilience.RateLimitOnce(p.cfg.Pipeline.RateLimitBackoff)
	retry.OnRetry = resilience.RetryLogger("perplexity", "search")

	breaker := p.breakers.Get(breakerAISearch)

	temp := 0.2
	req := perplexity.ChatCompletionRequest{
		Model:              p.cfg.Perplexity.Model,
		Messages:           []perplexity.Message{{Role: "user", Content: prompt}},
		Temperature:        &temp,
		SearchDomainFilter: domains,
	}

	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
			rs.spendUSD += p.costs.AISearchQuery()
			resp, err := p.pplx.ChatCompletion(ctx, req)
			return resp, classifySearchErr(err)
		})
	})
	if err != nil {
		return "", nil, eris.Wrap(err, "enrich: ai search")
	}
	if len(resp.Choices) == 0 {
		return "", nil, eris.New("enrich: ai search returned no choices")
	}
	return resp.Choices[0].Message.Content, resp.Citations, nil
}

// mineAnswer turns the model's reply into a finding: strict JSON first,
// one structuring pass when that fails, regex extraction as the floor.
func (p *Pipeline) mineAnswer(ctx context.Context, rs *runState, raw string) aiFinding {
	trimmed := strings.TrimSpace(raw)
	if containsSentinel(trimmed) && !strings.Contains(trimmed, "{") {
		return aiFinding{NoEmail: true}
	}

	var answer aiAnswer
	if err := json.Unmarshal([]byte(cleanJSON(trimmed)), &answer); err == nil {
		return findingFromAnswer(answer)
	}

	if p.ai != nil {
		if answer, ok := p.structureAnswer(ctx, rs, trimmed); ok {
			return findingFromAnswer(answer)
		}
	}

	return aiFinding{Hits: email.Extract(trimmed), Source: email.SourceAIText}
}

func findingFromAnswer(a aiAnswer) aiFinding {
	if containsSentinel(a.Email) {
		a.Email = ""
	}
	return aiFinding{
		Answer:  a,
		Source:  email.SourceAIStructured,
		NoEmail: a.Email == "",
	}
}

// outcome is nil unless the answer affirmed that no email exists.
func (f aiFinding) outcome() error {
	if f.NoEmail {
		return errNoEmail
	}
	return nil
}

// structureAnswer asks the extraction model to coerce free text into the
// contract. The static system prompt is cached server-side across calls.
func (p *Pipeline) structureAnswer(ctx context.Context, rs *runState, raw string) (aiAnswer, bool) {
	temp := 0.0
	resp, err := p.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.cfg.Anthropic.Model,
		MaxTokens:   1024,
		System:      anthropic.BuildCachedSystemBlocks(structurePrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: raw}},
		Temperature: &temp,
	})
	if err != nil {
		zap.L().Warn("enrich: structuring pass failed", zap.Error(err))
		return aiAnswer{}, false
	}

	rs.spendUSD += p.costs.Claude(p.cfg.Anthropic.Model,
		resp.Usage.InputTokens, resp.Usage.OutputTokens,
		resp.Usage.CacheCreationInputTokens, resp.Usage.CacheReadInputTokens)
	resp.Usage.LogCost(p.cfg.Anthropic.Model, "structure")

	var answer aiAnswer
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &answer); err != nil {
		zap.L().Warn("enrich: structuring pass returned unparseable json", zap.Error(err))
		return aiAnswer{}, false
	}
	return answer, true
}

// applyFinding records candidates and side findings from one reply; side
// findings fill result fields only when the run had nothing for them.
func (p *Pipeline) applyFinding(rs *runState, step *model.EnrichmentStep, f aiFinding) {
	if step.URLFetched == "" && len(f.Citations) > 0 {
		step.URLFetched = f.Citations[0]
	}

	switch {
	case len(f.Hits) > 0:
		p.filterInto(rs, step, f.Hits, f.Source)
	case f.Answer.Email != "":
		hit := email.Found{Email: f.Answer.Email, Context: f.Answer.EmailSource}
		p.filterInto(rs, step, []email.Found{hit}, f.Source)
	}

	if w := platform.CanonicalURL(f.Answer.Website); w != "" &&
		rs.urls[platform.Website] == "" && platform.Detect(w) == platform.Website {
		rs.result.DiscoveredWebsite = w
		rs.urls[platform.Website] = w
	}
	if f.Answer.Management != "" && rs.result.DiscoveredManagement == "" {
		rs.result.DiscoveredManagement = f.Answer.Management
	}
	if f.Answer.BookingAgent != "" && rs.result.DiscoveredBookingAgent == "" {
		rs.result.DiscoveredBookingAgent = f.Answer.BookingAgent
	}
}

// cachedFinding loads a previously mined reply for the same prompt.
func (p *Pipeline) cachedFinding(ctx context.Context, key string) (aiFinding, bool) {
	if p.cache == nil {
		return aiFinding{}, false
	}
	data, err := p.cache.GetCachedAnswer(ctx, key)
	if err != nil {
		zap.L().Debug("enrich: answer cache lookup failed", zap.Error(err))
		return aiFinding{}, false
	}
	if data == nil {
		return aiFinding{}, false
	}
	var f aiFinding
	if err := json.Unmarshal(data, &f); err != nil {
		return aiFinding{}, false
	}
	return f, true
}

// storeFinding caches a mined reply; a failed write only costs a future
// query.
func (p *Pipeline) storeFinding(ctx context.Context, key string, f aiFinding) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	if err := p.cache.SetCachedAnswer(ctx, key, data, p.cacheTTL()); err != nil {
		zap.L().Debug("enrich: answer cache write failed", zap.Error(err))
	}
}

func (p *Pipeline) cacheTTL() time.Duration {
	if p.cfg.Cache.TTL > 0 {
		return p.cfg.Cache.TTL
	}
	return 7 * 24 * time.Hour
}

// promptHash keys the answer cache on the exact model and query.
func promptHash(model, prompt string) string {
	h := sha256.Sum256([]byte(model + "\n" + prompt))
	return fmt.Sprintf("%x", h[:16])
}

// classifySearchErr maps a perplexity 429 onto the retry taxonomy.
func classifySearchErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *perplexity.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return resilience.NewRateLimitError("perplexity", err)
	}
	return err
}

func containsSentinel(s string) bool {
	return strings.Contains(strings.ToUpper(s), noEmailSentinel)
}

// cleanJSON strips markdown code fences and leading prose so the reply
// parses as a bare object.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}
