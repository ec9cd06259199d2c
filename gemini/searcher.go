// Package gemini implements dentdir.Searcher on the Google Gemini API with
// Google Search grounding.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fwojciec/dentdir"
	"google.golang.org/genai"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// DefaultTemperature keeps listings close to the grounded sources.
const DefaultTemperature = 0.1

// Ensure Searcher implements dentdir.Searcher at compile time.
var _ dentdir.Searcher = (*Searcher)(nil)

// ContentGenerator is the subset of genai.Models used by Searcher.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Searcher implements dentdir.Searcher using Google Gemini.
type Searcher struct {
	models      ContentGenerator
	model       string
	temperature float32
	structured  bool
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(s *Searcher) {
		if model != "" {
			s.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(s *Searcher) {
		s.temperature = t
	}
}

// WithStructuredOutput requests a JSON response matching the candidate
// schema instead of grounded free text. The API does not allow a response
// schema together with the search tool, so structured mode is ungrounded.
func WithStructuredOutput(on bool) Option {
	return func(s *Searcher) {
		s.structured = on
	}
}

// NewSearcher creates a new Searcher.
func NewSearcher(models ContentGenerator, opts ...Option) *Searcher {
	s := &Searcher{
		models:      models,
		model:       DefaultModel,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect creates a Gemini API client for apiKey and wraps it in a Searcher.
// No network call is made.
func Connect(ctx context.Context, apiKey string, opts ...Option) (*Searcher, error) {
	if !dentdir.ValidAPIKey(apiKey) {
		return nil, dentdir.Errorf(dentdir.ECONFIG, "API key required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, dentdir.Errorf(dentdir.ECONFIG, "create gemini client: %v", err)
	}
	return NewSearcher(client.Models, opts...), nil
}

// Search asks the model for clinic listings matching query.
func (s *Searcher) Search(ctx context.Context, query string) ([]*dentdir.Clinic, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, dentdir.Errorf(dentdir.EINVALID, "query required")
	}

	result, err := s.models.GenerateContent(ctx, s.model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: BuildPrompt(query)}},
		}},
		BuildConfig(s.temperature, s.structured),
	)
	if err != nil {
		return nil, ClassifyError(err)
	}
	if result == nil {
		return nil, nil
	}

	return dentdir.ParseCandidates(result.Text()), nil
}

// BuildConfig returns the GenerateContentConfig for a search call.
func BuildConfig(temperature float32, structured bool) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You compile business directories of dental practices in Türkiye. Reply only with a JSON array of listings. Never invent phone numbers or addresses; leave a field empty when it is unknown.",
			}},
		},
		Temperature: &temperature,
	}
	if structured {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = CandidateSchema()
		return config
	}
	config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	return config
}

// CandidateSchema describes the listing array requested in structured mode.
func CandidateSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":             str("Clinic or dentist name"),
				"phone":            str("Phone numbers, mobile first, separated by commas"),
				"address":          str("Street address"),
				"city":             str("Province"),
				"district":         str("District"),
				"website":          str("Website URL"),
				"mapsUri":          str("Google Maps URL"),
				"rating":           {Type: genai.TypeNumber, Description: "Average rating"},
				"userRatingsTotal": {Type: genai.TypeInteger, Description: "Number of ratings"},
			},
			PropertyOrdering: []string{"name", "phone", "address", "city", "district", "website", "mapsUri", "rating", "userRatingsTotal"},
			Required:         []string{"name"},
		},
	}
}

// BuildPrompt builds the search prompt for a single query.
func BuildPrompt(query string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Search: %q\n\n", query)
	sb.WriteString("Find every dentist, dental clinic and dental hospital matching the search, ")
	sb.WriteString("using Google Maps and local directories. Prefer mobile (GSM) numbers.\n\n")
	sb.WriteString("Return a JSON array where each element has:\n")
	sb.WriteString(`{"name": "...", "phone": "...", "address": "...", "city": "...", "district": "...", `)
	sb.WriteString(`"website": "...", "rating": 4.5, "userRatingsTotal": 10, "mapsUri": "...", `)
	sb.WriteString(`"sourceLinks": [{"name": "Google Maps", "url": "..."}]}`)
	sb.WriteString("\n\nReturn [] if nothing is found.")
	return sb.String()
}

// ClassifyError maps a Gemini API failure onto an application error code:
// ERATELIMIT for exhausted quota, ECONFIG for a rejected key and
// EUNAVAILABLE for server and network failures. Context errors are
// returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		return dentdir.Errorf(dentdir.EUNAVAILABLE, "gemini request failed: %v", err)
	}

	msg := apiErr.Message
	if msg == "" {
		msg = apiErr.Status
	}
	status := strings.ToUpper(apiErr.Status)
	switch {
	case apiErr.Code == http.StatusTooManyRequests || strings.Contains(status, "RESOURCE_EXHAUSTED"):
		return dentdir.Errorf(dentdir.ERATELIMIT, "gemini quota exceeded: %s", msg)
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden,
		strings.Contains(status, "UNAUTHENTICATED"), strings.Contains(status, "PERMISSION_DENIED"),
		strings.Contains(strings.ToLower(msg), "api key"):
		return dentdir.Errorf(dentdir.ECONFIG, "gemini rejected the API key: %s", msg)
	case apiErr.Code >= 500:
		return dentdir.Errorf(dentdir.EUNAVAILABLE, "gemini unavailable: %s", msg)
	default:
		return dentdir.Errorf(dentdir.EINTERNAL, "gemini error %d: %s", apiErr.Code, msg)
	}
}
