// Package translate turns natural-language questions into row-capped,
// read-only Cypher via a configurable LLM provider.
package translate

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/time/rate"

	"github.com/repograph/repograph-go/internal/config"
	"github.com/repograph/repograph-go/internal/errors"
	"github.com/repograph/repograph-go/internal/guard"
	"github.com/repograph/repograph-go/internal/logging"
)

// Completer is one LLM provider. Implementations must be safe for
// concurrent use.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Translator generates Cypher from questions, guarded by the
// cypher_generation circuit breaker and paced by a request limiter.
type Translator struct {
	completer Completer
	breaker   *guard.Breaker
	limiter   *rate.Limiter
}

// New builds a translator for the configured provider.
func New(ctx context.Context, cfg config.LLMConfig) (*Translator, error) {
	var completer Completer
	var err error

	switch cfg.Provider {
	case "openai", "":
		completer = newOpenAICompleter(cfg)
	case "gemini":
		completer, err = newGeminiCompleter(ctx, cfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.Configf("unknown llm provider %q (expected openai or gemini)", cfg.Provider)
	}

	logging.Info("translator initialized", "provider", cfg.Provider, "model", cfg.ModelName)
	return NewWithCompleter(completer), nil
}

// NewWithCompleter wires a translator around an existing provider,
// mainly for tests.
func NewWithCompleter(completer Completer) *Translator {
	return &Translator{
		completer: completer,
		breaker:   guard.NewCypherGenerationBreaker(),
		// One generation per second sustained, short bursts allowed.
		limiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}

// Breaker exposes the generation circuit breaker.
func (t *Translator) Breaker() *guard.Breaker {
	return t.breaker
}

// Translate produces one validated-shape Cypher query for the
// question. The snapshot lists what actually exists in the store; the
// prompt never sees the static profile.
func (t *Translator) Translate(ctx context.Context, question, repositoryID string, labels, relationshipTypes []string) (string, error) {
	if question = strings.TrimSpace(question); question == "" {
		return "", errors.UserInputf("question must not be empty")
	}
	if repositoryID != "" && !config.ValidRepositoryID(repositoryID) {
		return "", errors.UserInputf(
			"invalid repository id %q: must match [A-Za-z0-9_-]+", repositoryID)
	}

	var query string
	err := t.breaker.Call(func() error {
		if err := t.limiter.Wait(ctx); err != nil {
			return errors.Timeoutf("cancelled while waiting for translation slot")
		}

		prompt := buildUserPrompt(question, repositoryID, labels, relationshipTypes, guard.MaxRowCap)
		raw, err := t.completer.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			return err
		}

		query = Postprocess(raw)
		if query == "" {
			return errors.Internalf("llm returned an empty query for question %q", question)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	logging.Debug("translated question", "question", question, "cypher", query)
	return query, nil
}

var (
	thinkRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
	fenceRe = regexp.MustCompile("(?s)```(?:cypher|sql)?\\s*(.*?)```")
)

// Postprocess strips model reasoning delimiters and code fences, then
// enforces the row cap.
func Postprocess(raw string) string {
	s := thinkRe.ReplaceAllString(raw, "")
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return guard.EnforceRowCap(s)
}
