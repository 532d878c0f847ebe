// Package insight turns the dashboard aggregates into a short business
// analysis paragraph via an external text-generation API, with caching so
// a busy dashboard does not hammer the generator.
package insight

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stocktrack/backend/internal/cache"
	"stocktrack/backend/internal/domain"
)

// ErrUnavailable is returned when no generator is configured or the
// upstream API cannot produce a text.
var ErrUnavailable = errors.New("insight generation unavailable")

// TextGenerator produces free text from a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HTTPGenerator calls a JSON text-generation endpoint: POST {"prompt":
// ...} answered with {"text": ...}.
type HTTPGenerator struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewHTTPGenerator(apiURL, apiKey string) *HTTPGenerator {
	return &HTTPGenerator{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: 20 * time.Second},
	}
}

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: upstream status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if strings.TrimSpace(payload.Text) == "" {
		return "", ErrUnavailable
	}
	return payload.Text, nil
}

// Service caches generated analyses keyed by the aggregates they
// describe, so the text only regenerates when the numbers change.
type Service struct {
	generator TextGenerator
	cache     cache.InsightCache
	ttl       time.Duration
	log       zerolog.Logger
}

func New(generator TextGenerator, c cache.InsightCache, ttl time.Duration, log zerolog.Logger) *Service {
	if c == nil {
		c = cache.NewNoop()
	}
	return &Service{generator: generator, cache: c, ttl: ttl, log: log}
}

func (s *Service) Summarize(ctx context.Context, stats domain.GlobalStats, topProducts []domain.Product) (string, error) {
	if s.generator == nil {
		return "", ErrUnavailable
	}

	prompt, err := buildPrompt(stats, topProducts)
	if err != nil {
		return "", err
	}
	key := cacheKey(prompt)

	if cached, err := s.cache.Get(ctx, key); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn().Err(err).Msg("insight cache lookup failed")
	}

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	if err := s.cache.Set(ctx, key, text, s.ttl); err != nil {
		s.log.Warn().Err(err).Msg("insight cache write failed")
	}
	return text, nil
}

func buildPrompt(stats domain.GlobalStats, topProducts []domain.Product) (string, error) {
	type rankedProduct struct {
		Name       string `json:"name"`
		Category   string `json:"category"`
		TotalSales int    `json:"totalSales"`
		Revenue    string `json:"revenue"`
	}
	ranked := make([]rankedProduct, 0, len(topProducts))
	for _, p := range topProducts {
		ranked = append(ranked, rankedProduct{
			Name:       p.Name,
			Category:   p.Category,
			TotalSales: p.Stats.TotalSales,
			Revenue:    p.Stats.Revenue.String(),
		})
	}
	rankedJSON, err := json.Marshal(ranked)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Tu es un expert en analyse de données commerciales.\n")
	b.WriteString("Voici les statistiques de vente de mon magasin ce mois-ci :\n")
	fmt.Fprintf(&b, "- Revenu total : %s €\n", stats.TotalSalesValue.String())
	fmt.Fprintf(&b, "- Produits vendus : %d\n", stats.ProductsSold)
	fmt.Fprintf(&b, "- Stock restant : %d\n\n", stats.TotalStock)
	b.WriteString("Voici quelques produits phares (Top Ventes) :\n")
	b.Write(rankedJSON)
	b.WriteString("\n\nAgis comme un consultant business. Rédige un court paragraphe (max 3 phrases) pour analyser cette performance.\n")
	b.WriteString("Sois direct, professionnel et donne un conseil d'action (ex: promotion, réapprovisionnement).\n")
	b.WriteString("Ne dis pas \"bonjour\", commence directement l'analyse.")
	return b.String(), nil
}

func cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return "insight:" + hex.EncodeToString(sum[:8])
}
