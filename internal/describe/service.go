package describe

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"quicklook/internal/domain"
	"quicklook/internal/scraper"
)

// Describer generates a description for a URL.
type Describer interface {
	Describe(ctx context.Context, req Request) (string, error)
}

// Service adds configured credentials and a scraped hint on top of a Describer.
type Service struct {
	client   Describer
	metadata scraper.Scraper
	apiKey   string
	log      logrus.FieldLogger
}

// NewService wraps client. metadata may be nil.
func NewService(client Describer, metadata scraper.Scraper, apiKey string, logger logrus.FieldLogger) *Service {
	return &Service{
		client:   client,
		metadata: metadata,
		apiKey:   strings.TrimSpace(apiKey),
		log:      logger.WithField("component", "describe_service"),
	}
}

// HasCredentials reports whether a server-side API key is configured.
func (s *Service) HasCredentials() bool { return s.apiKey != "" }

// Describe fills in the API key and the hint before delegating.
func (s *Service) Describe(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		req.APIKey = s.apiKey
	}
	// Scraping launches a browser, so skip it for requests that will be rejected anyway.
	if strings.TrimSpace(req.Hint) == "" && s.metadata != nil &&
		strings.TrimSpace(req.APIKey) != "" && domain.IsHTTPURL(req.URL) {
		req.Hint = s.scrapeHint(ctx, req.URL)
	}
	return s.client.Describe(ctx, req)
}

func (s *Service) scrapeHint(ctx context.Context, url string) string {
	title, description, err := s.metadata.ScrapeMetadata(ctx, strings.TrimSpace(url))
	if err != nil {
		s.log.WithError(err).WithField("url", url).Warn("Scraping hint failed, continuing without it")
		return ""
	}
	return strings.TrimSpace(title + " " + description)
}
