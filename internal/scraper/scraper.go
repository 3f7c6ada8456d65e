package scraper

import "context"

// Scraper fetches the page metadata that seeds description generation.
// Implementations are called once per describe request without a hint.
type Scraper interface {
	ScrapeMetadata(ctx context.Context, url string) (title string, description string, err error)
}
