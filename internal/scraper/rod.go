package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single page load.
const DefaultTimeout = 30 * time.Second

// descriptionSelectors are tried in order; the first non-empty match wins.
var descriptionSelectors = []string{
	`meta[name="description"]`,
	`meta[property="og:description"]`,
}

// browserLauncher is the part of *launcher.Launcher used per scrape.
type browserLauncher interface {
	Launch() (string, error)
	Kill()
	Cleanup()
}

// RodScraper implements Scraper with a headless browser launched per call.
type RodScraper struct {
	log         logrus.FieldLogger
	timeout     time.Duration
	newLauncher func() (browserLauncher, error)
}

// NewRodScraper creates a new scraper instance.
func NewRodScraper(logger logrus.FieldLogger) *RodScraper {
	return &RodScraper{
		log:         logger.WithField("component", "scraper"),
		timeout:     DefaultTimeout,
		newLauncher: localLauncher,
	}
}

func localLauncher() (browserLauncher, error) {
	path, exists := launcher.LookPath()
	if !exists {
		return nil, errors.New("rod browser dependency not found")
	}
	return launcher.New().Bin(path), nil
}

// ScrapeMetadata loads url and extracts <title> and the meta description.
// Every launched browser is stopped and its profile directory removed
// before returning.
func (s *RodScraper) ScrapeMetadata(ctx context.Context, url string) (title string, description string, err error) {
	log := s.log.WithField("url", url)
	log.Debug("Scraping metadata")

	l, err := s.newLauncher()
	if err != nil {
		return "", "", err
	}
	controlURL, err := l.Launch()
	if err != nil {
		return "", "", fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err = browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return "", "", fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer func() {
		if closeErr := browser.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("Error closing rod browser instance")
			l.Kill()
		}
		// Cleanup blocks until the browser process has exited.
		l.Cleanup()
	}()

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", "", fmt.Errorf("failed to create page: %w", err)
	}

	pageCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	page = page.Context(pageCtx)

	if err = page.WaitLoad(); err != nil {
		if errors.Is(pageCtx.Err(), context.DeadlineExceeded) {
			return "", "", fmt.Errorf("scraping timed out for %s: %w", url, pageCtx.Err())
		}
		return "", "", fmt.Errorf("failed waiting for page load: %w", err)
	}

	// Has does not wait for the element to appear, unlike Element.
	if ok, el, hasErr := page.Has("title"); hasErr == nil && ok {
		if text, textErr := el.Text(); textErr == nil {
			title = strings.TrimSpace(text)
		}
	}

	for _, selector := range descriptionSelectors {
		ok, el, hasErr := page.Has(selector)
		if hasErr != nil {
			log.WithError(hasErr).WithField("selector", selector).Warn("Error searching for meta description tag")
			continue
		}
		if !ok {
			continue
		}
		content, attrErr := el.Attribute("content")
		if attrErr != nil || content == nil {
			continue
		}
		if description = strings.TrimSpace(*content); description != "" {
			break
		}
	}

	log.WithFields(logrus.Fields{
		"title":           title,
		"has_description": description != "",
	}).Debug("Metadata scraping completed")
	return title, description, nil
}
