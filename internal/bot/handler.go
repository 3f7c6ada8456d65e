// Package bot is a Telegram front-end for creating and inspecting short links.
package bot

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"quicklook/internal/describe"
	"quicklook/internal/domain"
)

const (
	welcomeMessage = "Welcome to QuickLook! Send me a link, optionally followed by a few words about it, and I'll shorten it for you.\n" +
		"Use /info <code> to see where a short link points."
	usageMessage = "Send me an http or https link to shorten, or use /info <code>."
	maxHintLen   = 400
)

// LinkService is the subset of the registry the bot needs.
type LinkService interface {
	Create(ctx context.Context, in domain.CreateInput) (domain.LinkRecord, error)
	Lookup(ctx context.Context, code string) (domain.LinkRecord, error)
}

// Describer generates descriptions when server-side credentials exist.
type Describer interface {
	describe.Describer
	HasCredentials() bool
}

// Handler holds dependencies for the Telegram bot handlers.
type Handler struct {
	bot       *tgbot.Bot
	links     LinkService
	describer Describer
	baseURL   string
	log       logrus.FieldLogger
}

// NewHandler creates the bot and registers its handlers. describer may be nil.
func NewHandler(token, baseURL string, links LinkService, describer Describer, logger logrus.FieldLogger) (*Handler, error) {
	h := newHandler(baseURL, links, describer, logger)

	b, err := tgbot.New(token, tgbot.WithDefaultHandler(h.defaultHandler))
	if err != nil {
		h.log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	h.bot = b
	h.registerHandlers()

	h.log.Info("Telegram bot handler initialized")
	return h, nil
}

func newHandler(baseURL string, links LinkService, describer Describer, logger logrus.FieldLogger) *Handler {
	return &Handler{
		links:     links,
		describer: describer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		log:       logger.WithField("component", "bot_handler"),
	}
}

func (h *Handler) registerHandlers() {
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, h.startHandler)
	h.bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/info", tgbot.MatchTypePrefix, h.infoHandler)
}

// Start polls for updates until ctx is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling...")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped.")
}

func (h *Handler) startHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	h.send(ctx, b, update, welcomeMessage)
}

func (h *Handler) infoHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	h.send(ctx, b, update, h.info(ctx, update.Message.Text))
}

func (h *Handler) defaultHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	h.send(ctx, b, update, h.shorten(ctx, update.Message.Text))
}

func (h *Handler) send(ctx context.Context, b *tgbot.Bot, update *models.Update, text string) {
	if update.Message == nil {
		return
	}
	log := h.log.WithField("chat_id", update.Message.Chat.ID)
	if update.Message.From != nil {
		log = log.WithField("user_id", update.Message.From.ID)
	}

	_, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
	if err != nil {
		log.WithError(err).Error("Failed to send reply")
	}
}

// info answers "/info <code>".
func (h *Handler) info(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return "Usage: /info <code>"
	}
	code := fields[1]

	rec, err := h.links.Lookup(ctx, code)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return fmt.Sprintf("Short link %q not found.", code)
		}
		h.log.WithError(err).WithField("code", code).Error("Lookup failed")
		return "Something went wrong, please try again later."
	}
	return fmt.Sprintf("%s\n%s\n%s", h.shortURL(rec.Code), rec.URL, rec.Description)
}

// shorten creates a link from a free-form message.
func (h *Handler) shorten(ctx context.Context, text string) string {
	target, hint, ok := parseLinkMessage(text)
	if !ok {
		return usageMessage
	}

	rec, err := h.links.Create(ctx, domain.CreateInput{
		URL:         target,
		Description: h.describeLink(ctx, target, hint),
	})
	if err != nil {
		h.log.WithError(err).WithField("url", target).Warn("Create from chat failed")
		return "Could not shorten that link: " + domain.PublicMessage(err, "internal error")
	}
	return h.shortURL(rec.Code)
}

// describeLink prefers a generated description, then the user's hint, then
// the target host.
func (h *Handler) describeLink(ctx context.Context, target, hint string) string {
	if h.describer != nil && h.describer.HasCredentials() {
		desc, err := h.describer.Describe(ctx, describe.Request{URL: target, Hint: hint})
		if err == nil && strings.TrimSpace(desc) != "" {
			return desc
		}
		if err != nil {
			h.log.WithError(err).WithField("url", target).Warn("Description generation failed, falling back")
		}
	}
	if hint = describe.Sanitize(hint, maxHintLen); hint != "" {
		return hint
	}
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		return u.Host
	}
	return target
}

func (h *Handler) shortURL(code string) string {
	return h.baseURL + "/s/" + code
}

// parseLinkMessage picks the first http(s) URL in text. The remaining words
// form the hint.
func parseLinkMessage(text string) (target, hint string, ok bool) {
	words := strings.Fields(text)
	rest := make([]string, 0, len(words))
	for _, w := range words {
		if !ok && domain.IsHTTPURL(w) {
			target, ok = w, true
			continue
		}
		rest = append(rest, w)
	}
	if !ok {
		return "", "", false
	}
	return target, strings.Join(rest, " "), true
}
