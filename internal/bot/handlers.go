package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"aks-monitor/internal/freegames"
	"aks-monitor/internal/models"
	"aks-monitor/internal/pricing"
	"aks-monitor/internal/scraper"
)

// Handler answers the interactive bot commands.
type Handler struct {
	api       *tgbotapi.BotAPI
	pricing   *pricing.Service
	freeGames *freegames.Service
	scraper   *scraper.Scraper
	chatID    int64
	log       zerolog.Logger
}

// NewHandler wires the command handlers.
func NewHandler(api *tgbotapi.BotAPI, pricingSvc *pricing.Service, freeGamesSvc *freegames.Service, scr *scraper.Scraper, chatID int64, log zerolog.Logger) *Handler {
	return &Handler{
		api:       api,
		pricing:   pricingSvc,
		freeGames: freeGamesSvc,
		scraper:   scr,
		chatID:    chatID,
		log:       log.With().Str("component", "bot").Logger(),
	}
}

// Run consumes the update stream until the context is cancelled.
func (h *Handler) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := h.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			h.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			h.handle(ctx, update.Message)
		}
	}
}

func (h *Handler) handle(ctx context.Context, message *tgbotapi.Message) {
	parts := strings.Fields(message.Text)
	if len(parts) == 0 {
		return
	}

	command := strings.ToLower(parts[0])
	// Strip a trailing @botname.
	if idx := strings.Index(command, "@"); idx > 0 {
		command = command[:idx]
	}

	isPublic := command == "/start" || command == "/help"
	if !isPublic && h.chatID != 0 && message.Chat.ID != h.chatID {
		h.reply(message.Chat.ID, "You are not authorized to use this bot.")
		return
	}

	switch command {
	case "/start", "/help":
		h.handleHelp(message.Chat.ID)
	case "/watch":
		h.handleWatch(ctx, message)
	case "/list":
		h.handleList(message.Chat.ID)
	case "/remove":
		h.handleRemove(message)
	case "/check":
		h.handleCheck(ctx, message)
	case "/freegames":
		h.handleFreeGames(message.Chat.ID)
	default:
		h.reply(message.Chat.ID, "Unknown command. Use /help to see the available commands.")
	}
}

func (h *Handler) handleHelp(chatID int64) {
	helpText := `🤖 <b>AllKeyShop price monitor</b>

<b>Available commands:</b>

<b>/watch</b> &lt;game name&gt; | [key threshold] [account threshold]
Search AllKeyShop and watch the best match. Alert thresholds go after
a "|" so game titles ending in a number stay intact.
Example: /watch Cyberpunk 2077
Example: /watch Elden Ring | 30 25

<b>/list</b> - Show the watch list

<b>/remove &lt;id&gt;</b> - Stop watching a game

<b>/check &lt;id&gt;</b> - Refresh one game's prices now

<b>/freegames</b> - Show recently discovered free games

<b>/help</b> - Show this message
`

	msg := tgbotapi.NewMessage(chatID, helpText)
	msg.ParseMode = "HTML"
	if _, err := h.api.Send(msg); err != nil {
		h.log.Warn().Err(err).Msg("could not send help")
		msg.ParseMode = ""
		h.api.Send(msg)
	}
}

func (h *Handler) handleWatch(ctx context.Context, message *tgbotapi.Message) {
	raw := ""
	if parts := strings.SplitN(message.Text, " ", 2); len(parts) == 2 {
		raw = parts[1]
	}

	query, keyThreshold, accountThreshold, err := parseWatchArgs(raw)
	if err != nil {
		h.reply(message.Chat.ID, fmt.Sprintf("❌ %v", err))
		return
	}
	if query == "" {
		h.reply(message.Chat.ID, "Usage: /watch <game name> | [key threshold] [account threshold]")
		return
	}

	results := h.scraper.Search(ctx, query)
	if len(results) == 0 {
		h.reply(message.Chat.ID, fmt.Sprintf("❌ No AllKeyShop results for %q.", query))
		return
	}
	match := scraper.PickPreferPC(results)

	game, err := h.pricing.Watch(match.Title, match.URL, match.ImageURL, keyThreshold, accountThreshold)
	if err != nil {
		h.reply(message.Chat.ID, fmt.Sprintf("❌ Could not watch %q: %v", match.Title, err))
		return
	}

	// Pull the first snapshot right away so /list has prices.
	if err := h.pricing.Reconcile(ctx, game); err != nil {
		h.log.Warn().Err(err).Str("game", game.GameName).Msg("initial price fetch failed")
	}

	response := fmt.Sprintf("✅ Watching %s (id %d)", game.GameName, game.ID)
	if game.KeyPrice > 0 {
		response += fmt.Sprintf("\nKey: %.2f€ (%s)", game.KeyPrice, game.KeySeller)
	}
	if game.AccountPrice > 0 {
		response += fmt.Sprintf("\nAccount: %.2f€ (%s)", game.AccountPrice, game.AccountSeller)
	}
	if keyThreshold > 0 {
		response += fmt.Sprintf("\nKey threshold: %.2f€", keyThreshold)
	}
	if accountThreshold > 0 {
		response += fmt.Sprintf("\nAccount threshold: %.2f€", accountThreshold)
	}
	h.reply(message.Chat.ID, response)
}

// parseWatchArgs splits a /watch argument string into the game name and
// the optional thresholds behind a "|" separator. Everything before the
// separator is the name, so titles ending in a number (Cyberpunk 2077,
// Battlefield 2042) are never mistaken for thresholds.
func parseWatchArgs(raw string) (query string, keyThreshold, accountThreshold float64, err error) {
	namePart := raw
	thresholdPart := ""
	if i := strings.Index(raw, "|"); i >= 0 {
		namePart, thresholdPart = raw[:i], raw[i+1:]
	}
	query = strings.TrimSpace(namePart)

	fields := strings.Fields(thresholdPart)
	if len(fields) > 2 {
		return "", 0, 0, fmt.Errorf("expected at most two thresholds after \"|\", got %d", len(fields))
	}
	if len(fields) > 0 {
		keyThreshold, err = strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return "", 0, 0, fmt.Errorf("invalid key threshold %q", fields[0])
		}
	}
	if len(fields) > 1 {
		accountThreshold, err = strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return "", 0, 0, fmt.Errorf("invalid account threshold %q", fields[1])
		}
	}
	return query, keyThreshold, accountThreshold, nil
}

func (h *Handler) handleList(chatID int64) {
	games, err := h.pricing.List()
	if err != nil {
		h.reply(chatID, fmt.Sprintf("❌ Could not read the watch list: %v", err))
		return
	}
	if len(games) == 0 {
		h.reply(chatID, "The watch list is empty. Use /watch <game name> to add one.")
		return
	}

	var b strings.Builder
	b.WriteString("📋 Watched games:\n")
	for _, g := range games {
		fmt.Fprintf(&b, "\n%d. %s\n", g.ID, g.GameName)
		fmt.Fprintf(&b, "   Key: %s | Account: %s\n", priceDisplay(g.KeyPrice, g.KeySeller), priceDisplay(g.AccountPrice, g.AccountSeller))
		if g.KeyThreshold > 0 || g.AccountThreshold > 0 {
			fmt.Fprintf(&b, "   Thresholds: %s\n", thresholdDisplay(g))
		}
	}
	h.reply(chatID, b.String())
}

func (h *Handler) handleRemove(message *tgbotapi.Message) {
	parts := strings.Fields(message.Text)
	if len(parts) != 2 {
		h.reply(message.Chat.ID, "Usage: /remove <id>")
		return
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		h.reply(message.Chat.ID, "❌ Invalid id.")
		return
	}
	if err := h.pricing.Unwatch(id); err != nil {
		h.reply(message.Chat.ID, fmt.Sprintf("❌ Could not remove %d: %v", id, err))
		return
	}
	h.reply(message.Chat.ID, fmt.Sprintf("✅ Removed game %d from the watch list.", id))
}

func (h *Handler) handleCheck(ctx context.Context, message *tgbotapi.Message) {
	parts := strings.Fields(message.Text)
	if len(parts) != 2 {
		h.reply(message.Chat.ID, "Usage: /check <id>")
		return
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		h.reply(message.Chat.ID, "❌ Invalid id.")
		return
	}

	game, err := h.pricing.ReconcileByID(ctx, id)
	if err != nil {
		h.reply(message.Chat.ID, fmt.Sprintf("❌ Price check failed: %v", err))
		return
	}

	response := fmt.Sprintf("🔄 %s\nKey: %s\nAccount: %s",
		game.GameName, priceDisplay(game.KeyPrice, game.KeySeller), priceDisplay(game.AccountPrice, game.AccountSeller))
	if pricing.HasAlert(*game) {
		response += "\n\n💰 Below threshold!"
	}
	h.reply(message.Chat.ID, response)
}

func (h *Handler) handleFreeGames(chatID int64) {
	games, err := h.freeGames.History()
	if err != nil {
		h.reply(chatID, fmt.Sprintf("❌ Could not read free games: %v", err))
		return
	}
	if len(games) == 0 {
		h.reply(chatID, "No free games discovered yet.")
		return
	}
	if len(games) > 10 {
		games = games[:10]
	}

	var b strings.Builder
	b.WriteString("🎁 Recent free games:\n")
	for _, g := range games {
		fmt.Fprintf(&b, "\n%s (%s)\n%s\n", g.GameName, g.Platform, g.URL)
	}
	h.reply(chatID, b.String())
}

func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.log.Warn().Err(err).Msg("could not send reply")
	}
}

func priceDisplay(price float64, seller string) string {
	if price <= 0 {
		return "N/A"
	}
	if seller == "" {
		return fmt.Sprintf("%.2f€", price)
	}
	return fmt.Sprintf("%.2f€ (%s)", price, seller)
}

func thresholdDisplay(g models.WatchedGame) string {
	var parts []string
	if g.KeyThreshold > 0 {
		parts = append(parts, fmt.Sprintf("K:%.2f€", g.KeyThreshold))
	}
	if g.AccountThreshold > 0 {
		parts = append(parts, fmt.Sprintf("A:%.2f€", g.AccountThreshold))
	}
	return strings.Join(parts, " | ")
}
