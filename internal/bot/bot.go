package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/gamer-card/internal/models"
	"github.com/xaenox/gamer-card/internal/pipeline"
)

// Runner is satisfied by *pipeline.Runner
type Runner interface {
	Run(ctx context.Context, reference string, observe pipeline.Observer) (*models.Analysis, error)
}

// botAPI is the subset of *tgbotapi.BotAPI the bot uses
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Bot struct {
	api     botAPI
	runner  Runner
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	active map[int64]bool
}

func New(token string, runner Runner, timeout time.Duration, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))

	return newBot(api, runner, timeout, logger), nil
}

func newBot(api botAPI, runner Runner, timeout time.Duration, logger *zap.Logger) *Bot {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Bot{
		api:     api,
		runner:  runner,
		timeout: timeout,
		logger:  logger,
		active:  make(map[int64]bool),
	}
}

// Serve polls for updates until ctx is cancelled. Each message is handled in
// its own goroutine.
func (b *Bot) Serve(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleMessage(ctx, update.Message)
			}()
		}
	}
}

func (b *Bot) String() string {
	return "telegram-bot"
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	profile := strings.TrimSpace(message.Text)
	if profile == "" {
		b.sendMessage(message.Chat.ID, "Send me a Steam profile link or use /help.")
		return
	}
	b.analyze(ctx, message.Chat.ID, profile)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "analyze":
		profile := strings.TrimSpace(message.CommandArguments())
		if profile == "" {
			b.sendMessage(message.Chat.ID, "Usage: /analyze <Steam profile URL or ID>")
			return
		}
		b.analyze(ctx, message.Chat.ID, profile)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to Gamer Card! 🎮
I read your Steam library, work out what kind of gamer you are and draw you a card.

Send me your Steam profile link to begin.
Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/analyze <profile> - Analyse a Steam profile

You can also just send:
- https://steamcommunity.com/id/<name>
- https://steamcommunity.com/profiles/<id>
- a 17-digit Steam ID

Your profile and game details must be public.`

	b.sendMessage(message.Chat.ID, help)
}

// acquire marks chatID busy; it reports false if an analysis is already running there
func (b *Bot) acquire(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active[chatID] {
		return false
	}
	b.active[chatID] = true
	return true
}

func (b *Bot) release(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.active, chatID)
}

// escapeMarkdown escapes special characters for MarkdownV2
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
