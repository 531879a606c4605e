package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/gamer-card/internal/models"
	"github.com/xaenox/gamer-card/internal/pipeline"
)

// enrichEvery throttles status edits during enrichment
const enrichEvery = 5

func (b *Bot) analyze(ctx context.Context, chatID int64, profile string) {
	if !b.acquire(chatID) {
		b.sendMessage(chatID, "An analysis is already running for this chat. Please wait for it to finish.")
		return
	}
	defer b.release(chatID)

	logger := b.logger.With(zap.Int64("chat_id", chatID), zap.String("profile", profile))

	status, err := b.api.Send(tgbotapi.NewMessage(chatID, "🔗 Connecting to Steam..."))
	if err != nil {
		logger.Error("Failed to send status message", zap.Error(err))
		return
	}
	progress := &statusMessage{bot: b, chatID: chatID, messageID: status.MessageID, text: status.Text}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	result, err := b.runner.Run(ctx, profile, progress.observe)
	if err != nil {
		_, guidance := pipeline.Describe(err)
		logger.Warn("Analysis failed", zap.Error(err))
		progress.set("❌ Analysis failed")
		b.sendErrorMessage(chatID, guidance)
		return
	}

	b.sendCard(chatID, result, logger)
	if len(result.Recommendations) > 0 {
		msg := tgbotapi.NewMessage(chatID, formatRecommendations(result.Recommendations))
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		msg.DisableWebPagePreview = true
		if _, err := b.api.Send(msg); err != nil {
			logger.Error("Failed to send recommendations", zap.Error(err))
		}
	}
}

func (b *Bot) sendCard(chatID int64, a *models.Analysis, logger *zap.Logger) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "gamer-card.png", Bytes: a.Card})
	photo.Caption = formatCaption(a)
	photo.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.api.Send(photo); err != nil {
		logger.Error("Failed to send card", zap.Error(err))
		b.sendErrorMessage(chatID, "Your card is ready but I could not upload it. Please try again.")
	}
}

// statusMessage edits a single chat message as the run progresses
type statusMessage struct {
	bot       *Bot
	chatID    int64
	messageID int
	text      string
}

func (s *statusMessage) observe(p models.Progress) {
	if p.Stage == models.StageEnrich && p.Total > 0 && p.Done%enrichEvery != 0 && p.Done != p.Total {
		return
	}
	s.set(stageText(p))
}

func (s *statusMessage) set(text string) {
	// Telegram rejects edits that do not change the text
	if text == "" || text == s.text {
		return
	}
	s.text = text
	edit := tgbotapi.NewEditMessageText(s.chatID, s.messageID, text)
	if _, err := s.bot.api.Send(edit); err != nil {
		s.bot.logger.Debug("Failed to update status message", zap.Error(err), zap.Int64("chat_id", s.chatID))
	}
}

func stageText(p models.Progress) string {
	switch p.Stage {
	case models.StageResolve:
		return "🔗 Connecting to Steam..."
	case models.StageLibrary:
		return "📚 Loading game library..."
	case models.StageEnrich:
		if p.Total > 0 {
			return fmt.Sprintf("🏷️ Collecting game details... (%d/%d)", p.Done, p.Total)
		}
		return "🏷️ Collecting game details..."
	case models.StageClassify:
		return "🤖 Analysing your taste..."
	case models.StageRecommend:
		return "🎯 Picking recommendations..."
	case models.StagePortrait:
		return "🎨 Painting your portrait..."
	case models.StageCard:
		return "🃏 Drawing your card..."
	case models.StageDone:
		return "✅ Analysis complete!"
	}
	return ""
}

func formatCaption(a *models.Analysis) string {
	p := a.Personality
	s := a.Summary

	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s* %s\n", escapeMarkdown(p.GamerType), escapeMarkdown(p.GamerTypeEmoji))
	if p.OneLineSummary != "" {
		fmt.Fprintf(&sb, "_%s_\n", escapeMarkdown(p.OneLineSummary))
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Tier: *%s*\n", escapeMarkdown(string(p.Tier)))
	fmt.Fprintf(&sb, "Playtime: %s\n", escapeMarkdown(humanize.CommafWithDigits(s.TotalPlaytimeHours, 1)+"h"))
	fmt.Fprintf(&sb, "Games: %s \\(%s played\\)\n",
		escapeMarkdown(humanize.Comma(int64(s.TotalGames))),
		escapeMarkdown(humanize.Comma(int64(s.PlayedGames))))
	if len(p.TopGenres) > 0 {
		fmt.Fprintf(&sb, "Top genres: %s\n", escapeMarkdown(strings.Join(p.TopGenres, ", ")))
	}
	if a.PortraitFallback {
		sb.WriteString(escapeMarkdown("(portrait unavailable, showing the default art)"))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatRecommendations(recs []models.Recommendation) string {
	var sb strings.Builder
	sb.WriteString("🎯 *Recommended for you*\n")
	for i, rec := range recs {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "%d\\. *%s*", i+1, escapeMarkdown(rec.Name))
		if rec.MatchGenre != "" {
			fmt.Fprintf(&sb, " \\(%s\\)", escapeMarkdown(rec.MatchGenre))
		}
		sb.WriteString("\n")
		if rec.Reason != "" {
			sb.WriteString(escapeMarkdown(rec.Reason) + "\n")
		}
		if rec.SteamURL != "" {
			fmt.Fprintf(&sb, "[Steam store](%s)\n", escapeLinkURL(rec.SteamURL))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// escapeLinkURL escapes the characters MarkdownV2 reserves inside (...) of a link
func escapeLinkURL(u string) string {
	return strings.NewReplacer(`\`, `\\`, `)`, `\)`).Replace(u)
}
