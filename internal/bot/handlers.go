package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"FirsatRadar/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

const helpText = `🤖 <b>Fırsat Radar Botu</b>

<b>Komutlar:</b>

/kategoriler - Takip edilebilecek kategorileri listeler
/abone &lt;kategori_id&gt; - Bir kategoriye abone ol
Örnek: /abone amazon_bilgisayar
/iptal &lt;kategori_id&gt; - Aboneliği iptal et
/aboneliklerim - Abone olduğun kategorileri göster
/help - Bu mesajı göster`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		b.reply(msg.Chat.ID, helpText)
	case "kategoriler", "categories":
		b.handleCategories(ctx, msg.Chat.ID)
	case "abone", "subscribe":
		b.handleSubscribe(ctx, msg)
	case "iptal", "unsubscribe":
		b.handleUnsubscribe(ctx, msg)
	case "aboneliklerim", "mysubscriptions":
		b.handleMySubscriptions(ctx, msg)
	default:
		b.reply(msg.Chat.ID, "Bilinmeyen komut. Komutlar için /help yazın.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	user := models.User{
		UserID:    msg.From.ID,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		Username:  msg.From.UserName,
		JoinedAt:  time.Now().UTC(),
	}

	if err := b.store.RegisterUser(ctx, user); err != nil {
		log.WithError(err).WithField("user_id", user.UserID).Error("Could not register user")
		b.reply(msg.Chat.ID, "⚠️ Kayıt sırasında bir hata oluştu, lütfen tekrar deneyin.")
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Merhaba %s! 👋\n\nFırsat Radar'a hoş geldin. Kategorilere abone olursan yeni outlet fırsatlarını sana da gönderirim.\n\n%s",
		html.EscapeString(user.FirstName), helpText))
}

func (b *Bot) handleCategories(ctx context.Context, chatID int64) {
	categories, err := b.store.Categories(ctx)
	if err != nil {
		log.WithError(err).Error("Could not list categories")
		b.reply(chatID, "⚠️ Kategoriler alınamadı.")
		return
	}
	if len(categories) == 0 {
		b.reply(chatID, "Henüz tanımlı kategori yok.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Kategoriler:</b>\n\n")
	for _, c := range categories {
		sb.WriteString(fmt.Sprintf("• <code>%s</code> — %s (%s)\n",
			html.EscapeString(c.ID), html.EscapeString(c.Name), html.EscapeString(c.Marketplace)))
	}
	sb.WriteString("\nAbone olmak için: /abone &lt;kategori_id&gt;")
	b.reply(chatID, sb.String())
}

func (b *Bot) handleSubscribe(ctx context.Context, msg *tgbotapi.Message) {
	categoryID := strings.TrimSpace(msg.CommandArguments())
	if categoryID == "" {
		b.reply(msg.Chat.ID, "Kullanım: /abone <kategori_id>\nKategoriler için /kategoriler yazın.")
		return
	}

	if !b.categoryExists(ctx, categoryID) {
		b.reply(msg.Chat.ID, fmt.Sprintf("❌ <code>%s</code> diye bir kategori yok. /kategoriler ile listeyi görebilirsin.", html.EscapeString(categoryID)))
		return
	}

	if err := b.store.Subscribe(ctx, msg.From.ID, categoryID); err != nil {
		log.WithError(err).WithFields(log.Fields{"user_id": msg.From.ID, "category": categoryID}).Error("Subscribe failed")
		b.reply(msg.Chat.ID, "⚠️ Abonelik kaydedilemedi, lütfen tekrar deneyin.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ <code>%s</code> kategorisine abone oldun.", html.EscapeString(categoryID)))
}

func (b *Bot) handleUnsubscribe(ctx context.Context, msg *tgbotapi.Message) {
	categoryID := strings.TrimSpace(msg.CommandArguments())
	if categoryID == "" {
		b.reply(msg.Chat.ID, "Kullanım: /iptal <kategori_id>")
		return
	}

	if err := b.store.Unsubscribe(ctx, msg.From.ID, categoryID); err != nil {
		log.WithError(err).WithFields(log.Fields{"user_id": msg.From.ID, "category": categoryID}).Error("Unsubscribe failed")
		b.reply(msg.Chat.ID, "⚠️ İptal işlemi başarısız oldu.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ <code>%s</code> aboneliğin iptal edildi.", html.EscapeString(categoryID)))
}

func (b *Bot) handleMySubscriptions(ctx context.Context, msg *tgbotapi.Message) {
	subs, err := b.store.UserSubscriptions(ctx, msg.From.ID)
	if err != nil {
		log.WithError(err).WithField("user_id", msg.From.ID).Error("Could not list subscriptions")
		b.reply(msg.Chat.ID, "⚠️ Aboneliklerin alınamadı.")
		return
	}
	if len(subs) == 0 {
		b.reply(msg.Chat.ID, "Henüz hiçbir kategoriye abone değilsin. /kategoriler ile başlayabilirsin.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🔔 <b>Aboneliklerin:</b>\n\n")
	for _, id := range subs {
		sb.WriteString(fmt.Sprintf("• <code>%s</code>\n", html.EscapeString(id)))
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) categoryExists(ctx context.Context, categoryID string) bool {
	categories, err := b.store.Categories(ctx)
	if err != nil {
		log.WithError(err).Warn("Could not check category, allowing subscribe")
		return true
	}
	for _, c := range categories {
		if c.ID == categoryID {
			return true
		}
	}
	return false
}
