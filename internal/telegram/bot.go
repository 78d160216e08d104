// Package telegram is the chat transport: it receives messages and
// commands, hands them to the gateway and delivers replies back, chunked
// to Telegram's message limits.
package telegram

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/roelfdiedericks/aibolit/internal/gateway"
	"github.com/roelfdiedericks/aibolit/internal/gemini"
	. "github.com/roelfdiedericks/aibolit/internal/logging"
	"github.com/roelfdiedericks/aibolit/internal/media"
	"github.com/roelfdiedericks/aibolit/internal/persona"
)

// MsgLoading is shown while the first backend search runs.
const MsgLoading = "⏳ Загрузка модели..."

// interChunkPause spaces out multi-chunk replies so Telegram keeps them in
// order and doesn't rate-limit the bot.
const interChunkPause = 300 * time.Millisecond

// Bot is the Telegram front-end.
type Bot struct {
	bot *tele.Bot
	gw  *gateway.Gateway

	menu *tele.ReplyMarkup

	ctx    context.Context
	cancel context.CancelFunc
}

// New connects to Telegram and registers all handlers. Any leftover
// webhook is removed so long polling can take over.
func New(token string, gw *gateway.Gateway) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token not configured")
	}

	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	bot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	L_info("telegram: connected",
		"bot", "@"+bot.Me.Username,
		"name", bot.Me.FirstName,
		"id", bot.Me.ID,
	)

	if err := bot.RemoveWebhook(true); err != nil {
		L_warn("telegram: failed to remove webhook", "error", err)
	}

	gw.SetHandle(bot.Me.Username)

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		bot:    bot,
		gw:     gw,
		ctx:    ctx,
		cancel: cancel,
	}

	b.setupHandlers()
	L_debug("telegram: handlers registered")

	return b, nil
}

// setupHandlers registers commands, the persona keyboard and the message
// handlers.
func (b *Bot) setupHandlers() {
	b.menu = &tele.ReplyMarkup{}
	var row tele.Row
	for _, p := range persona.All() {
		p := p
		btn := b.menu.Data(p.Title, "mode_"+string(p.ID))
		row = append(row, btn)
		b.bot.Handle(&btn, func(c tele.Context) error {
			text := b.gw.SwitchPersona(c.Sender().ID, p.ID)
			if err := c.Edit(text, b.menu, tele.ModeMarkdown); err != nil {
				L_debug("telegram: callback edit failed", "error", err)
			}
			return c.Respond(&tele.CallbackResponse{Text: "✅ Режим переключен"})
		})
	}
	b.menu.Inline(row)

	b.bot.Handle("/start", func(c tele.Context) error {
		return c.Send(b.gw.StartMenu(c.Sender().ID), b.menu, tele.ModeMarkdown)
	})

	for _, p := range persona.All() {
		p := p
		b.bot.Handle("/"+p.Command, func(c tele.Context) error {
			return b.sendChunked(c, b.gw.SwitchPersona(c.Sender().ID, p.ID), true)
		})
	}

	b.bot.Handle("/refresh", func(c tele.Context) error {
		return b.sendChunked(c, b.gw.ClearHistory(c.Sender().ID), false)
	})

	b.bot.Handle("/info", func(c tele.Context) error {
		return b.sendChunked(c, b.gw.Info(c.Sender().ID), false)
	})

	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		return b.process(c, nil)
	})
	b.bot.Handle(tele.OnPhoto, b.handlePhoto)

	if err := b.bot.SetCommands(botCommands()); err != nil {
		L_warn("telegram: failed to set command list", "error", err)
	}
}

func botCommands() []tele.Command {
	cmds := []tele.Command{
		{Text: "start", Description: "Приветствие и статус"},
	}
	for _, p := range persona.All() {
		cmds = append(cmds, tele.Command{Text: p.Command, Description: p.Title})
	}
	return append(cmds,
		tele.Command{Text: "refresh", Description: "Очистить память диалога"},
		tele.Command{Text: "info", Description: "Статус бота"},
	)
}

// handlePhoto downloads and shrinks the attached photo before running the
// normal pipeline with the caption as the question.
func (b *Bot) handlePhoto(c tele.Context) error {
	photo := c.Message().Photo
	L_debug("telegram: photo received", "user", c.Sender().ID, "size", photo.FileSize)

	img, err := media.DownloadAndOptimize(b.bot, photo)
	if err != nil {
		L_warn("telegram: photo processing failed", "error", err)
		return c.Reply("❌ Не удалось обработать фото")
	}
	return b.process(c, img.Blob())
}

// process runs one message through the gateway and delivers the verdict.
func (b *Bot) process(c tele.Context, image *gemini.Blob) error {
	m := c.Message()

	// Cold start: tell the user the backend search is running.
	var loading *tele.Message
	if !b.gw.Ready() {
		if msg, err := b.bot.Send(m.Chat, MsgLoading); err == nil {
			loading = msg
		}
	}

	reply := b.gw.Handle(b.ctx, gateway.Request{
		UserID:     m.Sender.ID,
		Private:    m.Private(),
		ReplyToBot: m.ReplyTo != nil && m.ReplyTo.Sender != nil && m.ReplyTo.Sender.ID == b.bot.Me.ID,
		Text:       m.Text,
		Caption:    m.Caption,
		Image:      image,
		OnTyping: func() {
			_ = c.Notify(tele.Typing)
		},
	})

	if loading != nil {
		_ = b.bot.Delete(loading)
	}
	if reply.Ignore {
		return nil
	}
	return b.sendChunked(c, reply.Text, reply.ShowMenu)
}

// sendChunked delivers a reply, split to Telegram's limits, as Markdown
// with a plain-text fallback when formatting doesn't parse. The persona
// keyboard rides on the last chunk.
func (b *Bot) sendChunked(c tele.Context, text string, showMenu bool) error {
	chunks := splitMessage(text, maxTelegramMessage)
	for i, chunk := range chunks {
		var opts []interface{}
		if showMenu && i == len(chunks)-1 {
			opts = append(opts, b.menu)
		}

		if err := c.Reply(chunk, append(opts, tele.ModeMarkdown)...); err != nil {
			L_debug("telegram: markdown send failed, falling back to plain text", "error", err, "chunk", i+1)
			if err := c.Reply(chunk, opts...); err != nil {
				return fmt.Errorf("failed to send chunk %d: %w", i+1, err)
			}
		}

		if i < len(chunks)-1 {
			time.Sleep(interChunkPause)
		}
	}
	return nil
}

// Start begins long polling. Blocks until Stop is called.
func (b *Bot) Start() {
	L_info("telegram: starting long polling")
	b.bot.Start()
}

// Stop halts polling and cancels in-flight gateway work.
func (b *Bot) Stop() {
	b.cancel()
	b.bot.Stop()
	L_info("telegram: stopped")
}
