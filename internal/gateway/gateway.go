// Package gateway routes incoming chat messages: trigger words, addressing
// rules, persona selection, history assembly and the generate-with-failover
// loop against the backend selector.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/roelfdiedericks/aibolit/internal/convo"
	"github.com/roelfdiedericks/aibolit/internal/gemini"
	"github.com/roelfdiedericks/aibolit/internal/llm"
	. "github.com/roelfdiedericks/aibolit/internal/logging"
	"github.com/roelfdiedericks/aibolit/internal/persona"
)

// User-facing replies. The bot speaks Russian.
const (
	MsgExhausted = "❌ Все лимиты исчерпаны. Попробуйте позже."
	MsgEmpty     = "⚠️ Пустой ответ от модели"
	MsgNoContent = "⚠️ Не найден текст или изображение"
	MsgNoModel   = "❌ Не удалось загрузить модель"
	MsgRefreshed = "🗑️ **История диалога очищена**\n\n" +
		"Бот больше не помнит предыдущих сообщений. Начинаем с чистого листа!\n\n" +
		"_Триггер: !обнови_"
)

// Generator is the generative surface the gateway dispatches to.
type Generator interface {
	GenerateContent(ctx context.Context, req gemini.Request) (*gemini.Reply, error)
}

// Request is one inbound message, already lifted out of the transport.
type Request struct {
	UserID     int64
	Private    bool // direct chat with the bot
	ReplyToBot bool // group reply targeting one of the bot's messages
	Text       string
	Caption    string       // photo caption, used when Text is empty
	Image      *gemini.Blob // optional attached image
	// OnTyping is invoked once the message is accepted for generation, so
	// the transport can show a typing indicator.
	OnTyping func()
}

// Reply is the gateway's verdict on a request.
type Reply struct {
	Ignore   bool // not addressed to the bot: say nothing
	Text     string
	ShowMenu bool // attach the persona keyboard
}

// Gateway ties the selector, the backend and the conversation store
// together.
type Gateway struct {
	selector *llm.Selector
	gen      Generator
	store    *convo.Store

	mu     sync.RWMutex
	handle string // bot username, without @
}

func New(selector *llm.Selector, gen Generator, store *convo.Store) *Gateway {
	return &Gateway{selector: selector, gen: gen, store: store}
}

// SetHandle records the bot's username once the transport has logged in.
func (g *Gateway) SetHandle(username string) {
	g.mu.Lock()
	g.handle = username
	g.mu.Unlock()
}

func (g *Gateway) mention() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.handle == "" {
		return ""
	}
	return "@" + g.handle
}

// Ready reports whether a working backend pair is currently selected.
func (g *Gateway) Ready() bool {
	_, ok := g.selector.Active()
	return ok
}

// Warmup runs the initial backend search so the first user doesn't pay for
// it. Errors are logged, not fatal: the search reruns on first demand.
func (g *Gateway) Warmup(ctx context.Context) {
	if _, err := g.selector.EnsureReady(ctx); err != nil {
		L_warn("gateway: warmup search failed", "error", err)
	}
}

// Handle runs the full pipeline for one inbound message.
func (g *Gateway) Handle(ctx context.Context, req Request) Reply {
	text := req.Text
	if text == "" {
		text = req.Caption
	}

	// Triggers fire regardless of addressing, matching command behavior.
	switch kind, p := detectTrigger(text); kind {
	case triggerPersona:
		return Reply{Text: g.SwitchPersona(req.UserID, p.ID), ShowMenu: true}
	case triggerRefresh:
		return Reply{Text: g.ClearHistory(req.UserID)}
	case triggerInfo:
		return Reply{Text: g.Info(req.UserID)}
	}

	if !g.addressed(req) {
		return Reply{Ignore: true}
	}

	mention := g.mention()
	if mention != "" {
		text = strings.TrimSpace(strings.ReplaceAll(text, mention, ""))
	}
	if text == "" && req.Image == nil {
		return Reply{Text: MsgNoContent}
	}

	if req.OnTyping != nil {
		req.OnTyping()
	}

	p := persona.MustByID(g.store.Persona(req.UserID))
	contents := g.buildContents(req.UserID, text, req.Image)

	L_debug("gateway: request", "user", req.UserID, "persona", p.ID, "len", len(text), "image", req.Image != nil)

	answer, ok := g.generate(ctx, p.System(), contents)
	if !ok {
		return Reply{Text: answer}
	}

	g.store.Append(req.UserID, text, answer)
	return Reply{Text: answer}
}

// addressed implements the group-chat gate: private chats always qualify,
// group messages only when replying to the bot or mentioning its handle.
func (g *Gateway) addressed(req Request) bool {
	if req.Private || req.ReplyToBot {
		return true
	}
	mention := g.mention()
	if mention == "" {
		return false
	}
	return strings.Contains(req.Text, mention) || strings.Contains(req.Caption, mention)
}

// buildContents assembles the wire conversation: stored history turns
// followed by the current question (text plus optional image).
func (g *Gateway) buildContents(userID int64, text string, image *gemini.Blob) []gemini.Content {
	history := g.store.History(userID)
	contents := make([]gemini.Content, 0, len(history)+1)
	for _, turn := range history {
		contents = append(contents, gemini.Content{
			Role:  string(turn.Role),
			Parts: []gemini.Part{{Text: turn.Text}},
		})
	}

	var parts []gemini.Part
	if text != "" {
		parts = append(parts, gemini.Part{Text: text})
	}
	if image != nil {
		parts = append(parts, gemini.Part{InlineData: image})
	}
	contents = append(contents, gemini.Content{Role: string(convo.RoleUser), Parts: parts})
	return contents
}

func generationConfig() *gemini.GenerationConfig {
	// Low temperature: factual answers over creative ones.
	return &gemini.GenerationConfig{
		Temperature:     gemini.Float(0.2),
		TopP:            gemini.Float(0.8),
		TopK:            40,
		MaxOutputTokens: 4096,
	}
}

// generate dispatches to the active pair and fails over on quota errors.
// The loop is bounded by the pair space: each quota failure permanently
// marks a pair, so it cannot spin.
func (g *Gateway) generate(ctx context.Context, system string, contents []gemini.Content) (string, bool) {
	bound := g.selector.PairBound()
	for attempt := 0; attempt <= bound; attempt++ {
		pair, err := g.selector.EnsureReady(ctx)
		if err != nil {
			return MsgExhausted, false
		}

		reply, err := g.gen.GenerateContent(ctx, gemini.Request{
			Model:    pair.Model,
			APIKey:   g.selector.Credential(pair.Key),
			System:   system,
			Contents: contents,
			Config:   generationConfig(),
		})
		if err == nil {
			if reply.Text == "" {
				return MsgEmpty, false
			}
			return reply.Text, true
		}

		if llm.IsQuota(err) {
			L_info("gateway: pair hit quota mid-request, failing over", "pair", pair.String())
			g.selector.MarkExhausted(pair)
			continue
		}
		L_error("gateway: generation failed", "pair", pair.String(), "error", err)
		return errorReply(err), false
	}
	return MsgExhausted, false
}

// errorReply formats a backend error for chat, truncated the way users can
// stomach.
func errorReply(err error) string {
	msg := err.Error()
	if len(msg) > 100 {
		msg = msg[:100]
	}
	return "❌ Ошибка: " + msg
}

// SwitchPersona selects a persona for the user and returns the
// confirmation text. History is kept.
func (g *Gateway) SwitchPersona(userID int64, id persona.ID) string {
	p, ok := persona.ByID(id)
	if !ok {
		p = persona.MustByID(persona.Default)
	}
	g.store.SetPersona(userID, p.ID)
	L_info("gateway: persona switched", "user", userID, "persona", p.ID)
	return p.Blurb
}

// ClearHistory forgets the user's conversation and confirms it.
func (g *Gateway) ClearHistory(userID int64) string {
	g.store.Clear(userID)
	L_info("gateway: history cleared", "user", userID)
	return MsgRefreshed
}

// StatusLine renders the active backend for status surfaces.
func (g *Gateway) StatusLine() string {
	pair, ok := g.selector.Active()
	if !ok {
		if g.selector.State() == llm.StateExhausted {
			return "💀 Все лимиты исчерпаны"
		}
		return "💀 Модель не загружена"
	}
	if n := g.selector.KeyCount(); n > 1 {
		return fmt.Sprintf("✅ `%s` (API #%d/%d)", pair.Model, pair.Key+1, n)
	}
	return fmt.Sprintf("✅ `%s`", pair.Model)
}

// StartMenu renders the /start greeting with the live backend status.
func (g *Gateway) StartMenu(userID int64) string {
	p := persona.MustByID(g.store.Persona(userID))
	return fmt.Sprintf(
		"🏥 **Медицинский Ассистент**\n%s\n\n"+
			"📋 **Текущий режим:** %s\n\n"+
			"**Команды:**\n"+
			"  /medic (триггер !врач) - Общая медицина\n"+
			"  /gen (триггер !гениколог) - Гинекология\n"+
			"  /aku (триггер !акушер) - Акушерство\n"+
			"  /refresh (триггер !обнови) - Очистить память диалога\n"+
			"  /info (триггер !инфо) - Статус бота\n\n"+
			"**Как использовать:**\n"+
			"1. Выберите режим (команда или триггер)\n"+
			"2. Напишите вопрос\n"+
			"3. Бот запомнит контекст для следующих вопросов\n"+
			"4. /refresh чтобы забыть всё и начать заново",
		g.StatusLine(), p.Title)
}

// Info renders the status reply for /info and the !инфо trigger.
func (g *Gateway) Info(userID int64) string {
	p := persona.MustByID(g.store.Persona(userID))
	return fmt.Sprintf(
		"ℹ️ **Статус**\n\n"+
			"Модель: %s\n"+
			"Режим: %s\n"+
			"Сообщений в памяти: %d\n"+
			"Активных пользователей: %d",
		g.StatusLine(), p.Title, len(g.store.History(userID)), g.store.ActiveUsers())
}

// ActiveModel exposes the selected pair for the HTTP status endpoints.
func (g *Gateway) ActiveModel() (model string, keyIndex int, ok bool) {
	pair, ok := g.selector.Active()
	return pair.Model, pair.Key, ok
}

// KeyCount exposes the credential pool size for status output.
func (g *Gateway) KeyCount() int { return g.selector.KeyCount() }

// ActiveUsers exposes the conversation store size for status output.
func (g *Gateway) ActiveUsers() int { return g.store.ActiveUsers() }
