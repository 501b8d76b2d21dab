package bot

import (
	"context"
	"log"
	"strings"
	"sync"

	"bankbot/internal/services"
	"bankbot/internal/store"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Engine is the ledger core the bot renders. The bot never computes fees,
// outcomes or balances itself.
type Engine interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	History(ctx context.Context, userID int64) ([]store.Transaction, error)
	PoolStats(ctx context.Context) (services.PoolStats, error)
	ProposeTransfer(ctx context.Context, senderID, recipientID, amountMinor int64) (services.ProposedTransfer, error)
	ConfirmTransfer(ctx context.Context, transferID string, requestingUserID int64) (services.TransferResult, error)
	CancelTransfer(ctx context.Context, transferID string, requestingUserID int64) (store.TransferRequest, error)
	ClaimGift(ctx context.Context, userID int64) (services.GiftResult, error)
	PlayWager(ctx context.Context, userID, betMinor int64) (services.WagerResult, error)
	IssueLoan(ctx context.Context, userID, amountMinor int64) (services.LoanResult, error)
	RepayLoan(ctx context.Context, loanID string, userID int64) (services.RepaymentResult, error)
	OutstandingLoans(ctx context.Context, userID int64) ([]store.Loan, error)
}

const (
	btnBalance   = "💰 Balance"
	btnHistory   = "📜 History"
	btnLiquidity = "🏦 Liquidity"
	btnTransfer  = "💸 Transfer"
	btnGift      = "🎁 Daily Gift"
	btnWager     = "🎰 Wager"
	btnLoans     = "💳 Loans"
)

// awaiting tracks the next free-text input expected from a chat. Only input
// collection lives here; the transfer itself is a persisted request that the
// inline buttons address by id.
type awaiting struct {
	step        string
	recipientID int64
}

const (
	stepTransferRecipient = "transfer_recipient"
	stepTransferAmount    = "transfer_amount"
	stepWagerBet          = "wager_bet"
	stepLoanAmount        = "loan_amount"
)

type Handler struct {
	api    *tgbotapi.BotAPI
	engine Engine

	mu      sync.Mutex
	pending map[int64]*awaiting
}

func NewHandler(api *tgbotapi.BotAPI, engine Engine) *Handler {
	return &Handler{
		api:     api,
		engine:  engine,
		pending: make(map[int64]*awaiting),
	}
}

func (h *Handler) Run(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := h.api.GetUpdatesChan(updateConfig)
	for {
		select {
		case <-ctx.Done():
			h.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		h.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}
	message := update.Message
	userID := message.From.ID
	chatID := message.Chat.ID

	if message.IsCommand() {
		h.handleCommand(ctx, chatID, userID, message)
		return
	}
	if h.consumePending(ctx, chatID, userID, message.Text) {
		return
	}

	switch message.Text {
	case btnBalance:
		h.handleBalance(ctx, chatID, userID)
	case btnHistory:
		h.handleHistory(ctx, chatID, userID)
	case btnLiquidity:
		h.handleLiquidity(ctx, chatID)
	case btnTransfer:
		h.setPending(chatID, &awaiting{step: stepTransferRecipient})
		h.reply(chatID, "Enter the recipient's account number (user id):")
	case btnGift:
		h.handleGift(ctx, chatID, userID)
	case btnWager:
		h.setPending(chatID, &awaiting{step: stepWagerBet})
		h.reply(chatID, "Enter your bet amount:")
	case btnLoans:
		h.handleLoans(ctx, chatID, userID)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		msg := tgbotapi.NewMessage(chatID, "👋 Welcome to the bank bot. Use the buttons below.")
		msg.ReplyMarkup = mainKeyboard()
		h.send(msg)
	case "borrow":
		h.setPending(chatID, &awaiting{step: stepLoanAmount})
		args := strings.TrimSpace(message.CommandArguments())
		if args != "" {
			h.consumePending(ctx, chatID, userID, args)
			return
		}
		h.reply(chatID, "Enter the loan amount:")
	case "repay":
		loanID := strings.TrimSpace(message.CommandArguments())
		if loanID == "" {
			h.reply(chatID, "Usage: /repay <loan id>")
			return
		}
		h.handleRepay(ctx, chatID, userID, loanID)
	}
}

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBalance),
			tgbotapi.NewKeyboardButton(btnHistory),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnLiquidity),
			tgbotapi.NewKeyboardButton(btnTransfer),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnGift),
			tgbotapi.NewKeyboardButton(btnWager),
			tgbotapi.NewKeyboardButton(btnLoans),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func (h *Handler) setPending(chatID int64, state *awaiting) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending[chatID] = state
}

func (h *Handler) takePending(chatID int64) *awaiting {
	h.mu.Lock()
	defer h.mu.Unlock()
	state := h.pending[chatID]
	delete(h.pending, chatID)
	return state
}

func (h *Handler) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handler) send(msg tgbotapi.Chattable) {
	if _, err := h.api.Send(msg); err != nil {
		log.Printf("send error: %v", err)
	}
}
