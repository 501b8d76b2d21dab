package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"bankbot/internal/money"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) handleBalance(ctx context.Context, chatID, userID int64) {
	balance, err := h.engine.Balance(ctx, userID)
	if err != nil {
		h.reply(chatID, errorText(err))
		return
	}
	h.reply(chatID, fmt.Sprintf("💰 Your balance: %s", money.FormatMinor(balance)))
}

func (h *Handler) handleHistory(ctx context.Context, chatID, userID int64) {
	history, err := h.engine.History(ctx, userID)
	if err != nil {
		h.reply(chatID, errorText(err))
		return
	}
	if len(history) == 0 {
		h.reply(chatID, "📜 No transactions yet.")
		return
	}
	// Newest first, most recent page only.
	const pageSize = 10
	var b strings.Builder
	b.WriteString("📜 Recent transactions:\n")
	shown := 0
	for i := len(history) - 1; i >= 0 && shown < pageSize; i-- {
		entry := history[i]
		b.WriteString(fmt.Sprintf("%s  %s  %s\n",
			entry.CreatedAt.Format("02.01 15:04"),
			kindLabel(entry.Kind),
			signedAmount(entry.AmountMinor),
		))
		shown++
	}
	h.reply(chatID, b.String())
}

func (h *Handler) handleLiquidity(ctx context.Context, chatID int64) {
	stats, err := h.engine.PoolStats(ctx)
	if err != nil {
		h.reply(chatID, errorText(err))
		return
	}
	h.reply(chatID, fmt.Sprintf(
		"🏦 Pool liquidity: %s\n👥 Total user balances: %s\n📈 Last hour: %+.2f%%",
		money.FormatMinor(stats.LiquidityMinor),
		money.FormatMinor(stats.TotalUserBalanceMinor),
		stats.HourlyChangePercent,
	))
}

func (h *Handler) handleGift(ctx context.Context, chatID, userID int64) {
	result, err := h.engine.ClaimGift(ctx, userID)
	if err != nil {
		h.reply(chatID, errorText(err))
		return
	}
	h.reply(chatID, fmt.Sprintf("🎁 You received %s!\nBalance: %s",
		money.FormatMinor(result.AmountMinor), money.FormatMinor(result.BalanceMinor)))
}

func (h *Handler) handleLoans(ctx context.Context, chatID, userID int64) {
	loans, err := h.engine.OutstandingLoans(ctx, userID)
	if err != nil {
		h.reply(chatID, errorText(err))
		return
	}
	if len(loans) == 0 {
		h.reply(chatID, "💳 No outstanding loans. Use /borrow <amount> to take one.")
		return
	}
	var b strings.Builder
	b.WriteString("💳 Outstanding loans:\n")
	for _, loan := range loans {
		b.WriteString(fmt.Sprintf("%s\n  principal %s, due %s\n  repay with /repay %s\n",
			loan.IssuedAt.Format("02.01.2006"),
			money.FormatMinor(loan.PrincipalMinor),
			money.FormatMinor(loan.TotalDueMinor),
			loan.ID,
		))
	}
	h.reply(chatID, b.String())
}

func (h *Handler) handleRepay(ctx context.Context, chatID, userID int64, loanID string) {
	result, err := h.engine.RepayLoan(ctx, loanID, userID)
	if err != nil {
		h.reply(chatID, errorText(err))
		return
	}
	h.reply(chatID, fmt.Sprintf("✅ Loan repaid: %s\nBalance: %s",
		money.FormatMinor(result.PaidMinor), money.FormatMinor(result.BalanceMinor)))
}

// consumePending feeds free-text input to whichever multi-step flow the chat
// is in. Returns false when no flow is waiting so the caller can treat the
// text as a button press.
func (h *Handler) consumePending(ctx context.Context, chatID, userID int64, text string) bool {
	state := h.takePending(chatID)
	if state == nil {
		return false
	}
	switch state.step {
	case stepTransferRecipient:
		recipientID, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil || recipientID <= 0 {
			h.reply(chatID, "That doesn't look like an account number. Try again from the menu.")
			return true
		}
		h.setPending(chatID, &awaiting{step: stepTransferAmount, recipientID: recipientID})
		h.reply(chatID, "Enter the amount to send:")
	case stepTransferAmount:
		amountMinor, err := money.ParseMinor(strings.TrimSpace(text))
		if err != nil {
			h.reply(chatID, "Invalid amount. Try again from the menu.")
			return true
		}
		h.proposeTransfer(ctx, chatID, userID, state.recipientID, amountMinor)
	case stepWagerBet:
		betMinor, err := money.ParseMinor(strings.TrimSpace(text))
		if err != nil {
			h.reply(chatID, "Invalid bet. Try again from the menu.")
			return true
		}
		h.playWager(ctx, chatID, userID, betMinor)
	case stepLoanAmount:
		amountMinor, err := money.ParseMinor(strings.TrimSpace(text))
		if err != nil {
			h.reply(chatID, "Invalid amount. Use /borrow again.")
			return true
		}
		h.issueLoan(ctx, chatID, userID, amountMinor)
	}
	return true
}

func (h *Handler) proposeTransfer(ctx context.Context, chatID, senderID, recipientID, amountMinor int64) {
	proposed, err := h.engine.ProposeTransfer(ctx, senderID, recipientID, amountMinor)
	if err != nil {
		h.reply(chatID, errorText(err))
		return
	}
	text := fmt.Sprintf(
		"💸 Transfer %s to account %d\nFee: %s\nTotal debit: %s\n\nConfirm before %s.",
		money.FormatMinor(proposed.AmountMinor),
		proposed.RecipientID,
		money.FormatMinor(proposed.FeeMinor),
		money.FormatMinor(proposed.TotalMinor),
		proposed.ExpiresAt.Format("15:04:05"),
	)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", "transfer_confirm:"+proposed.ID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "transfer_cancel:"+proposed.ID),
		),
	)
	h.send(msg)
}

func (h *Handler) playWager(ctx context.Context, chatID, userID, betMinor int64) {
	result, err := h.engine.PlayWager(ctx, userID, betMinor)
	if err != nil {
		h.reply(chatID, errorText(err))
		return
	}
	if result.Won {
		h.reply(chatID, fmt.Sprintf("🎰 You won! Payout: %s\nBalance: %s",
			money.FormatMinor(result.PayoutMinor), money.FormatMinor(result.BalanceMinor)))
		return
	}
	h.reply(chatID, fmt.Sprintf("🎰 You lost %s.\nBalance: %s",
		money.FormatMinor(result.BetMinor), money.FormatMinor(result.BalanceMinor)))
}

func (h *Handler) issueLoan(ctx context.Context, chatID, userID, amountMinor int64) {
	result, err := h.engine.IssueLoan(ctx, userID, amountMinor)
	if err != nil {
		h.reply(chatID, errorText(err))
		return
	}
	h.reply(chatID, fmt.Sprintf(
		"💳 Loan issued: %s\nInterest: %s\nTotal due: %s\nBalance: %s\n\nRepay with /repay %s",
		money.FormatMinor(result.Loan.PrincipalMinor),
		money.FormatMinor(result.Loan.InterestMinor),
		money.FormatMinor(result.Loan.TotalDueMinor),
		money.FormatMinor(result.BalanceMinor),
		result.Loan.ID,
	))
}

func (h *Handler) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil || callback.From == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID

	action, transferID, ok := strings.Cut(callback.Data, ":")
	if !ok {
		return
	}

	var text string
	switch action {
	case "transfer_confirm":
		result, err := h.engine.ConfirmTransfer(ctx, transferID, userID)
		if err != nil {
			text = errorText(err)
		} else {
			text = fmt.Sprintf("✅ Sent %s to account %d (fee %s).\nBalance: %s",
				money.FormatMinor(result.AmountMinor),
				result.RecipientID,
				money.FormatMinor(result.FeeMinor),
				money.FormatMinor(result.SenderBalanceMinor))
		}
	case "transfer_cancel":
		_, err := h.engine.CancelTransfer(ctx, transferID, userID)
		if err != nil {
			text = errorText(err)
		} else {
			text = "❌ Transfer cancelled."
		}
	default:
		return
	}

	// Swap the inline keyboard away so the buttons can't be pressed twice.
	edit := tgbotapi.NewEditMessageText(chatID, callback.Message.MessageID, text)
	h.send(edit)
	if _, err := h.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		log.Printf("callback ack error: %v", err)
	}
}
