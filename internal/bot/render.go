package bot

import (
	"errors"

	"bankbot/internal/money"
	"bankbot/internal/services"
	"bankbot/internal/store"
)

func kindLabel(kind string) string {
	switch kind {
	case store.KindTransferOut:
		return "transfer sent"
	case store.KindTransferIn:
		return "transfer received"
	case store.KindDailyGift:
		return "daily gift"
	case store.KindWagerWin:
		return "wager win"
	case store.KindWagerLoss:
		return "wager loss"
	case store.KindLoanIssue:
		return "loan"
	case store.KindLoanRepayment:
		return "loan repayment"
	default:
		return kind
	}
}

func signedAmount(amountMinor int64) string {
	if amountMinor >= 0 {
		return "+" + money.FormatMinor(amountMinor)
	}
	return money.FormatMinor(amountMinor)
}

// errorText maps engine errors to chat messages. Storage errors stay vague on
// purpose; the caller retries the whole action.
func errorText(err error) string {
	switch {
	case errors.Is(err, services.ErrInsufficientFunds):
		return "🚫 Not enough funds."
	case errors.Is(err, services.ErrInsufficientPoolFunds):
		return "🚫 The pool cannot cover this right now. Try later."
	case errors.Is(err, services.ErrInsufficientCollateral):
		return "🚫 Your balance is too low to secure this loan."
	case errors.Is(err, services.ErrInvalidBet):
		return "🚫 Bet is outside the allowed range."
	case errors.Is(err, services.ErrInvalidAmount):
		return "🚫 Invalid amount."
	case errors.Is(err, services.ErrSelfTransfer):
		return "🚫 You can't transfer to yourself."
	case errors.Is(err, services.ErrNotFound):
		return "🚫 Not found."
	case errors.Is(err, services.ErrForbidden):
		return "🚫 That's not yours to act on."
	case errors.Is(err, services.ErrAlreadyFinal):
		return "⚠️ This request is already settled, cancelled or expired."
	case errors.Is(err, services.ErrCooldownActive):
		return "⏳ Already claimed. Come back later."
	default:
		return "⚠️ Something went wrong. Please try again."
	}
}
