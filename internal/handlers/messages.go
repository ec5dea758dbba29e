package handlers

import (
	apperrors "github.com/avelor/levelbot/pkg/errors"
)

var (
	errNeedManageServer = apperrors.New(apperrors.ErrCodeForbidden, "Manage Server permission required")

	// ErrSessionExpired marks an interactive flow abandoned past its
	// deadline. The gateway reports it when pruning.
	ErrSessionExpired = apperrors.New(apperrors.ErrCodeTimeout, "interactive setup timed out")
)

// UserMessage translates a typed error into the chat reply for it.
// Unknown and internal errors get a generic reply; details stay in the
// logs.
func UserMessage(err error) string {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		return "❌ Something went wrong, try again later."
	}

	switch appErr.Code {
	case apperrors.ErrCodeForbidden:
		return "❌ You need the **Manage Server** permission to use this command."
	case apperrors.ErrCodeTimeout:
		return "⌛ Setup timed out, nothing was changed. Run the command again when ready."
	case apperrors.ErrCodeValidation, apperrors.ErrCodeNotFound:
		return "❌ " + appErr.Message
	case apperrors.ErrCodeGrantFailed:
		return "⚠️ " + appErr.Message
	default:
		return "❌ Something went wrong, try again later."
	}
}
