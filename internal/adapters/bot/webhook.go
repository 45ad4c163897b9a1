package bot

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	httpinfra "vitality-score/internal/infra/http"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Webhook принимает апдейты от Telegram. Пустой secret отключает проверку заголовка.
func (h *Handler) Webhook(secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(secretTokenHeader)), []byte(secret)) != 1 {
			httpinfra.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid webhook secret")
			return
		}
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			httpinfra.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid update payload")
			return
		}
		h.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	}
}
