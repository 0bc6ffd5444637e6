package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/mroshb/word_game/internal/security"
	"github.com/mroshb/word_game/pkg/errors"
)

type guestTokenRequest struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

type guestTokenResponse struct {
	Token    string            `json:"token"`
	Identity security.Identity `json:"identity"`
}

// GuestToken signs an identity for a guest. A missing player id gets a fresh one.
func (h *HandlerManager) GuestToken(w http.ResponseWriter, r *http.Request) {
	var req guestTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if req.PlayerID == "" {
		req.PlayerID = uuid.NewString()
	}
	if !security.ValidatePlayerID(req.PlayerID) {
		writeError(w, r, errors.New(errors.ErrCodeValidation, "invalid player id"))
		return
	}

	id := security.Identity{
		PlayerID:    req.PlayerID,
		DisplayName: security.SanitizeText(req.DisplayName, 32),
		AvatarURL:   security.SanitizeText(req.AvatarURL, 500),
	}
	token, err := security.GenerateJWT(id, h.Config.JWTSecret, guestTokenTTL)
	if err != nil {
		writeError(w, r, errors.Wrap(err, errors.ErrCodeInternalError, "failed to sign token"))
		return
	}

	writeJSON(w, http.StatusCreated, guestTokenResponse{Token: token, Identity: id})
}
