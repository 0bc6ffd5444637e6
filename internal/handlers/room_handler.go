package handlers

import (
	"context"
	"net/http"

	"github.com/mroshb/word_game/internal/services"
)

type readyRequest struct {
	Ready bool `json:"ready"`
}

type presenceRequest struct {
	Status string `json:"status"`
}

type letterRequest struct {
	Letter string `json:"letter"`
}

type answersRequest struct {
	Answers map[string]string `json:"answers"`
}

type chatRequest struct {
	Text string `json:"text"`
}

func (h *HandlerManager) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var in services.SettingsInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	id := identity(r)
	room, err := h.Rooms.CreateRoom(r.Context(), id.PlayerID, id.DisplayName, id.AvatarURL, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (h *HandlerManager) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.Rooms.GetRoom(r.Context(), pathRoomID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *HandlerManager) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in services.SettingsInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	room, err := h.Rooms.UpdateSettings(r.Context(), pathRoomID(r), identity(r).PlayerID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *HandlerManager) JoinRoom(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	room, err := h.Rooms.JoinRoom(r.Context(), pathRoomID(r), id.PlayerID, id.DisplayName, id.AvatarURL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *HandlerManager) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.Rooms.LeaveRoom(r.Context(), pathRoomID(r), identity(r).PlayerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *HandlerManager) SetReady(w http.ResponseWriter, r *http.Request) {
	var req readyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	room, err := h.Rooms.SetReady(r.Context(), pathRoomID(r), identity(r).PlayerID, req.Ready)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *HandlerManager) SetPresence(w http.ResponseWriter, r *http.Request) {
	var req presenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Rooms.SetPresence(r.Context(), pathRoomID(r), identity(r).PlayerID, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HandlerManager) StartGame(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Rooms.StartGame)
}

func (h *HandlerManager) SpinLetter(w http.ResponseWriter, r *http.Request) {
	room, err := h.Rooms.SpinLetter(r.Context(), pathRoomID(r), identity(r).PlayerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *HandlerManager) CommitLetter(w http.ResponseWriter, r *http.Request) {
	var req letterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Rooms.CommitLetter(r.Context(), pathRoomID(r), identity(r).PlayerID, req.Letter); err != nil {
		writeError(w, r, err)
		return
	}
	h.GetRoom(w, r)
}

func (h *HandlerManager) SubmitAnswers(w http.ResponseWriter, r *http.Request) {
	playerID := identity(r).PlayerID
	if err := h.answerLimiter.Check(playerID); err != nil {
		writeError(w, r, err)
		return
	}

	var req answersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Rooms.SubmitAnswers(r.Context(), pathRoomID(r), playerID, req.Answers); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HandlerManager) ForceStop(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Rooms.ForceStop)
}

func (h *HandlerManager) NextRound(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Rooms.AdvanceToNextRound)
}

func (h *HandlerManager) ReturnToLobby(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Rooms.ReturnToLobby)
}

func (h *HandlerManager) CloseRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.Rooms.CloseRoom(r.Context(), pathRoomID(r), identity(r).PlayerID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HandlerManager) ListChat(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.Rooms.ListChat(r.Context(), pathRoomID(r), identity(r).PlayerID, limitParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *HandlerManager) SendChat(w http.ResponseWriter, r *http.Request) {
	playerID := identity(r).PlayerID
	if err := h.chatLimiter.Check(playerID); err != nil {
		writeError(w, r, err)
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	msg, err := h.Rooms.SendChat(r.Context(), pathRoomID(r), playerID, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// transition runs a room action and replies with the room as it stands afterwards.
func (h *HandlerManager) transition(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, roomID, callerID string) error) {
	if err := action(r.Context(), pathRoomID(r), identity(r).PlayerID); err != nil {
		writeError(w, r, err)
		return
	}
	h.GetRoom(w, r)
}
