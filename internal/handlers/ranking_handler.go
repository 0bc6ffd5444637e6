package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mroshb/word_game/internal/catalog"
)

func (h *HandlerManager) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Rankings.GetOrCreate(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *HandlerManager) ClaimMission(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Rankings.ClaimMission(r.Context(), identity(r), mux.Vars(r)["missionId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *HandlerManager) History(w http.ResponseWriter, r *http.Request) {
	results, err := h.Rankings.History(r.Context(), identity(r).PlayerID, limitParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *HandlerManager) Transactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Rankings.Transactions(r.Context(), identity(r).PlayerID, limitParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *HandlerManager) Leaderboard(w http.ResponseWriter, r *http.Request) {
	top, err := h.Rankings.Leaderboard(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

// Catalog lists every language with its alphabet and categories.
func (h *HandlerManager) Catalog(w http.ResponseWriter, r *http.Request) {
	languages := make([]catalog.Language, 0)
	for _, code := range catalog.Supported() {
		lang, _ := catalog.Lookup(code)
		languages = append(languages, lang)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"defaultLanguage": h.Config.DefaultLanguage,
		"languages":       languages,
	})
}
