package http

import (
	"net/http"

	applog "financas/internal/log"
)

type chatRequest struct {
	Msg string `json:"msg"`
}

type chatResponse struct {
	Resposta string `json:"resposta"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, ledgerBodyLimit, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	reply, err := s.svc.Chat.Reply(r.Context(), sanitizeInput(req.Msg))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Chat answered", applog.FieldOperation, applog.OpChat)
	writeJSON(w, http.StatusOK, chatResponse{Resposta: reply})
}
