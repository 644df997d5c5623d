package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/dmitrijs2005/tgotp/internal/common"
	"github.com/dmitrijs2005/tgotp/internal/server/models"
	"github.com/dmitrijs2005/tgotp/internal/server/services"
)

const qrSize = 256

func (s *HTTPServer) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.InitData == "" {
		writeError(w, http.StatusBadRequest, "Missing init data")
		return
	}

	user, err := s.users.Authenticate(r.Context(), req.InitData)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.PIN != nil {
		if !s.allow(r.Context(), s.pins, user.ID) {
			s.fail(w, r, common.ErrRateLimited)
			return
		}
		if err := s.users.VerifyPIN(r.Context(), user, *req.PIN); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, authResponse{Success: true, User: toUserResponse(user)})
}

func (s *HTTPServer) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	listing, err := s.accounts.List(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(listing))
}

func (s *HTTPServer) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	userID := userFrom(r.Context()).ID
	var a *models.Account
	var err error
	if strings.TrimSpace(req.URI) != "" {
		a, err = s.accounts.CreateFromURI(r.Context(), userID, req.URI, req.Icon, req.Color)
	} else {
		a, err = s.accounts.Create(r.Context(), userID, req.input())
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{Success: true, ID: a.ID})
}

func (s *HTTPServer) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := s.accountID(w, r)
	if !ok {
		return
	}
	var req accountRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.accounts.Update(r.Context(), userFrom(r.Context()).ID, id, req.input()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

func (s *HTTPServer) handleMoveAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := s.accountID(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Position == nil {
		writeError(w, http.StatusBadRequest, "Missing position")
		return
	}
	if err := s.accounts.Reorder(r.Context(), userFrom(r.Context()).ID, id, *req.Position); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

func (s *HTTPServer) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := s.accountID(w, r)
	if !ok {
		return
	}
	if err := s.accounts.Delete(r.Context(), userFrom(r.Context()).ID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

func (s *HTTPServer) handleDeleteAllAccounts(w http.ResponseWriter, r *http.Request) {
	n, err := s.accounts.DeleteAll(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Success: true, Count: n})
}

func (s *HTTPServer) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid account id")
		return 0, false
	}
	return id, true
}

func (s *HTTPServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userUpdateRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	userID := userFrom(r.Context()).ID
	var err error
	switch req.Action {
	case "set_pin":
		err = s.users.SetPIN(r.Context(), userID, req.PIN)
	case "toggle_keep_unlocked":
		err = s.users.SetKeepUnlocked(r.Context(), userID, req.Enabled)
	default:
		writeError(w, http.StatusBadRequest, "Unknown action")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	t, err := s.transfers.Issue(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{
		Success:   true,
		Token:     t.Token,
		Link:      s.transfers.DeepLink(t.Token),
		ExpiresAt: t.ExpiresAt,
	})
}

func (s *HTTPServer) handleExportQR(w http.ResponseWriter, r *http.Request) {
	link, err := s.transfers.OwnedLink(r.Context(), userFrom(r.Context()).ID, chi.URLParam(r, "token"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		s.fail(w, r, fmt.Errorf("error rendering qr: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *HTTPServer) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "Missing token")
		return
	}
	token, err := services.ParseTransferToken(req.Token)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	n, err := s.transfers.Import(r.Context(), token, userFrom(r.Context()).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Success: true, Count: int64(n)})
}

