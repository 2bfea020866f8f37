package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"drop-storefront/internal/content"
	"drop-storefront/internal/domain"
	"drop-storefront/internal/observability"
	"drop-storefront/internal/storefront"
	"drop-storefront/internal/wallet"
)

// pageData is the template model for the drop page.
type pageData struct {
	Collection *domain.Collection
	View       storefront.View
	Refresh    bool
}

// handlePage loads the collection, mounts the session's controller and renders the page.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")
	session := SessionID(ctx)

	collection, err := s.content.FetchCollection(ctx, slug)
	if err != nil {
		if !errors.Is(err, content.ErrNotFound) {
			s.logger.Warn("collection fetch failed", zap.String("slug", slug), zap.Error(err))
		}
		s.renderNotFound(w)
		return
	}

	ctrl, err := s.registry.Controller(session, collection)
	if err != nil {
		s.logger.Error("drop unavailable", zap.String("slug", slug), zap.String("address", collection.Address), zap.Error(err))
		s.renderError(w, http.StatusBadGateway)
		return
	}
	s.syncAddress(session, ctrl)

	if err := ctrl.Mount(ctx); err != nil {
		s.logger.Warn("mount incomplete", zap.String("slug", slug), zap.Error(err))
	}

	observability.RecordPageView(slug)
	address, _ := s.wallet.CurrentAddress(session)
	s.recorder.Event(ctx, domain.EventPageView, slug, address, "")

	view := ctrl.View()
	s.render(w, http.StatusOK, "page.html", pageData{
		Collection: collection,
		View:       view,
		Refresh:    view.Phase == storefront.PhaseMinting,
	})
}

// handleState returns the controller view as JSON.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	session := SessionID(r.Context())
	ctrl, ok := s.registry.Lookup(session, chi.URLParam(r, "slug"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	s.syncAddress(session, ctrl)
	writeJSON(w, http.StatusOK, ctrl.View())
}

// handleMint starts a claim under the server's base context and redirects
// back to the page, which refreshes until the claim settles.
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	session := SessionID(r.Context())
	slug := chi.URLParam(r, "slug")
	ctrl, ok := s.registry.Lookup(session, slug)
	if !ok {
		s.redirectToPage(w, r, slug)
		return
	}
	s.syncAddress(session, ctrl)

	done, err := ctrl.StartMint(s.baseCtx)
	if err != nil {
		s.logger.Info("mint rejected by guard", zap.String("slug", slug), zap.Error(err))
		s.redirectToPage(w, r, slug)
		return
	}

	s.mints.Add(1)
	go func() {
		defer s.mints.Done()
		<-done
	}()
	s.redirectToPage(w, r, slug)
}

func (s *Server) handleCloseModal(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if ctrl, ok := s.registry.Lookup(SessionID(r.Context()), slug); ok {
		ctrl.CloseModal()
	}
	s.redirectToPage(w, r, slug)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if ctrl, ok := s.registry.Lookup(SessionID(r.Context()), slug); ok {
		ctrl.DismissNotification(chi.URLParam(r, "id"))
	}
	s.redirectToPage(w, r, slug)
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	ch, err := s.wallet.Challenge(SessionID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

type connectRequest struct {
	wallet.Proof
	Slug string `json:"slug"`
}

type connectResponse struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
}

// handleConnect binds a verified wallet. A failed proof leaves the address
// unset and is not reported as an error to the page.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := SessionID(ctx)

	var req connectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request"})
		return
	}

	address, err := s.wallet.Connect(ctx, session, req.Proof)
	if err != nil {
		writeJSON(w, http.StatusOK, connectResponse{Connected: false})
		return
	}
	for _, ctrl := range s.registry.SessionControllers(session) {
		ctrl.SetAddress(address)
	}
	s.recorder.Event(ctx, domain.EventWalletConnect, req.Slug, address, "")
	writeJSON(w, http.StatusOK, connectResponse{Connected: true, Address: address})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := SessionID(ctx)
	address, _ := s.wallet.CurrentAddress(session)

	s.wallet.Disconnect(session)
	for _, ctrl := range s.registry.SessionControllers(session) {
		ctrl.SetAddress("")
	}
	if address != "" {
		s.recorder.Event(ctx, domain.EventWalletDisconnect, r.URL.Query().Get("slug"), address, "")
	}
	writeJSON(w, http.StatusOK, connectResponse{Connected: false})
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status   string         `json:"status"`
	Uptime   string         `json:"uptime"`
	Started  time.Time      `json:"started"`
	Sessions int            `json:"sessions"`
	Extra    map[string]any `json:"extra,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:   "running",
		Uptime:   time.Since(s.started).Truncate(time.Second).String(),
		Started:  s.started,
		Sessions: s.registry.Sessions(),
	}
	if s.status != nil {
		resp.Extra = s.status()
	}
	writeJSON(w, http.StatusOK, resp)
}

// syncAddress copies the session's wallet address into ctrl.
func (s *Server) syncAddress(session string, ctrl *storefront.Controller) {
	address, _ := s.wallet.CurrentAddress(session)
	ctrl.SetAddress(address)
}

func (s *Server) redirectToPage(w http.ResponseWriter, r *http.Request, slug string) {
	http.Redirect(w, r, "/nft/"+slug, http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("render template", zap.String("template", name), zap.Error(err))
	}
}

func (s *Server) renderNotFound(w http.ResponseWriter) {
	s.renderError(w, http.StatusNotFound)
}

func (s *Server) renderError(w http.ResponseWriter, status int) {
	s.render(w, status, "error.html", map[string]any{
		"Status": status,
		"Text":   http.StatusText(status),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
