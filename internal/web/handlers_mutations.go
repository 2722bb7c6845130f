package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/console/internal/core"
	"github.com/go-chi/chi/v5"
)

// decodeJSON reads a JSON body of at most MaxBodySize bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

// handleCreateInvitation invites an email address to an organization.
func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	var params core.CreateInvitationParams
	if err := decodeJSON(w, r, &params); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	inv, err := s.service.CreateInvitation(ctx, params)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusCreated, inv)
}

// handleRevokeInvitation revokes a pending invitation.
func (s *Server) handleRevokeInvitation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx := WithRequestMetadata(r.Context(), r)
	inv, err := s.service.RevokeInvitation(ctx, id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, inv)
}

// handleUpdateOrganizationSettings replaces an organization's settings.
func (s *Server) handleUpdateOrganizationSettings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var settings core.OrganizationSettings
	if err := decodeJSON(w, r, &settings); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	org, err := s.service.UpdateOrganizationSettings(ctx, id, settings)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, org)
}
