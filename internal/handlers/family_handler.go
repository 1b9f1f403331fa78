package handlers

import (
	"net/http"

	"eduportal/internal/models"
	"eduportal/internal/service"
)

// FamilyHandler serves the family member API
type FamilyHandler struct {
	familyService *service.FamilyService
}

func NewFamilyHandler(familyService *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{familyService: familyService}
}

// List returns all members, optionally filtered by ?relationship=
func (h *FamilyHandler) List(w http.ResponseWriter, r *http.Request) {
	members := h.familyService.ListMembers(r.URL.Query().Get("relationship"))
	respondJSON(w, http.StatusOK, map[string]any{
		"members": members,
		"count":   len(members),
	})
}

func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	member, err := h.familyService.GetMember(r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, "get member failed", err)
		return
	}
	respondJSON(w, http.StatusOK, member)
}

func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.FamilyMemberInput
	if !decodeJSON(w, r, &in) {
		return
	}
	member, err := h.familyService.AddMember(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, "add member failed", err)
		return
	}
	respondJSON(w, http.StatusCreated, member)
}

func (h *FamilyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.FamilyMemberPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	member, err := h.familyService.UpdateMember(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		respondWithServiceError(w, "update member failed", err)
		return
	}
	respondJSON(w, http.StatusOK, member)
}

func (h *FamilyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.familyService.DeleteMember(r.Context(), r.PathValue("id")); err != nil {
		respondWithServiceError(w, "delete member failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
