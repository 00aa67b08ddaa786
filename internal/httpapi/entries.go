package httpapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// createEntry handles POST /v1/entries
func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	var in entryRequest
	if !decodeJSON(w, r, &in) {
		observeOp("create", "invalid")
		return
	}
	caller := callerFrom(r.Context())
	saved, err := s.svc.Create(r.Context(), caller, in.Title, in.Message)
	if err != nil {
		s.serviceErr(w, r, "create", err)
		return
	}
	observeOp("create", "ok")
	toJSON(w, http.StatusCreated, toEntryResponse(saved, s.svc.Address(saved.Owner, saved.Title)))
}

// updateEntry handles PUT /v1/entries; only the message changes.
func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request) {
	var in entryRequest
	if !decodeJSON(w, r, &in) {
		observeOp("update", "invalid")
		return
	}
	caller := callerFrom(r.Context())
	saved, err := s.svc.Update(r.Context(), caller, in.Title, in.Message)
	if err != nil {
		s.serviceErr(w, r, "update", err)
		return
	}
	observeOp("update", "ok")
	toJSON(w, http.StatusOK, toEntryResponse(saved, s.svc.Address(saved.Owner, saved.Title)))
}

// deleteEntry handles DELETE /v1/entries?title=
func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("title") {
		observeOp("delete", "invalid")
		badRequest(w, "title is required")
		return
	}
	caller := callerFrom(r.Context())
	if err := s.svc.Delete(r.Context(), caller, q.Get("title")); err != nil {
		s.serviceErr(w, r, "delete", err)
		return
	}
	observeOp("delete", "ok")
	w.WriteHeader(http.StatusNoContent)
}

// getEntry handles GET /v1/entries?owner=&title=
func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	owner, title, ok := ownerTitleQuery(w, r)
	if !ok {
		observeOp("get", "invalid")
		return
	}
	e, err := s.svc.Get(r.Context(), owner, title)
	if err != nil {
		s.serviceErr(w, r, "get", err)
		return
	}
	observeOp("get", "ok")
	toJSON(w, http.StatusOK, toEntryResponse(e, s.svc.Address(owner, title)))
}

// getAddress handles GET /v1/addresses?owner=&title=
func (s *Server) getAddress(w http.ResponseWriter, r *http.Request) {
	owner, title, ok := ownerTitleQuery(w, r)
	if !ok {
		return
	}
	toJSON(w, http.StatusOK, addressResponse{Owner: owner, Title: title, Address: s.svc.Address(owner, title)})
}

// getDeposit handles GET /v1/deposits for the authenticated caller.
func (s *Server) getDeposit(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())
	if caller == uuid.Nil {
		writeErr(w, http.StatusUnauthorized, "unauthenticated", "unauthenticated")
		return
	}
	amt, err := s.deposits.Held(caller)
	if err != nil {
		s.log.Error("deposit lookup failed", "err", err, "owner", caller)
		writeErr(w, http.StatusInternalServerError, "internal error", "internal")
		return
	}
	toJSON(w, http.StatusOK, toDepositResponse(caller, amt))
}

// ownerTitleQuery reads and validates the owner and title query parameters.
func ownerTitleQuery(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	q := r.URL.Query()
	owner, err := uuid.Parse(strings.TrimSpace(q.Get("owner")))
	if err != nil || owner == uuid.Nil {
		badRequest(w, "owner must be a uuid")
		return uuid.Nil, "", false
	}
	if !q.Has("title") {
		badRequest(w, "title is required")
		return uuid.Nil, "", false
	}
	return owner, q.Get("title"), true
}
