package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"grantly.org/internal/account"
	"grantly.org/internal/apperr"
	"grantly.org/internal/auth"
)

type createAccountRequest struct {
	Email *string `json:"email"`
}

func (a *API) handleAccountsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createAccount(w, r)
	case http.MethodGet:
		a.listAccounts(w, r)
	default:
		methodNotAllowed(w, r, "GET, POST")
	}
}

func (a *API) createAccount(w http.ResponseWriter, r *http.Request) {
	authz := auth.FromContext(r.Context())
	if err := authz.Assert(); err != nil {
		writeError(w, r, err)
		return
	}

	// Shape validation only; anything business-specific belongs to the
	// service. Unknown fields and non-string email are decode errors.
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, apperr.BadRequest(apperr.Issue{Detail: err.Error()}))
		return
	}
	if req.Email == nil || strings.TrimSpace(*req.Email) == "" {
		writeError(w, r, apperr.BadRequest(apperr.Issue{Field: "email", Detail: "email is required"}))
		return
	}

	acc, err := a.accounts.Create(r.Context(), authz, account.Input{Email: *req.Email})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/accounts/"+acc.ID)
	writeJSON(w, http.StatusCreated, acc)
}

func (a *API) listAccounts(w http.ResponseWriter, r *http.Request) {
	authz := auth.FromContext(r.Context())
	if err := authz.Assert(); err != nil {
		writeError(w, r, err)
		return
	}

	params, err := parseQueryParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := a.accounts.Find(r.Context(), authz, params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func parseQueryParams(r *http.Request) (account.QueryParams, error) {
	var params account.QueryParams
	q := r.URL.Query()

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return params, apperr.BadRequest(apperr.Issue{Field: "limit", Detail: "limit must be a positive integer"})
		}
		params.Limit = n
	}

	if raw := strings.TrimSpace(q.Get("orderBy")); raw != "" {
		switch raw {
		case account.OrderByCreatedAt, account.OrderByCreatedAtDesc, account.OrderByCreatedAtAsc:
			params.OrderBy = raw
		default:
			return params, apperr.BadRequest(apperr.Issue{Field: "orderBy", Detail: "orderBy must be one of createdAt, createdAt:desc, createdAt:asc"})
		}
	}

	if raw := strings.TrimSpace(q.Get("createdBefore")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, apperr.BadRequest(apperr.Issue{Field: "createdBefore", Detail: "createdBefore must be an RFC3339 timestamp"})
		}
		params.CreatedBefore = &ts
	}

	if raw := strings.TrimSpace(q.Get("total")); raw != "" {
		total, err := strconv.ParseBool(raw)
		if err != nil {
			return params, apperr.BadRequest(apperr.Issue{Field: "total", Detail: "total must be a boolean"})
		}
		params.Total = total
	}

	return params, nil
}
