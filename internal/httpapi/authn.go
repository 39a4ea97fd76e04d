package httpapi

import (
	"net/http"

	"grantly.org/internal/auth"
)

var publicPaths = map[string]struct{}{
	"/healthz":     {},
	"/readyz":      {},
	"/metrics":     {},
	"/api/v1/info": {},
}

// withAuth derives the request's authorization context and attaches it.
// An absent credential still passes through — as an anonymous Auth — and
// each handler asserts what it requires. Only a malformed credential is
// rejected here.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := publicPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		authz, err := a.authSvc.Authorize(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authz)))
	})
}
