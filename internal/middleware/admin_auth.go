package middleware

import "net/http"

// AdminHeader carries the static shared secret on administrator routes.
const AdminHeader = "X-Admin-API-Key"

// AdminAuth rejects requests whose admin header does not match the
// configured shared secret.
func AdminAuth(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" || r.Header.Get(AdminHeader) != adminKey {
				http.Error(w, `{"error":"could not validate credentials"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
