package httpmw

import "net/http"

// applySecurityHeaders sets the response headers relevant to a
// machine-to-machine JSON POST endpoint. The webhook intake is never
// rendered by a browser, so the clickjacking/CSP/Permissions-Policy/
// XSS-protection headers a browser-facing surface would need are dead
// weight here; only the headers that matter for a non-HTML API are kept.
func applySecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Del("X-Powered-By")

		next.ServeHTTP(w, r)
	})
}
