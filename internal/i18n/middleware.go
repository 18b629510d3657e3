package i18n

import "net/http"

// Middleware injects a request-scoped localizer into every request. The lang
// query parameter wins, then the Accept-Language header, then the server
// default.
func Middleware(defaultLang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			langs := []string{}
			if q := r.URL.Query().Get("lang"); q != "" {
				langs = append(langs, q)
			}
			if h := r.Header.Get("Accept-Language"); h != "" {
				langs = append(langs, h)
			}
			langs = append(langs, defaultLang)
			ctx := WithLocalizer(r.Context(), NewLocalizer(langs...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
