package cookies

import (
	"net/http"
	"net/url"
	"strings"

	"empires-server/internal/shared/config"
)

const AuthCookieName = "auth_token"

func SetAuthCookie(w http.ResponseWriter, token string) {
	cfg := config.GlobalConfig

	cookie := createAuthCookie(cfg)
	cookie.Value = token
	if cfg != nil {
		cookie.MaxAge = int(cfg.Auth.TokenExpiration.Seconds())
	}

	http.SetCookie(w, cookie)
}

func ClearAuthCookie(w http.ResponseWriter) {
	cookie := createAuthCookie(config.GlobalConfig)
	cookie.Value = ""
	cookie.MaxAge = -1

	http.SetCookie(w, cookie)
}

func createAuthCookie(cfg *config.Config) *http.Cookie {
	cookie := &http.Cookie{
		Name:     AuthCookieName,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	// Without loaded config the cookie stays host-only and lax.
	if cfg == nil {
		return cookie
	}

	cookie.Domain = extractDomain(cfg.Frontend.URL)
	cookie.Secure = cfg.Auth.CookieSecure
	cookie.SameSite = parseSameSite(cfg.Auth.CookieSameSite)
	return cookie
}

func extractDomain(frontendURL string) string {
	parsedURL, err := url.Parse(frontendURL)
	if err != nil || parsedURL.Host == "" {
		return ""
	}

	host := strings.Split(parsedURL.Host, ":")[0]
	if host == "localhost" || host == "127.0.0.1" {
		return ""
	}

	return host
}

func parseSameSite(sameSiteStr string) http.SameSite {
	switch sameSiteStr {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
