package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}
type countryContextKey struct{}

var (
	LocaleKey  = localeContextKey{}
	CountryKey = countryContextKey{}
)

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// countryLocales maps countries onto a preferred locale when the request
// carries no language preference of its own.
var countryLocales = map[string]string{
	"CN": "zh",
	"JP": "ja",
	"KR": "ko",
	"BR": "pt",
	"ID": "id",
}

// Locale resolves the caller's locale from the X-Locale header, then the
// Accept-Language header, then an optional GeoIP country lookup, and stores
// it on the request context.
func Locale(defaultLocale string, supported []string, lookup CountryLookup) func(http.Handler) http.Handler {
	tags := make([]language.Tag, 0, len(supported)+1)
	tags = append(tags, language.Make(defaultLocale))
	for _, s := range supported {
		tags = append(tags, language.Make(s))
	}
	matcher := language.NewMatcher(tags)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			country := resolveCountry(r, lookup)
			locale := detectLocale(r, matcher, defaultLocale, country)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			if country != "" {
				ctx = context.WithValue(ctx, CountryKey, strings.ToUpper(country))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, matcher language.Matcher, fallback, country string) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		return baseLocale(v, fallback)
	}
	if al := r.Header.Get("Accept-Language"); al != "" {
		if prefs, _, err := language.ParseAcceptLanguage(al); err == nil && len(prefs) > 0 {
			tag, _, _ := matcher.Match(prefs...)
			if base, conf := tag.Base(); conf != language.No {
				return base.String()
			}
		}
	}
	if v, ok := countryLocales[strings.ToUpper(country)]; ok {
		return v
	}
	return fallback
}

func baseLocale(v, fallback string) string {
	tag := language.Make(v)
	base, conf := tag.Base()
	if conf == language.No {
		return fallback
	}
	return base.String()
}

func resolveCountry(r *http.Request, lookup CountryLookup) string {
	if lookup == nil {
		return ""
	}
	ip := clientIP(r)
	if ip == "" {
		return ""
	}
	country, err := lookup(ip)
	if err != nil {
		return ""
	}
	return country
}

func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			if ip := strings.TrimSpace(part); net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && net.ParseIP(host) != nil {
		return host
	}
	if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}
	return ""
}

// LocaleFromContext returns the locale stored by the middleware, or "".
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return ""
}
