package workspace

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

var reservedWords = buildReserved(
	// system and management
	"www", "api", "admin", "support", "status", "dashboard", "help", "billing", "account",
	"user", "users", "blog", "forum", "app", "web", "dev", "test", "beta",
	// security and auth
	"auth", "login", "logout", "signup", "signin", "register", "password", "reset", "activate",
	// files and paths
	"images", "img", "assets", "files", "uploads", "static", "media", "pages", "docs", "documentation",
	// company and brand
	"about", "contact", "careers", "press", "privacy", "terms", "tos", "policy",
	// features
	"feed", "search", "home", "shop", "store", "community", "guide", "explore", "discover",
	// technical
	"http", "https", "ftp", "ssh", "git", "oauth", "smtp",
	// geography and language
	"us", "kr", "jp", "en", "ko",
	// social
	"twitter", "facebook", "instagram", "linkedin", "youtube", "github",
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{1,99}$`)

func buildReserved(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsReserved reports whether s may not be used as a workspace name or slug.
func IsReserved(s string) bool {
	_, ok := reservedWords[strings.ToLower(s)]
	return ok
}

// NormalizeName strips spaces and composes the name to NFC.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
}

// NewValidator returns a validator with the "notreserved" and "slug" rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notreserved", func(fl validator.FieldLevel) bool {
		return !IsReserved(fl.Field().String())
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}
