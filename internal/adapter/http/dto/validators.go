package dto

import (
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.:/]+$`)
	bolt11Re     = regexp.MustCompile(`^(?i)ln(bc|tb|tbs|bcrt)[0-9a-z]+$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("safe_url", validateSafeURL)
		_ = v.RegisterValidation("ecash_token", validateEcashToken)
		_ = v.RegisterValidation("bolt11", validateBolt11)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, dot, colon and slash,
// which covers provider model names such as "openai/gpt-4o".
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateSafeURL accepts only http/https URLs.
func validateSafeURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true // optional field; use "required" tag to enforce presence
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// validateEcashToken accepts serialized V3 and V4 tokens.
func validateEcashToken(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return len(s) > 6 && (strings.HasPrefix(s, "cashuA") || strings.HasPrefix(s, "cashuB"))
}

func validateBolt11(fl validator.FieldLevel) bool {
	s := strings.TrimPrefix(strings.ToLower(fl.Field().String()), "lightning:")
	return bolt11Re.MatchString(s)
}

// SanitizeStruct trims every exported string field (including *string) of a
// struct pointer. Fields tagged `sanitize:"compact"` additionally lose all
// inner whitespace, so tokens and invoices survive line-wrapped pastes.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		compact := rt.Field(i).Tag.Get("sanitize") == "compact"
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String(), compact))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String(), compact))
			}
		}
	}
}

func sanitize(s string, compact bool) string {
	if !compact {
		return strings.TrimSpace(s)
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
