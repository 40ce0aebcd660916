package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nowlisten/nowlisten/internal/shared"
)

// Bind decodes the JSON body into target and validates it. Failures are shared.ErrInvalid.
func Bind(r *http.Request, v *validator.Validate, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return shared.Invalid("decode body: "+err.Error(), "Malformed request body")
	}
	if err := v.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			msg := strings.Join(fields, "; ")
			return shared.Invalid(msg, msg)
		}
		return shared.Invalid(err.Error(), "Invalid request")
	}
	return nil
}

// Principal returns the authenticated caller or writes 401.
func Principal(w http.ResponseWriter, r *http.Request) (shared.Principal, bool) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	}
	return p, ok
}
