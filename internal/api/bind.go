package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// errBind marks a request body that could not be decoded or validated.
var errBind = errors.New("invalid request body")

type validatorSvc struct {
	validate   *validator.Validate
	translator ut.Translator
}

var getValidator = sync.OnceValue(func() *validatorSvc {
	enLoc := en.New()
	uni := ut.New(enLoc, enLoc)
	trans, _ := uni.GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())

	// Messages name fields by their json tag.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "-" || tag == "" {
			return fld.Name
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		return tag
	})

	_ = en_translations.RegisterDefaultTranslations(v, trans)

	_ = v.RegisterTranslation("datetime", trans,
		func(ut ut.Translator) error {
			return ut.Add("datetime", "{0} must be a date in YYYY-MM-DD format", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("datetime", fe.Field())
			return msg
		},
	)

	return &validatorSvc{validate: v, translator: trans}
})

// decodeJSON reads one JSON object into T and validates it. Unknown fields,
// trailing data and empty bodies are rejected.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var dst T

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dst, fmt.Errorf("%w: empty body", errBind)
		}
		return dst, fmt.Errorf("%w: invalid JSON: %v", errBind, err)
	}
	if dec.More() {
		return dst, fmt.Errorf("%w: unexpected trailing data", errBind)
	}

	if err := validateStruct(dst); err != nil {
		return dst, err
	}
	return dst, nil
}

// validateStruct runs the validator and returns the first field message.
func validateStruct(v any) error {
	svc := getValidator()
	err := svc.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s", errBind, verrs[0].Translate(svc.translator))
	}
	return fmt.Errorf("%w: %v", errBind, err)
}

// bindMessage strips the sentinel prefix for client-facing messages.
func bindMessage(err error) string {
	return strings.TrimPrefix(err.Error(), errBind.Error()+": ")
}
