package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"taskManager/internal/handlers/dto"
	"taskManager/internal/models/task"
	"taskManager/internal/service"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// isJSONContentType accepts a missing header, application/json and any
// application/*+json subtype.
func isJSONContentType(r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return true
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == "application/json" ||
		(strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json"))
}

// decodeAndValidate reads a single JSON value into dst and runs the struct
// validator. It returns errBodyTooLarge or a validation BusinessError.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	if !isJSONContentType(r) {
		return service.NewValidationError("body", "Content-Type must be application/json")
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return decodeError(err)
	}

	var trailing json.RawMessage
	if err := decoder.Decode(&trailing); !errors.Is(err, io.EOF) {
		if err == nil {
			return service.NewValidationError("body", "unexpected data after JSON value")
		}
		return decodeError(err)
	}

	return validateStruct(dst)
}

func decodeError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errBodyTooLarge
	}
	return service.NewValidationErrors([]service.FieldViolation{decodeViolation(err)})
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return service.NewValidationError("body", err.Error())
	}

	violations := make([]service.FieldViolation, 0, len(validationErrors))
	for _, fe := range validationErrors {
		violations = append(violations, service.FieldViolation{
			Field:  fe.Field(),
			Reason: reasonFor(fe),
		})
	}
	return service.NewValidationErrors(violations)
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be greater than or equal to " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be less than or equal to " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	}
	return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
}

func decodeViolation(err error) service.FieldViolation {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		nullErr   *dto.NullFieldError
	)

	switch {
	case errors.Is(err, io.EOF):
		return service.FieldViolation{Field: "body", Reason: "request body is empty"}
	case errors.Is(err, io.ErrUnexpectedEOF):
		return service.FieldViolation{Field: "body", Reason: "malformed JSON"}
	case errors.As(err, &syntaxErr):
		return service.FieldViolation{Field: "body", Reason: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)}
	case errors.As(err, &nullErr):
		return service.FieldViolation{Field: nullErr.Field, Reason: "may not be null"}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return service.FieldViolation{Field: field, Reason: "must be of type " + jsonTypeName(typeErr.Type)}
	}
	return service.FieldViolation{Field: "body", Reason: err.Error()}
}

func jsonTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	}
	return t.String()
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, service.NewValidationError("id", "must be an integer")
	}
	return id, nil
}

func parseListQuery(values url.Values) (dto.ListTasksQuery, error) {
	query := dto.ListTasksQuery{Limit: task.DefaultLimit}
	var violations []service.FieldViolation

	if raw := values.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil {
			violations = append(violations, service.FieldViolation{Field: "skip", Reason: "must be an integer"})
		}
		query.Skip = skip
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			violations = append(violations, service.FieldViolation{Field: "limit", Reason: "must be an integer"})
		}
		query.Limit = limit
	}

	if raw := values.Get("completed"); raw != "" {
		completed, ok := parseBool(raw)
		if !ok {
			violations = append(violations, service.FieldViolation{Field: "completed", Reason: "must be a boolean"})
		} else {
			query.Completed = &completed
		}
	}

	if len(violations) > 0 {
		return query, service.NewValidationErrors(violations)
	}
	return query, validateStruct(query)
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	}
	return false, false
}
