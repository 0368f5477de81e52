package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	sdkerrors "github.com/watson-developer-cloud/go-sdk/internal/sdk/errors"
	"github.com/watson-developer-cloud/go-sdk/internal/transport"
)

// Method declares how an endpoint maps parameters onto an HTTP request.
type Method struct {
	Service    string // e.g. "LanguageTranslator"
	Name       string // e.g. "Translate"
	HTTPMethod string
	// Path is relative to the service URL, with {param} placeholders.
	Path        string
	Required    []string
	PathParams  []string
	QueryParams []string
	BodyParams  []string
	// IsMutation marks endpoints that change server state.
	IsMutation bool
}

var (
	validate     = validator.New(validator.WithRequiredStructEnabled())
	paramEncoder = schema.NewEncoder()
)

func init() {
	paramEncoder.SetAliasTag("url")
	validate.RegisterTagNameFunc(paramName)
}

// paramName is the wire name of a struct field: its json name, or its url
// name for path and query fields excluded from the body.
func paramName(f reflect.StructField) string {
	for _, tag := range []string{"json", "url"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// Request builds the transport request for params, which is either a
// map[string]any or a pointer to a typed parameter struct.
//
// Typed structs place each field with tags: `url:"name" json:"-"` for path
// and query values (encoded with gorilla/schema) and `json:"name" url:"-"`
// for body values. A `validate:"required"` tag marks a required field.
func (m Method) Request(params any) (*transport.Request, error) {
	values, err := paramMap(params)
	if err != nil {
		return nil, err
	}

	req := &transport.Request{
		Method:         m.HTTPMethod,
		URL:            m.Path,
		RequiredParams: m.Required,
		Params:         values,
	}
	if m.Service != "" || m.Name != "" {
		req.Operation = &transport.OperationInfo{Service: m.Service, Operation: m.Name, IsMutation: m.IsMutation}
	}

	for _, name := range m.PathParams {
		if v, ok := values[name]; ok && !isZero(v) {
			if req.PathParams == nil {
				req.PathParams = make(map[string]string)
			}
			req.PathParams[name] = fmt.Sprint(v)
		}
	}

	for _, name := range m.QueryParams {
		v, ok := values[name]
		if !ok || isZero(v) {
			continue
		}
		if req.Query == nil {
			req.Query = make(url.Values)
		}
		switch x := v.(type) {
		case []string:
			req.Query.Set(name, strings.Join(x, ","))
		case []any:
			parts := make([]string, len(x))
			for i, p := range x {
				parts[i] = fmt.Sprint(p)
			}
			req.Query.Set(name, strings.Join(parts, ","))
		default:
			req.Query.Set(name, fmt.Sprint(x))
		}
	}

	if len(m.BodyParams) > 0 {
		body := make(map[string]any)
		for _, name := range m.BodyParams {
			if v, ok := values[name]; ok && v != nil {
				body[name] = v
			}
		}
		if len(body) > 0 {
			req.Body = body
		}
	}
	return req, nil
}

// Call builds the request for m from params and dispatches it. Missing
// required parameters fail before any token fetch or network call.
func (s *BaseService) Call(ctx context.Context, m Method, params any) (*transport.Response, error) {
	req, err := m.Request(params)
	if err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, req)
}

// CallInto is Call followed by decoding the response body into out.
func (s *BaseService) CallInto(ctx context.Context, m Method, params any, out any) (*transport.Response, error) {
	resp, err := s.Call(ctx, m, params)
	if err != nil {
		return resp, err
	}
	if out != nil {
		if err := resp.Decode(out); err != nil {
			return resp, fmt.Errorf("decode %s.%s response: %w", m.Service, m.Name, err)
		}
	}
	return resp, nil
}

func paramMap(params any) (map[string]any, error) {
	switch p := params.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return p, nil
	}

	rv := reflect.ValueOf(params)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return map[string]any{}, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, sdkerrors.ErrUsage(fmt.Sprintf("parameters must be a struct or map, got %T", params))
	}

	if err := validateStruct(params); err != nil {
		return nil, err
	}

	values := make(map[string]any)

	encoded := make(map[string][]string)
	if err := paramEncoder.Encode(params, encoded); err != nil {
		return nil, sdkerrors.ErrUsage(fmt.Sprintf("encode parameters: %v", err))
	}
	for k, vs := range encoded {
		if len(vs) == 1 {
			values[k] = vs[0]
		} else {
			values[k] = vs
		}
	}

	data, err := json.Marshal(params)
	if err != nil {
		return nil, sdkerrors.ErrUsage(fmt.Sprintf("encode parameters: %v", err))
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, sdkerrors.ErrUsage(fmt.Sprintf("encode parameters: %v", err))
	}
	for k, v := range body {
		values[k] = v
	}
	return values, nil
}

// validateStruct reports every missing required field at once. Other rule
// violations are usage errors.
func validateStruct(params any) error {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !asValidationErrors(err, &verrs) {
		return sdkerrors.ErrUsage(err.Error())
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%s %s", fe.Field(), formatValidationError(fe)))
	}
	if len(missing) > 0 {
		return sdkerrors.ErrMissingParams(missing)
	}
	sort.Strings(invalid)
	return sdkerrors.ErrUsage("Invalid parameters: " + strings.Join(invalid, "; "))
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors) //nolint:errorlint // validator returns the slice type directly
	if ok {
		*target = verrs
	}
	return ok
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "url":
		return "must be a valid URL"
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func isZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	}
	return false
}
