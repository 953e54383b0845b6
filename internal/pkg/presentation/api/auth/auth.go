package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/open-policy-agent/opa/rego"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("county-lookup/api/authz")

type Authenticator interface {
	CheckAccess(ctx context.Context, r *http.Request) error
}

// NewAuthenticator prepares the supplied rego policies for evaluation.
// The policy module is expected to expose data.countylookup.authz.allow.
func NewAuthenticator(ctx context.Context, policies io.Reader) (Authenticator, error) {
	module, err := io.ReadAll(policies)
	if err != nil {
		return nil, fmt.Errorf("unable to read authz policies: %w", err)
	}

	impl := &authenticatorImpl{}

	impl.preparedQuery, err = rego.New(
		rego.Query("x = data.countylookup.authz.allow"),
		rego.Module("authz.rego", string(module)),
	).PrepareForEval(ctx)

	if err != nil {
		return nil, err
	}

	return impl, nil
}

// NewAllowAll returns an authenticator that accepts every request. It is
// used when the service is deployed without any authz policies.
func NewAllowAll() Authenticator {
	return &allowAll{}
}

type allowAll struct{}

func (a *allowAll) CheckAccess(ctx context.Context, r *http.Request) error {
	return nil
}

type authenticatorImpl struct {
	preparedQuery rego.PreparedEvalQuery
}

func (a *authenticatorImpl) CheckAccess(ctx context.Context, r *http.Request) error {
	var err error

	_, span := tracer.Start(ctx, "check-auth")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	token := r.Header.Get("Authorization")

	if len(token) > 7 {
		token = token[7:]
	}

	path := strings.Split(r.URL.Path, "/")

	input := map[string]any{
		"method": r.Method,
		"path":   path[1:],
		"token":  token,
	}

	results, err := a.preparedQuery.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		err = fmt.Errorf("opa eval failed: %w", err)
		return err
	}

	if len(results) == 0 {
		err = errors.New("auth failed: opa query could not be satisfied")
		return err
	}

	allowed, ok := results[0].Bindings["x"].(bool)
	if !ok {
		err = errors.New("opa error: unexpected result type")
		return err
	}

	if !allowed {
		err = errors.New("authorization failed")
		return err
	}

	return nil
}
