package httpx

import "context"

type ctxKey string

const (
	CtxKeySubject ctxKey = "subject"
	CtxKeyEmail   ctxKey = "email"
	CtxKeyRoles   ctxKey = "roles"
)

// SubjectFromContext returns the provider-side account id of the caller.
func SubjectFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeySubject).(string); ok {
		return v
	}
	return ""
}

// EmailFromContext returns the authenticated caller's email.
func EmailFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyEmail).(string); ok {
		return v
	}
	return ""
}

func rolesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyRoles).([]string); ok {
		return v
	}
	return nil
}

// HasRole reports whether the authenticated caller holds the given role.
// Handlers use it for checks that depend on the request body, where the
// route-level RequireAnyRole middleware cannot decide alone.
func HasRole(ctx context.Context, role string) bool {
	for _, r := range rolesFromCtx(ctx) {
		if r == role {
			return true
		}
	}
	return false
}
