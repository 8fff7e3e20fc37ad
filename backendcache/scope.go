package backendcache

import "context"

type scopeContextKey struct{}

// WithScope attaches invalidation scopes to the context. Reads
// performed under the returned context register their cache keys with
// those scopes, and InvalidateScope later clears them all at once.
func WithScope(ctx context.Context, scopes ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(scopes) == 0 {
		return ctx
	}

	combined := dedupeStrings(append(scopesFromContext(ctx), scopes...))
	if len(combined) == 0 {
		return ctx
	}
	return context.WithValue(ctx, scopeContextKey{}, combined)
}

func scopesFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if scopes, ok := ctx.Value(scopeContextKey{}).([]string); ok {
		return append([]string(nil), scopes...)
	}
	return nil
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
