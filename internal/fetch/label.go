package fetch

import "context"

type labelKey struct{}

// WithLabel attaches a work-item label to ctx. Fetchers may use it for
// diagnostics; it never changes the request.
func WithLabel(ctx context.Context, label int) context.Context {
	return context.WithValue(ctx, labelKey{}, label)
}

// LabelFrom returns the label attached by WithLabel.
func LabelFrom(ctx context.Context) (int, bool) {
	label, ok := ctx.Value(labelKey{}).(int)
	return label, ok
}
