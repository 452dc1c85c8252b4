package hcl_adapter

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/specialistvlad/layergraph/internal/ctxlog"
	"github.com/specialistvlad/layergraph/internal/features"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional hcl.Expression fields with
// zero-width placeholder expressions, so a nil check is insufficient.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	isDefined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", r.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

// evalMode evaluates a mode attribute. Strings are parsed as octal ("0755").
// Numbers are read digit for digit as octal too, so `mode = 755` means
// 0755 rather than decimal 755.
func evalMode(ctx context.Context, expr hcl.Expression, fallback features.Mode) (features.Mode, error) {
	if !isExprDefined(ctx, expr, "mode") {
		return fallback, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return 0, diags
	}
	if val.IsNull() {
		return fallback, nil
	}
	switch val.Type() {
	case cty.String:
		return features.ParseMode(val.AsString())
	case cty.Number:
		var n int64
		if err := gocty.FromCtyValue(val, &n); err != nil {
			return 0, fmt.Errorf("invalid mode: %w", err)
		}
		return features.ParseMode(strconv.FormatInt(n, 10))
	default:
		return 0, fmt.Errorf("mode must be a string or a number, got %s", val.Type().FriendlyName())
	}
}

// evalID evaluates an optional numeric uid/gid attribute.
func evalID(ctx context.Context, expr hcl.Expression, attrName string) (*uint32, error) {
	if !isExprDefined(ctx, expr, attrName) {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	var id uint32
	if err := gocty.FromCtyValue(val, &id); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", attrName, err)
	}
	return &id, nil
}

// resolvePath makes a host path relative to the declaring file's directory.
func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
