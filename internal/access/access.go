// Package access decides whether the caller may act on a farm.
package access

import (
	"context"
	"fmt"

	apperrors "github.com/X-culture24/my-farm/pkg/errors"
	"github.com/X-culture24/my-farm/pkg/middleware"
)

// ClaimsChecker authorizes using the JWT claims stored in the request context.
// Admins may act on any farm; other callers only on the farms in their token.
type ClaimsChecker struct{}

// NewClaimsChecker returns a claims-based checker.
func NewClaimsChecker() *ClaimsChecker {
	return &ClaimsChecker{}
}

// CheckFarm returns nil when the caller may act on farmID.
func (ClaimsChecker) CheckFarm(ctx context.Context, farmID string) error {
	claims := middleware.ClaimsFromContext(ctx)
	if claims == nil {
		return apperrors.Unauthorized("authentication required")
	}
	if !claims.CanAccessFarm(farmID) {
		return apperrors.Forbidden(fmt.Sprintf("no access to farm %s", farmID))
	}
	return nil
}
