package posting

import (
	"context"

	"github.com/meridian-erp/meridian-erp/internal/coa"
)

type coaResolver struct {
	accounts *coa.Service
}

// NewAccountResolver adapts the chart of accounts mapping service to the
// resolver port used by posting rules.
func NewAccountResolver(accounts *coa.Service) AccountResolver {
	return coaResolver{accounts: accounts}
}

func (r coaResolver) Resolve(ctx context.Context, documentType, key string) (int64, error) {
	return r.accounts.ResolveMapping(ctx, documentType, key)
}
