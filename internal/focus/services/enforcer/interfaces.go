package enforcer

import (
	"context"

	"github.com/studywith/focuslink/internal/focus/domain"
)

// Navigator points an existing tab at a new URL. Implementations must not
// close or create tabs.
type Navigator interface {
	Navigate(ctx context.Context, id domain.TabID, url string) error
}
