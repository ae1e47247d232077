package driving

import (
	"context"
	"encoding/json"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driven"
)

// DispatchRequest is a logical platform API call.
type DispatchRequest struct {
	// Platform is the target social platform.
	Platform domain.Platform `json:"platform"`

	// CredentialID selects a specific stored credential. Empty means
	// the caller's active credential for the platform.
	CredentialID string `json:"credential_id,omitempty"`

	// Operation is the logical operation (profile, post, analytics).
	Operation domain.Operation `json:"operation"`

	// UserID is the dashboard user making the call.
	UserID string `json:"-"`

	// Payload is the operation payload, passed through to the platform.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DispatchService routes logical operations to platform APIs using the
// user's active credential for the platform.
type DispatchService interface {
	// Dispatch resolves the credential (by id, or the caller's active
	// one for the platform), ensures its token is fresh, and performs
	// the platform call. Inactive or missing credentials fail before
	// any network I/O, as does a credential whose rate-limit window is
	// known to be exhausted.
	Dispatch(ctx context.Context, req DispatchRequest) (*driven.PlatformResponse, error)
}
