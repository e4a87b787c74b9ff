package provenance

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/provenance-cli/internal/model"
	"github.com/sells-group/provenance-cli/internal/platform"
)

// IdentityReader resolves external handles.
type IdentityReader interface {
	GetExternalIdentity(ctx context.Context, platform, handle string) (*model.ExternalIdentity, error)
}

// attribute links a scraped username. Claimed identities point at the
// internal profile; unclaimed ones carry a claim link for the external
// claim flow. Lookup failures drop the attribution.
func (r *Resolver) attribute(ctx context.Context, plat, handle, proofURL string) *model.Attribution {
	handle = strings.TrimSpace(handle)
	if handle == "" || !platform.SupportsIdentity(plat) {
		return nil
	}

	id, err := r.store.GetExternalIdentity(ctx, plat, handle)
	if err != nil {
		zap.L().Warn("provenance: identity lookup failed",
			zap.String("platform", plat),
			zap.String("handle", handle),
			zap.Error(err),
		)
		return nil
	}

	a := &model.Attribution{
		Platform:   plat,
		Handle:     handle,
		ProfileURL: platform.ProfileURL(plat, handle),
	}
	if id.Claimed() {
		a.Claimed = true
		a.UserID = *id.ClaimedByUserID
		if id.ProfileURL != nil && *id.ProfileURL != "" {
			a.ProfileURL = *id.ProfileURL
		}
		return a
	}
	a.ClaimURL = ClaimLink(r.claimBaseURL, plat, handle, proofURL)
	return a
}

// ClaimLink builds the deep link into the identity-claim flow. It returns ""
// when no claim flow is configured.
func ClaimLink(base, plat, handle, proofURL string) string {
	if base == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep +
		"platform=" + url.QueryEscape(plat) +
		"&handle=" + url.QueryEscape(handle) +
		"&proof_url=" + url.QueryEscape(proofURL)
}
