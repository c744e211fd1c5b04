package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/golang-jwt/jwt/v5"

	"github.com/pawops/paw-wizard/internal/message"
)

const (
	armScope   = "https://management.azure.com//.default"
	graphScope = "https://graph.microsoft.com/.default"
)

// Authenticator holds one token credential shared by all clients. EnsureLogin
// probes a token per remote service and only falls back to an interactive
// browser login when no session exists, so re-running it is a no-op.
type Authenticator struct {
	cred          azcore.TokenCredential
	tenantID      string
	principalName string
}

func NewAuthenticator() *Authenticator {
	return &Authenticator{}
}

func (a *Authenticator) EnsureLogin(ctx context.Context) error {
	if a.cred == nil {
		cred, err := azidentity.NewAzureCLICredential(nil)
		if err == nil {
			if _, probeErr := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{armScope}}); probeErr == nil {
				a.cred = cred
				message.Debug("Using existing Azure CLI session")
			}
		}
	}
	if a.cred == nil {
		message.Info("No live session found, opening interactive login")
		cred, err := azidentity.NewInteractiveBrowserCredential(nil)
		if err != nil {
			return fmt.Errorf("failed to create interactive credential: %w", err)
		}
		a.cred = cred
	}

	// Probe each remote-service audience independently: a live management
	// session does not guarantee directory consent.
	for _, scope := range []string{armScope, graphScope} {
		token, err := a.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{scope}})
		if err != nil {
			return fmt.Errorf("failed to acquire token for %s: %w", scope, err)
		}
		if a.tenantID == "" {
			a.readClaims(token.Token)
		}
	}
	return nil
}

func (a *Authenticator) readClaims(raw string) {
	claims := make(jwt.MapClaims)
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		message.Debug("failed to parse access token claims: %v", err)
		return
	}
	a.tenantID, _ = claims["tid"].(string)
	if upn, ok := claims["upn"].(string); ok {
		a.principalName = upn
	} else {
		a.principalName, _ = claims["unique_name"].(string)
	}
}

func (a *Authenticator) Credential() azcore.TokenCredential { return a.cred }

func (a *Authenticator) TenantID() string { return a.tenantID }

func (a *Authenticator) SignedInUser() string { return a.principalName }
