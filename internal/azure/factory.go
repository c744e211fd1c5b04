package azure

import "context"

type sdkFactory struct {
	auth *Authenticator
}

// NewFactory returns the production Factory backed by the Azure SDKs.
func NewFactory(auth *Authenticator) Factory {
	return &sdkFactory{auth: auth}
}

func (f *sdkFactory) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	return listSubscriptions(ctx, f.auth.Credential())
}

func (f *sdkFactory) ResourceManager(subscriptionID string) (ResourceManager, error) {
	return newResourceManager(subscriptionID, f.auth.Credential())
}

func (f *sdkFactory) Directory() (Directory, error) {
	return newDirectory(f.auth.Credential())
}

func (f *sdkFactory) Desktop(subscriptionID string) (DesktopService, error) {
	return newDesktopService(subscriptionID, f.auth.Credential())
}
