package azure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/desktopvirtualization/armdesktopvirtualization/v2"
)

type desktopClient struct {
	hostPools    *armdesktopvirtualization.HostPoolsClient
	sessionHosts *armdesktopvirtualization.SessionHostsClient
	appGroups    *armdesktopvirtualization.ApplicationGroupsClient
	desktops     *armdesktopvirtualization.DesktopsClient
}

func newDesktopService(subscriptionID string, cred azcore.TokenCredential) (*desktopClient, error) {
	clientFactory, err := armdesktopvirtualization.NewClientFactory(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Desktop Virtualization client: %w", err)
	}
	return &desktopClient{
		hostPools:    clientFactory.NewHostPoolsClient(),
		sessionHosts: clientFactory.NewSessionHostsClient(),
		appGroups:    clientFactory.NewApplicationGroupsClient(),
		desktops:     clientFactory.NewDesktopsClient(),
	}, nil
}

func (c *desktopClient) MintRegistrationToken(ctx context.Context, resourceGroup, hostPool string, expiresAt time.Time) (string, error) {
	_, err := c.hostPools.Update(ctx, resourceGroup, hostPool, &armdesktopvirtualization.HostPoolsClientUpdateOptions{
		HostPool: &armdesktopvirtualization.HostPoolPatch{
			Properties: &armdesktopvirtualization.HostPoolPatchProperties{
				RegistrationInfo: &armdesktopvirtualization.RegistrationInfoPatch{
					ExpirationTime:             to.Ptr(expiresAt),
					RegistrationTokenOperation: to.Ptr(armdesktopvirtualization.RegistrationTokenOperationUpdate),
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to mint registration token for host pool %s: %w", hostPool, err)
	}

	resp, err := c.hostPools.RetrieveRegistrationToken(ctx, resourceGroup, hostPool, nil)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve registration token for host pool %s: %w", hostPool, err)
	}
	if resp.Token == nil || *resp.Token == "" {
		return "", errors.New("host pool returned an empty registration token")
	}
	return *resp.Token, nil
}

func (c *desktopClient) RevokeRegistrationToken(ctx context.Context, resourceGroup, hostPool string) error {
	_, err := c.hostPools.Update(ctx, resourceGroup, hostPool, &armdesktopvirtualization.HostPoolsClientUpdateOptions{
		HostPool: &armdesktopvirtualization.HostPoolPatch{
			Properties: &armdesktopvirtualization.HostPoolPatchProperties{
				RegistrationInfo: &armdesktopvirtualization.RegistrationInfoPatch{
					RegistrationTokenOperation: to.Ptr(armdesktopvirtualization.RegistrationTokenOperationDelete),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to revoke registration token for host pool %s: %w", hostPool, err)
	}
	return nil
}

func (c *desktopClient) AssignSessionHost(ctx context.Context, resourceGroup, hostPool, sessionHost, upn string) error {
	_, err := c.sessionHosts.Update(ctx, resourceGroup, hostPool, sessionHost, &armdesktopvirtualization.SessionHostsClientUpdateOptions{
		SessionHost: &armdesktopvirtualization.SessionHostPatch{
			Properties: &armdesktopvirtualization.SessionHostPatchProperties{
				AssignedUser:    to.Ptr(upn),
				AllowNewSession: to.Ptr(true),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to assign session host %s to %s: %w", sessionHost, upn, err)
	}
	return nil
}

func (c *desktopClient) ApplicationGroupExists(ctx context.Context, resourceGroup, name string) (bool, error) {
	_, err := c.appGroups.Get(ctx, resourceGroup, name, nil)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if application group %s exists: %w", name, err)
	}
	return true, nil
}

func (c *desktopClient) UpdateDesktopFriendlyName(ctx context.Context, resourceGroup, applicationGroup, friendlyName string) error {
	_, err := c.desktops.Update(ctx, resourceGroup, applicationGroup, "SessionDesktop", &armdesktopvirtualization.DesktopsClientUpdateOptions{
		Desktop: &armdesktopvirtualization.DesktopPatch{
			Properties: &armdesktopvirtualization.DesktopPatchProperties{
				FriendlyName: to.Ptr(friendlyName),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update desktop friendly name: %w", err)
	}
	return nil
}
