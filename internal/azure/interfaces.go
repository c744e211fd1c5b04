package azure

import (
	"context"
	"time"
)

// The three remote services are consumed through typed interfaces so the
// workflow never parses CLI output and tests can run against fakes.

type ResourceManager interface {
	ListResourceGroups(ctx context.Context) ([]ResourceGroup, error)
	// GetResourceGroup returns nil without error when the group does not exist.
	GetResourceGroup(ctx context.Context, name string) (*ResourceGroup, error)
	CreateResourceGroup(ctx context.Context, name, region string) error
	SubnetExists(ctx context.Context, resourceGroup, vnet, subnet string) (bool, error)
	VirtualMachineExists(ctx context.Context, resourceGroup, name string) (bool, error)
	StorageNameAvailable(ctx context.Context, name string) (bool, error)
	// Deploy invokes an infrastructure template and returns its outputs. It is
	// never retried automatically; the template itself is assumed idempotent.
	Deploy(ctx context.Context, resourceGroup, deploymentName string, template, parameters map[string]any) (map[string]any, error)
	// EnsureRoleAssignment creates the triple if absent; an existing identical
	// assignment is success, not an error.
	EnsureRoleAssignment(ctx context.Context, assignment RoleAssignment) error
	EnsureAutoShutdown(ctx context.Context, resourceGroup, region, vmName, timeOfDay, timeZone, notifyUPN string) error
}

type Directory interface {
	SearchGroups(ctx context.Context, namePart string) ([]Group, error)
	// GetGroup returns nil without error when the id no longer resolves.
	GetGroup(ctx context.Context, id string) (*Group, error)
	CreateGroup(ctx context.Context, displayName, description string) (*Group, error)
	// EnsureGroupMember is an idempotent add.
	EnsureGroupMember(ctx context.Context, groupID, objectID string) error
	UserByPrincipalName(ctx context.Context, upn string) (*User, error)
	DevicesByPrefix(ctx context.Context, prefix string) ([]Device, error)
	TagDevice(ctx context.Context, deviceID, value string) error
	ApplicationsByName(ctx context.Context, displayName string) ([]Application, error)
	ApplicationsByPrefix(ctx context.Context, prefix string) ([]Application, error)
	ListAccessPolicies(ctx context.Context) ([]AccessPolicy, error)
	// SetPolicyExclusions adds the application ids to the policy's exclusion
	// list. Exclusions already on the policy are never removed.
	SetPolicyExclusions(ctx context.Context, policyID string, appIDs []string) error
}

type DesktopService interface {
	MintRegistrationToken(ctx context.Context, resourceGroup, hostPool string, expiresAt time.Time) (string, error)
	RevokeRegistrationToken(ctx context.Context, resourceGroup, hostPool string) error
	AssignSessionHost(ctx context.Context, resourceGroup, hostPool, sessionHost, upn string) error
	ApplicationGroupExists(ctx context.Context, resourceGroup, name string) (bool, error)
	UpdateDesktopFriendlyName(ctx context.Context, resourceGroup, applicationGroup, friendlyName string) error
}

// Factory builds service clients once a subscription is known. The wizard
// depends on this instead of SDK constructors so the whole workflow is
// testable.
type Factory interface {
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	ResourceManager(subscriptionID string) (ResourceManager, error)
	Directory() (Directory, error)
	Desktop(subscriptionID string) (DesktopService, error)
}
