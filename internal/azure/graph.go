package azure

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/applications"
	"github.com/microsoftgraph/msgraph-sdk-go/devices"
	"github.com/microsoftgraph/msgraph-sdk-go/groups"
	"github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/pawops/paw-wizard/internal/message"
)

type directoryClient struct {
	client *msgraphsdk.GraphServiceClient
}

func newDirectory(cred azcore.TokenCredential) (*directoryClient, error) {
	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, []string{graphScope})
	if err != nil {
		return nil, fmt.Errorf("failed to create Graph client: %w", err)
	}
	return &directoryClient{client: client}, nil
}

func (c *directoryClient) SearchGroups(ctx context.Context, namePart string) ([]Group, error) {
	groupList, err := c.client.Groups().Get(ctx, &groups.GroupsRequestBuilderGetRequestConfiguration{
		QueryParameters: &groups.GroupsRequestBuilderGetQueryParameters{
			Filter: to.Ptr("startswith(displayName,'" + escapeODataLiteral(namePart) + "')"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search groups: %w", err)
	}
	result := make([]Group, 0, len(groupList.GetValue()))
	for _, g := range groupList.GetValue() {
		result = append(result, Group{ID: *g.GetId(), DisplayName: *g.GetDisplayName()})
	}
	return result, nil
}

func (c *directoryClient) GetGroup(ctx context.Context, id string) (*Group, error) {
	groupList, err := c.client.Groups().Get(ctx, &groups.GroupsRequestBuilderGetRequestConfiguration{
		QueryParameters: &groups.GroupsRequestBuilderGetQueryParameters{
			Filter: to.Ptr("id eq '" + escapeODataLiteral(id) + "'"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check if group exists: %w", err)
	}
	if len(groupList.GetValue()) == 0 {
		return nil, nil
	}
	g := groupList.GetValue()[0]
	return &Group{ID: *g.GetId(), DisplayName: *g.GetDisplayName()}, nil
}

func (c *directoryClient) CreateGroup(ctx context.Context, displayName, description string) (*Group, error) {
	nickname := strings.ReplaceAll(displayName, " ", "")

	reqBody := models.NewGroup()
	reqBody.SetDisplayName(to.Ptr(displayName))
	reqBody.SetDescription(to.Ptr(description))
	reqBody.SetMailNickname(to.Ptr(nickname))
	reqBody.SetMailEnabled(to.Ptr(false))
	reqBody.SetSecurityEnabled(to.Ptr(true))

	result, err := c.client.Groups().Post(ctx, reqBody, &groups.GroupsRequestBuilderPostRequestConfiguration{})
	if err != nil {
		return nil, fmt.Errorf("failed to create group %s: %w", displayName, err)
	}
	return &Group{ID: *result.GetId(), DisplayName: *result.GetDisplayName()}, nil
}

func (c *directoryClient) EnsureGroupMember(ctx context.Context, groupID, objectID string) error {
	reqBody := models.NewReferenceCreate()
	odataId := "https://graph.microsoft.com/v1.0/directoryObjects/" + objectID
	reqBody.SetOdataId(&odataId)

	err := c.client.Groups().ByGroupId(groupID).Members().Ref().Post(ctx, reqBody, nil)
	if err != nil {
		if strings.Contains(err.Error(), "already exist") {
			message.Debug("Object %s already a member of group %s", objectID, groupID)
			return nil
		}
		return fmt.Errorf("failed to add member to group: %w", err)
	}
	return nil
}

func (c *directoryClient) UserByPrincipalName(ctx context.Context, upn string) (*User, error) {
	user, err := c.client.Users().ByUserId(upn).Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", upn, err)
	}
	u := &User{ID: *user.GetId(), PrincipalName: upn}
	if name := user.GetDisplayName(); name != nil {
		u.DisplayName = *name
	}
	return u, nil
}

func (c *directoryClient) DevicesByPrefix(ctx context.Context, prefix string) ([]Device, error) {
	deviceList, err := c.client.Devices().Get(ctx, &devices.DevicesRequestBuilderGetRequestConfiguration{
		QueryParameters: &devices.DevicesRequestBuilderGetQueryParameters{
			Filter: to.Ptr("startswith(displayName,'" + escapeODataLiteral(prefix) + "')"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	result := make([]Device, 0, len(deviceList.GetValue()))
	for _, d := range deviceList.GetValue() {
		result = append(result, Device{ID: *d.GetId(), DisplayName: *d.GetDisplayName()})
	}
	return result, nil
}

func (c *directoryClient) TagDevice(ctx context.Context, deviceID, value string) error {
	attributes := models.NewOnPremisesExtensionAttributes()
	attributes.SetExtensionAttribute1(to.Ptr(value))
	reqBody := models.NewDevice()
	reqBody.SetExtensionAttributes(attributes)

	if _, err := c.client.Devices().ByDeviceId(deviceID).Patch(ctx, reqBody, nil); err != nil {
		return fmt.Errorf("failed to tag device %s: %w", deviceID, err)
	}
	return nil
}

func (c *directoryClient) ApplicationsByName(ctx context.Context, displayName string) ([]Application, error) {
	return c.searchApplications(ctx, "displayName eq '"+escapeODataLiteral(displayName)+"'")
}

func (c *directoryClient) ApplicationsByPrefix(ctx context.Context, prefix string) ([]Application, error) {
	return c.searchApplications(ctx, "startswith(displayName,'"+escapeODataLiteral(prefix)+"')")
}

func (c *directoryClient) searchApplications(ctx context.Context, filter string) ([]Application, error) {
	appList, err := c.client.Applications().Get(ctx, &applications.ApplicationsRequestBuilderGetRequestConfiguration{
		QueryParameters: &applications.ApplicationsRequestBuilderGetQueryParameters{
			Filter: to.Ptr(filter),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search applications: %w", err)
	}
	result := make([]Application, 0, len(appList.GetValue()))
	for _, a := range appList.GetValue() {
		app := Application{ID: *a.GetId()}
		if appID := a.GetAppId(); appID != nil {
			app.AppID = *appID
		}
		if name := a.GetDisplayName(); name != nil {
			app.DisplayName = *name
		}
		result = append(result, app)
	}
	return result, nil
}

func (c *directoryClient) ListAccessPolicies(ctx context.Context) ([]AccessPolicy, error) {
	policies, err := c.client.Identity().ConditionalAccess().Policies().Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list conditional-access policies: %w", err)
	}
	result := make([]AccessPolicy, 0, len(policies.GetValue()))
	for _, p := range policies.GetValue() {
		policy := AccessPolicy{ID: *p.GetId()}
		if name := p.GetDisplayName(); name != nil {
			policy.DisplayName = *name
		}
		if conditions := p.GetConditions(); conditions != nil {
			if apps := conditions.GetApplications(); apps != nil {
				policy.ExcludedApps = apps.GetExcludeApplications()
			}
		}
		result = append(result, policy)
	}
	return result, nil
}

func (c *directoryClient) SetPolicyExclusions(ctx context.Context, policyID string, appIDs []string) error {
	policy, err := c.client.Identity().ConditionalAccess().Policies().
		ByConditionalAccessPolicyId(policyID).Get(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to read conditional-access policy %s: %w", policyID, err)
	}

	conditions := policy.GetConditions()
	if conditions == nil {
		conditions = models.NewConditionalAccessConditionSet()
	}
	apps := conditions.GetApplications()
	if apps == nil {
		apps = models.NewConditionalAccessApplications()
		conditions.SetApplications(apps)
	}
	// Merge with the list as it is now, not as the caller last saw it: an
	// exclusion added elsewhere between list and patch must survive.
	apps.SetExcludeApplications(mergeExclusions(apps.GetExcludeApplications(), appIDs))

	reqBody := models.NewConditionalAccessPolicy()
	reqBody.SetConditions(conditions)
	if _, err := c.client.Identity().ConditionalAccess().Policies().
		ByConditionalAccessPolicyId(policyID).Patch(ctx, reqBody, nil); err != nil {
		return fmt.Errorf("failed to update conditional-access policy %s: %w", policyID, err)
	}
	return nil
}

// mergeExclusions unions the requested application ids into the current list
// without reordering or removing anything.
func mergeExclusions(current, requested []string) []string {
	merged := append([]string{}, current...)
	for _, id := range requested {
		if !slices.Contains(merged, id) {
			merged = append(merged, id)
		}
	}
	return merged
}

func escapeODataLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
