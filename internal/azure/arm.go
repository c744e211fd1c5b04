package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/devtestlabs/armdevtestlabs"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/google/uuid"

	"github.com/pawops/paw-wizard/internal/message"
)

const computeAPIVersion = "2023-09-01"

type armClient struct {
	subscriptionID string
	groups         *armresources.ResourceGroupsClient
	resources      *armresources.Client
	deployments    *armresources.DeploymentsClient
	subnets        *armnetwork.SubnetsClient
	storage        *armstorage.AccountsClient
	roles          *armauthorization.RoleAssignmentsClient
	schedules      *armdevtestlabs.GlobalSchedulesClient
}

func newResourceManager(subscriptionID string, cred azcore.TokenCredential) (*armClient, error) {
	groups, err := armresources.NewResourceGroupsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Resource Group client: %w", err)
	}
	resources, err := armresources.NewClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Resources client: %w", err)
	}
	deployments, err := armresources.NewDeploymentsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Deployments client: %w", err)
	}
	subnets, err := armnetwork.NewSubnetsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Subnets client: %w", err)
	}
	storage, err := armstorage.NewAccountsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage Accounts client: %w", err)
	}
	authFactory, err := armauthorization.NewClientFactory(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Authorization client: %w", err)
	}
	schedules, err := armdevtestlabs.NewGlobalSchedulesClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Schedules client: %w", err)
	}
	return &armClient{
		subscriptionID: subscriptionID,
		groups:         groups,
		resources:      resources,
		deployments:    deployments,
		subnets:        subnets,
		storage:        storage,
		roles:          authFactory.NewRoleAssignmentsClient(),
		schedules:      schedules,
	}, nil
}

func listSubscriptions(ctx context.Context, cred azcore.TokenCredential) ([]Subscription, error) {
	clientFactory, err := armsubscriptions.NewClientFactory(cred, nil)
	if err != nil {
		return nil, err
	}
	subList := make([]Subscription, 0)
	pager := clientFactory.NewClient().NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, v := range page.Value {
			sub := Subscription{ID: *v.SubscriptionID}
			if v.DisplayName != nil {
				sub.DisplayName = *v.DisplayName
			}
			subList = append(subList, sub)
		}
	}
	return subList, nil
}

func (c *armClient) ListResourceGroups(ctx context.Context) ([]ResourceGroup, error) {
	grList := make([]ResourceGroup, 0)
	pager := c.groups.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, v := range page.Value {
			grList = append(grList, ResourceGroup{Name: *v.Name, Region: *v.Location})
		}
	}
	return grList, nil
}

func (c *armClient) GetResourceGroup(ctx context.Context, name string) (*ResourceGroup, error) {
	resp, err := c.groups.Get(ctx, name, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check if Resource Group exists: %w", err)
	}
	return &ResourceGroup{Name: *resp.Name, Region: *resp.Location}, nil
}

func (c *armClient) CreateResourceGroup(ctx context.Context, name, region string) error {
	_, err := c.groups.CreateOrUpdate(ctx, name, armresources.ResourceGroup{
		Location: to.Ptr(region),
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create Resource Group %s: %w", name, err)
	}
	return nil
}

func (c *armClient) SubnetExists(ctx context.Context, resourceGroup, vnet, subnet string) (bool, error) {
	_, err := c.subnets.Get(ctx, resourceGroup, vnet, subnet, nil)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if subnet exists: %w", err)
	}
	return true, nil
}

func (c *armClient) VirtualMachineExists(ctx context.Context, resourceGroup, name string) (bool, error) {
	resp, err := c.resources.CheckExistence(ctx, resourceGroup, "Microsoft.Compute", "", "virtualMachines", name, computeAPIVersion, nil)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if VM %s exists: %w", name, err)
	}
	return resp.Success, nil
}

func (c *armClient) StorageNameAvailable(ctx context.Context, name string) (bool, error) {
	resp, err := c.storage.CheckNameAvailability(ctx, armstorage.AccountCheckNameAvailabilityParameters{
		Name: to.Ptr(name),
		Type: to.Ptr("Microsoft.Storage/storageAccounts"),
	}, nil)
	if err != nil {
		return false, fmt.Errorf("failed to check storage account name availability: %w", err)
	}
	return resp.NameAvailable != nil && *resp.NameAvailable, nil
}

func (c *armClient) Deploy(ctx context.Context, resourceGroup, deploymentName string, template, parameters map[string]any) (map[string]any, error) {
	// ARM wraps every parameter value in a {"value": ...} envelope.
	wrapped := make(map[string]any, len(parameters))
	for k, v := range parameters {
		wrapped[k] = map[string]any{"value": v}
	}

	poller, err := c.deployments.BeginCreateOrUpdate(ctx, resourceGroup, deploymentName, armresources.Deployment{
		Properties: &armresources.DeploymentProperties{
			Template:   template,
			Parameters: wrapped,
			Mode:       to.Ptr(armresources.DeploymentModeIncremental),
		},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start deployment %s: %w", deploymentName, err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("deployment %s failed: %w", deploymentName, err)
	}

	outputs, _ := resp.Properties.Outputs.(map[string]any)
	return outputs, nil
}

func (c *armClient) EnsureRoleAssignment(ctx context.Context, assignment RoleAssignment) error {
	properties := armauthorization.RoleAssignmentProperties{
		PrincipalID:      to.Ptr(assignment.PrincipalID),
		RoleDefinitionID: to.Ptr(assignment.RoleDefinitionID),
		PrincipalType:    to.Ptr(armauthorization.PrincipalType(assignment.PrincipalType)),
	}
	resp, err := c.roles.Create(ctx, assignment.Scope, uuid.New().String(), armauthorization.RoleAssignmentCreateParameters{
		Properties: &properties,
	}, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && (respErr.ErrorCode == "RoleAssignmentExists" || respErr.StatusCode == http.StatusConflict) {
			message.Debug("Role Assignment already exists on %s", assignment.Scope)
			return nil
		}
		return fmt.Errorf("failed to create Role Assignment: %w", err)
	}
	message.Debug("Role Assignment created: %s", *resp.Name)
	return nil
}

func (c *armClient) EnsureAutoShutdown(ctx context.Context, resourceGroup, region, vmName, timeOfDay, timeZone, notifyUPN string) error {
	vmID := fmt.Sprintf("/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Compute/virtualMachines/%s",
		c.subscriptionID, resourceGroup, vmName)

	_, err := c.schedules.CreateOrUpdate(ctx, resourceGroup, "shutdown-computevm-"+vmName, armdevtestlabs.Schedule{
		Location: to.Ptr(region),
		Properties: &armdevtestlabs.ScheduleProperties{
			Status:           to.Ptr(armdevtestlabs.EnableStatusEnabled),
			TaskType:         to.Ptr("ComputeVmShutdownTask"),
			TimeZoneID:       to.Ptr(timeZone),
			DailyRecurrence:  &armdevtestlabs.DayDetails{Time: to.Ptr(timeOfDay)},
			TargetResourceID: to.Ptr(vmID),
			NotificationSettings: &armdevtestlabs.NotificationSettings{
				Status:         to.Ptr(armdevtestlabs.EnableStatusEnabled),
				TimeInMinutes:  to.Ptr[int32](30),
				EmailRecipient: to.Ptr(notifyUPN),
			},
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to configure auto-shutdown for %s: %w", vmName, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
