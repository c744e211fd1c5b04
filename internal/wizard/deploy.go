package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pawops/paw-wizard/internal/azure"
	"github.com/pawops/paw-wizard/internal/message"
	"github.com/pawops/paw-wizard/internal/session"
	"github.com/pawops/paw-wizard/internal/settings"
)

// Built-in role definition ids assigned after the core deployment.
const (
	roleVMUserLogin             = "fb879df8-f326-4884-b1cf-06f3ad86be52"
	roleVMAdminLogin            = "1c0163c0-47e6-4577-8991-ea5c82e286e4"
	roleDesktopUser             = "1d18fff3-a72a-46b5-b4a9-0b38a3cd7e63"
	roleSMBShareContributor     = "0c867c2a-1d8c-454a-a3db-ab2ea1bdc8bb"
	roleSMBShareElevatedContrib = "a7264617-510b-434b-a828-9731dc254ea7"
)

// Policies carrying this display-name prefix are authored by the platform and
// must not be touched.
const managedPolicyPrefix = "Microsoft-managed"

const (
	defaultVnetAddressRange   = "10.200.0.0/24"
	defaultSubnetAddressRange = "10.200.0.0/27"
)

// errGoBack is the "cancel back to the previous stage" transition.
var errGoBack = errors.New("go back")

// Deployer drives the core-infrastructure workflow. All cross-stage state
// lives in the record it carries; stages read the fields earlier stages
// resolved and persist after every resolving step.
type Deployer struct {
	Auth     *azure.Authenticator
	Clients  azure.Factory
	Prompt   Prompter
	Settings *settings.Settings
	Log      *logrus.Logger

	rec *session.Record
	rm  azure.ResourceManager
	dir azure.Directory
	avd azure.DesktopService

	vnetAddressRange   string
	subnetAddressRange string
}

// Record exposes the resolved configuration for the session-host handoff.
func (d *Deployer) Record() *session.Record { return d.rec }

// Run executes the workflow and reports whether the operator asked for the
// session-host sub-workflow afterwards.
func (d *Deployer) Run(ctx context.Context) (bool, error) {
	if err := CheckEnvironment(ctx); err != nil {
		return false, err
	}

	if err := d.Auth.EnsureLogin(ctx); err != nil {
		return false, fmt.Errorf("authentication failed: %w", err)
	}
	message.Success("Signed in as %s", d.Auth.SignedInUser())
	d.Log.Infof("authenticated as %s in tenant %s", d.Auth.SignedInUser(), d.Auth.TenantID())

	if err := d.resolvePriorConfig(); err != nil {
		return false, err
	}
	d.rec.TenantID = d.Auth.TenantID()

	if err := d.selectSubscription(ctx); err != nil {
		return false, err
	}
	if err := d.buildClients(); err != nil {
		return false, err
	}

	if err := d.resolveStages(ctx); err != nil {
		return false, err
	}

	if err := d.collectParameters(ctx); err != nil {
		return false, err
	}

	d.rec.SavedAt = time.Now().UTC()
	if err := session.Save(d.rec); err != nil {
		return false, fmt.Errorf("failed to save configuration: %w", err)
	}
	message.Info("Configuration saved")

	if err := d.deployCore(ctx); err != nil {
		return false, err
	}
	if err := d.postDeployConfigure(ctx); err != nil {
		return false, err
	}
	if err := d.excludeFromAccessPolicies(ctx); err != nil {
		return false, err
	}

	message.Success("Core infrastructure deployment complete")
	return d.Prompt.Confirm("Provision session hosts now?")
}

// resolveStages walks resource-group and directory-group resolution with a
// "go back" transition to the preceding stage.
func (d *Deployer) resolveStages(ctx context.Context) error {
	for stage := 0; stage < 2; {
		var err error
		switch stage {
		case 0:
			err = d.resolveResourceGroup(ctx)
		case 1:
			err = d.resolveDirectoryGroups(ctx)
		}
		switch {
		case errors.Is(err, errGoBack):
			if stage > 0 {
				stage--
			}
		case err != nil:
			return err
		default:
			stage++
		}
	}
	return nil
}

func (d *Deployer) resolvePriorConfig() error {
	prior, err := session.Load()
	if err != nil {
		return err
	}

	mode := ModeIgnore
	if prior != nil {
		choice, err := d.Prompt.Select("A previous configuration was found", []string{
			"Use all previous values",
			"Ignore previous values",
			"Override some values",
		})
		if err != nil {
			return err
		}
		mode = []Mode{ModeUseAll, ModeIgnore, ModeOverride}[choice]
	}

	d.rec, err = ResolveConfig(prior, mode, d.Prompt)
	return err
}

func (d *Deployer) selectSubscription(ctx context.Context) error {
	subscriptions, err := d.Clients.ListSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}
	if len(subscriptions) == 0 {
		return errors.New("no subscriptions available for the current account")
	}

	if d.rec.SubscriptionID != "" {
		for _, sub := range subscriptions {
			if sub.ID == d.rec.SubscriptionID {
				message.Info("Using subscription from previous run: %s", sub.DisplayName)
				return nil
			}
		}
		message.Warning("Subscription %s from previous run is no longer accessible", d.rec.SubscriptionID)
		d.rec.SubscriptionID = ""
	}

	options := make([]string, len(subscriptions))
	for i, sub := range subscriptions {
		options[i] = fmt.Sprintf("%s (%s)", sub.DisplayName, sub.ID)
	}
	idx, err := d.Prompt.Select("Select a subscription", options)
	if err != nil {
		return err
	}
	d.rec.SubscriptionID = subscriptions[idx].ID
	d.rec.SubscriptionName = subscriptions[idx].DisplayName
	d.Log.Infof("selected subscription %s", d.rec.SubscriptionID)
	return nil
}

func (d *Deployer) buildClients() error {
	var err error
	if d.rm, err = d.Clients.ResourceManager(d.rec.SubscriptionID); err != nil {
		return err
	}
	if d.dir, err = d.Clients.Directory(); err != nil {
		return err
	}
	if d.avd, err = d.Clients.Desktop(d.rec.SubscriptionID); err != nil {
		return err
	}
	return nil
}

func (d *Deployer) resolveResourceGroup(ctx context.Context) error {
	if d.rec.ResourceGroup != "" {
		rg, err := d.rm.GetResourceGroup(ctx, d.rec.ResourceGroup)
		if err != nil {
			return err
		}
		if rg != nil {
			message.Info("Using resource group from previous run: %s", rg.Name)
			d.rec.Region = rg.Region
			return nil
		}
		message.Warning("Resource group %s no longer exists", d.rec.ResourceGroup)
		d.rec.ResourceGroup = ""
	}

	choice, err := d.Prompt.Select("Resource group", []string{
		"Select an existing resource group",
		"Create a new resource group",
	})
	if err != nil {
		return err
	}

	if choice == 0 {
		groupList, err := d.rm.ListResourceGroups(ctx)
		if err != nil {
			return fmt.Errorf("failed to list resource groups: %w", err)
		}
		if len(groupList) == 0 {
			message.Warning("No resource groups in this subscription")
			return errGoBack
		}
		options := make([]string, len(groupList)+1)
		for i, rg := range groupList {
			options[i] = fmt.Sprintf("%s (%s)", rg.Name, rg.Region)
		}
		options[len(groupList)] = "Go back"
		idx, err := d.Prompt.Select("Select a resource group", options)
		if err != nil {
			return err
		}
		if idx == len(groupList) {
			return errGoBack
		}
		d.rec.ResourceGroup = groupList[idx].Name
		d.rec.Region = groupList[idx].Region
	} else {
		// The naming prefix is collected after this stage, so a fresh run
		// falls back to the built-in default.
		name, err := d.Prompt.Input("New resource group name", valueOr(d.rec.NamingPrefix, "PAW")+"-rg")
		if err != nil {
			return err
		}
		region, err := d.Prompt.Input("Region", "westeurope")
		if err != nil {
			return err
		}
		if err := d.rm.CreateResourceGroup(ctx, name, region); err != nil {
			return err
		}
		message.Success("Resource group %s created in %s", name, region)
		d.rec.ResourceGroup = name
		d.rec.Region = region
	}
	d.Log.Infof("resolved resource group %s (%s)", d.rec.ResourceGroup, d.rec.Region)
	return session.Save(d.rec)
}

func (d *Deployer) resolveDirectoryGroups(ctx context.Context) error {
	roles := []struct {
		label string
		ref   *session.GroupRef
	}{
		{"standard user", &d.rec.StandardGroup},
		{"elevated admin", &d.rec.ElevatedGroup},
	}

	for _, role := range roles {
		if role.ref.ID != "" {
			group, err := d.dir.GetGroup(ctx, role.ref.ID)
			if err != nil {
				return err
			}
			if group != nil {
				message.Info("Using %s group from previous run: %s", role.label, group.DisplayName)
				role.ref.DisplayName = group.DisplayName
				continue
			}
			message.Warning("Group %s no longer exists in the directory", role.ref.ID)
			*role.ref = session.GroupRef{}
		}

		group, err := d.resolveGroup(ctx, role.label)
		if err != nil {
			return err
		}
		*role.ref = session.GroupRef{ID: group.ID, DisplayName: group.DisplayName}
		if err := session.Save(d.rec); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deployer) resolveGroup(ctx context.Context, roleLabel string) (*azure.Group, error) {
	for {
		choice, err := d.Prompt.Select(fmt.Sprintf("Directory group for the %s role", roleLabel), []string{
			"Search for an existing group",
			"Create a new group",
			"Go back",
		})
		if err != nil {
			return nil, err
		}

		switch choice {
		case 0:
			group, err := d.searchGroup(ctx)
			if errors.Is(err, errGoBack) {
				continue
			}
			if err != nil {
				return nil, err
			}
			return group, nil
		case 1:
			name, err := d.Prompt.Input("New group display name", "")
			if err != nil {
				return nil, err
			}
			group, err := d.dir.CreateGroup(ctx, name, "Privileged access workstation "+roleLabel+" group")
			if err != nil {
				return nil, err
			}
			message.Success("Group %s created", group.DisplayName)
			d.Log.Infof("created directory group %s (%s)", group.DisplayName, group.ID)
			return group, nil
		default:
			return nil, errGoBack
		}
	}
}

// searchGroup re-prompts on zero matches, up to a budget, then cancels back to
// the group-mode menu.
func (d *Deployer) searchGroup(ctx context.Context) (*azure.Group, error) {
	for attempt := 0; attempt < resolveBudget; attempt++ {
		namePart, err := d.Prompt.Input("Group name (or the first part of it)", "")
		if err != nil {
			return nil, err
		}
		matches, err := d.dir.SearchGroups(ctx, namePart)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			message.Warning("No groups match %q, try another name", namePart)
			continue
		}
		options := make([]string, len(matches))
		for i, group := range matches {
			options[i] = group.DisplayName
		}
		idx, err := d.Prompt.Select("Select a group", options)
		if err != nil {
			return nil, err
		}
		return &matches[idx], nil
	}
	message.Warning("No matching group found")
	return nil, errGoBack
}

func (d *Deployer) collectParameters(ctx context.Context) error {
	var err error
	if d.rec.NamingPrefix, err = d.Prompt.Input("Naming prefix", valueOr(d.rec.NamingPrefix, "PAW")); err != nil {
		return err
	}
	if d.vnetAddressRange, err = d.Prompt.Input("Virtual network address range", defaultVnetAddressRange); err != nil {
		return err
	}
	if d.subnetAddressRange, err = d.Prompt.Input("Subnet address range", defaultSubnetAddressRange); err != nil {
		return err
	}

	if d.rec.VirtualNetwork != "" && d.rec.Subnet != "" {
		exists, err := d.rm.SubnetExists(ctx, d.rec.ResourceGroup, d.rec.VirtualNetwork, d.rec.Subnet)
		if err != nil {
			return err
		}
		if !exists {
			message.Warning("Subnet %s/%s from previous run no longer exists", d.rec.VirtualNetwork, d.rec.Subnet)
			d.rec.VirtualNetwork = ""
			d.rec.Subnet = ""
		}
	}
	if d.rec.VirtualNetwork == "" {
		d.rec.VirtualNetwork = d.rec.NamingPrefix + "-vnet"
	}
	if d.rec.Subnet == "" {
		d.rec.Subnet = d.rec.NamingPrefix + "-subnet"
	}

	if d.rec.StorageAccount != "" {
		// A reused name belongs to the previous deployment; only fresh names
		// go through the availability check.
		message.Info("Using storage account from previous run: %s", d.rec.StorageAccount)
	} else {
		if d.rec.StorageAccount, err = resolveStorageAccountName(ctx, d.rm, d.Prompt, ""); err != nil {
			return err
		}
	}

	if d.rec.TemplatePath == "" {
		if d.rec.TemplatePath, err = selectTemplate(d.Settings.TemplateDir, "core", d.Prompt); err != nil {
			return err
		}
	}

	if d.rec.HostPool == "" {
		d.rec.HostPool = d.rec.NamingPrefix + "-hp"
	}
	if d.rec.Workspace == "" {
		d.rec.Workspace = d.rec.NamingPrefix + "-ws"
	}
	if d.rec.ApplicationGroup == "" {
		d.rec.ApplicationGroup = d.rec.NamingPrefix + "-dag"
	}
	return nil
}

func (d *Deployer) deployCore(ctx context.Context) error {
	template, err := readTemplate(d.rec.TemplatePath)
	if err != nil {
		return err
	}

	deploymentName := "paw-core-" + uuid.New().String()[:8]
	message.Info("Deploying core infrastructure (this can take a while)")
	d.Log.Infof("starting deployment %s from %s", deploymentName, d.rec.TemplatePath)

	outputs, err := d.rm.Deploy(ctx, d.rec.ResourceGroup, deploymentName, template, map[string]any{
		"namingPrefix":       d.rec.NamingPrefix,
		"vnetAddressRange":   d.vnetAddressRange,
		"subnetAddressRange": d.subnetAddressRange,
		"storageAccountName": d.rec.StorageAccount,
		"standardGroupId":    d.rec.StandardGroup.ID,
		"elevatedGroupId":    d.rec.ElevatedGroup.ID,
	})
	if err != nil {
		// Surface the failure; the template is idempotent, so a re-run picks
		// up where this one stopped. Nothing is rolled back.
		d.Log.Errorf("deployment %s failed: %v", deploymentName, err)
		return fmt.Errorf("core infrastructure deployment failed: %w", err)
	}
	d.Log.Infof("deployment %s succeeded with %d outputs", deploymentName, len(outputs))
	return nil
}

func (d *Deployer) postDeployConfigure(ctx context.Context) error {
	rgScope := fmt.Sprintf("/subscriptions/%s/resourceGroups/%s", d.rec.SubscriptionID, d.rec.ResourceGroup)

	assignments := []azure.RoleAssignment{
		{Scope: rgScope, RoleDefinitionID: roleDefinitionID(d.rec.SubscriptionID, roleVMUserLogin), PrincipalID: d.rec.StandardGroup.ID, PrincipalType: azure.PrincipalGroup},
		{Scope: rgScope, RoleDefinitionID: roleDefinitionID(d.rec.SubscriptionID, roleVMAdminLogin), PrincipalID: d.rec.ElevatedGroup.ID, PrincipalType: azure.PrincipalGroup},
		{Scope: rgScope, RoleDefinitionID: roleDefinitionID(d.rec.SubscriptionID, roleSMBShareContributor), PrincipalID: d.rec.StandardGroup.ID, PrincipalType: azure.PrincipalGroup},
		{Scope: rgScope, RoleDefinitionID: roleDefinitionID(d.rec.SubscriptionID, roleSMBShareElevatedContrib), PrincipalID: d.rec.ElevatedGroup.ID, PrincipalType: azure.PrincipalGroup},
	}
	if err := ensureRoleAssignments(ctx, d.rm, assignments); err != nil {
		return err
	}

	exists, err := d.avd.ApplicationGroupExists(ctx, d.rec.ResourceGroup, d.rec.ApplicationGroup)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("application group %s was not created by the deployment", d.rec.ApplicationGroup)
	}

	appGroupScope := fmt.Sprintf("%s/providers/Microsoft.DesktopVirtualization/applicationGroups/%s", rgScope, d.rec.ApplicationGroup)
	err = ensureRoleAssignments(ctx, d.rm, []azure.RoleAssignment{
		{Scope: appGroupScope, RoleDefinitionID: roleDefinitionID(d.rec.SubscriptionID, roleDesktopUser), PrincipalID: d.rec.StandardGroup.ID, PrincipalType: azure.PrincipalGroup},
		{Scope: appGroupScope, RoleDefinitionID: roleDefinitionID(d.rec.SubscriptionID, roleDesktopUser), PrincipalID: d.rec.ElevatedGroup.ID, PrincipalType: azure.PrincipalGroup},
	})
	if err != nil {
		return err
	}
	message.Success("Role assignments configured")

	rename, err := d.Prompt.Confirm("Set a friendly name on the published desktop?")
	if err != nil {
		return err
	}
	if rename {
		friendly, err := d.Prompt.Input("Desktop friendly name", d.rec.NamingPrefix+" Desktop")
		if err != nil {
			return err
		}
		if err := d.avd.UpdateDesktopFriendlyName(ctx, d.rec.ResourceGroup, d.rec.ApplicationGroup, friendly); err != nil {
			return err
		}
	}
	return nil
}

// excludeFromAccessPolicies adds the storage account's directory application
// to the exclusion list of every tenant-authored conditional-access policy.
func (d *Deployer) excludeFromAccessPolicies(ctx context.Context) error {
	app, err := d.resolveStorageApplication(ctx)
	if err != nil {
		return err
	}

	policies, err := d.dir.ListAccessPolicies(ctx)
	if err != nil {
		return err
	}
	for _, policy := range policies {
		if isManagedPolicy(policy.DisplayName) {
			continue
		}
		excluded, changed := unionExclusions(policy.ExcludedApps, app.AppID)
		if !changed {
			message.Debug("Policy %s already excludes %s", policy.DisplayName, app.DisplayName)
			continue
		}
		if err := d.dir.SetPolicyExclusions(ctx, policy.ID, excluded); err != nil {
			return err
		}
		message.Info("Excluded %s from policy %s", app.DisplayName, policy.DisplayName)
		d.Log.Infof("added %s to exclusion list of policy %s", app.AppID, policy.ID)
	}
	return nil
}

func (d *Deployer) resolveStorageApplication(ctx context.Context) (*azure.Application, error) {
	exactName := storageApplicationName(d.rec.StorageAccount)
	matches, err := d.dir.ApplicationsByName(ctx, exactName)
	if err != nil {
		return nil, err
	}

	switch len(matches) {
	case 1:
		return &matches[0], nil
	case 0:
		message.Warning("No application named %q, pick it manually", exactName)
		matches, err = d.dir.ApplicationsByPrefix(ctx, "[Storage Account]")
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no storage account applications registered in the directory")
		}
	}

	options := make([]string, len(matches))
	for i, app := range matches {
		options[i] = app.DisplayName
	}
	idx, err := d.Prompt.Select("Select the storage account application", options)
	if err != nil {
		return nil, err
	}
	return &matches[idx], nil
}

func storageApplicationName(storageAccount string) string {
	return fmt.Sprintf("[Storage Account] %s.file.core.windows.net", storageAccount)
}

func isManagedPolicy(displayName string) bool {
	return len(displayName) >= len(managedPolicyPrefix) && displayName[:len(managedPolicyPrefix)] == managedPolicyPrefix
}

// unionExclusions adds appID to the exclusion set. Existing entries are never
// removed; adding an already-present id reports no change.
func unionExclusions(current []string, appID string) ([]string, bool) {
	for _, id := range current {
		if id == appID {
			return current, false
		}
	}
	return append(append([]string{}, current...), appID), true
}

func ensureRoleAssignments(ctx context.Context, rm azure.ResourceManager, assignments []azure.RoleAssignment) error {
	for _, assignment := range assignments {
		if err := rm.EnsureRoleAssignment(ctx, assignment); err != nil {
			return err
		}
	}
	return nil
}

func roleDefinitionID(subscriptionID, roleID string) string {
	return fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Authorization/roleDefinitions/%s", subscriptionID, roleID)
}

func readTemplate(filename string) (map[string]any, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", filename, err)
	}
	var template map[string]any
	if err := json.Unmarshal(raw, &template); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", filename, err)
	}
	return template, nil
}

func valueOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
