package wizard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/pawops/paw-wizard/internal/azure"
	"github.com/pawops/paw-wizard/internal/message"
	"github.com/pawops/paw-wizard/internal/session"
	"github.com/pawops/paw-wizard/internal/settings"
)

// tokenLifetime is the forward expiration of the host-pool registration token
// minted once per batch.
const tokenLifetime = 24 * time.Hour

// HostRequest is one user's requested personal workstation. It lives only for
// the duration of a run.
type HostRequest struct {
	FirstName string
	LastName  string
	UPN       string
}

// HostResult records the outcome of one request. Skipped means the VM already
// existed and provisioning was short-circuited; configuration steps still ran.
type HostResult struct {
	VMName  string
	UPN     string
	Skipped bool
	Err     error
}

// PoolConfig carries everything the batch needs, resolved from the persisted
// record and the variant settings.
type PoolConfig struct {
	SubscriptionID string
	ResourceGroup  string
	Region         string
	HostPool       string
	NamingPrefix   string
	VirtualNetwork string
	Subnet         string
	TemplatePath   string
	AdminUser      string
	AdminPassword  string
	DNSServers     []string
	PrepScriptURL  string
	StandardGroup  session.GroupRef
	ElevatedGroup  session.GroupRef

	ShutdownTime     string
	ShutdownTimeZone string
	TagScope         string
	TagValue         string
}

// HostManager runs the per-batch session-host lifecycle. No step is
// transactional: every per-host failure is recorded and the batch moves on.
type HostManager struct {
	RM     azure.ResourceManager
	Dir    azure.Directory
	AVD    azure.DesktopService
	Prompt Prompter
	Log    *logrus.Logger

	now func() time.Time
}

func (m *HostManager) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

// ProvisionHosts provisions and configures one session host per request. One
// registration token is minted for the whole batch and revoked when the batch
// finishes, whatever happened to the individual hosts.
func (m *HostManager) ProvisionHosts(ctx context.Context, requests []HostRequest, cfg PoolConfig) ([]HostResult, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("no session host requests")
	}

	template, err := readTemplate(cfg.TemplatePath)
	if err != nil {
		return nil, err
	}

	if cfg.PrepScriptURL != "" {
		if err := probePrepScript(ctx, cfg.PrepScriptURL); err != nil {
			return nil, err
		}
	}

	token, err := m.AVD.MintRegistrationToken(ctx, cfg.ResourceGroup, cfg.HostPool, m.clock().Add(tokenLifetime))
	if err != nil {
		return nil, fmt.Errorf("failed to mint registration token: %w", err)
	}
	m.Log.Infof("registration token minted for host pool %s", cfg.HostPool)

	defer func() {
		// Always close the join window, even when every host failed or the
		// run was cancelled between calls.
		if err := m.AVD.RevokeRegistrationToken(context.WithoutCancel(ctx), cfg.ResourceGroup, cfg.HostPool); err != nil {
			message.Error("Failed to revoke registration token: %v", err)
			m.Log.Errorf("failed to revoke registration token: %v", err)
		} else {
			m.Log.Infof("registration token revoked for host pool %s", cfg.HostPool)
		}
	}()

	results := make([]HostResult, len(requests))
	for i, request := range requests {
		results[i] = m.provisionOne(ctx, request, cfg, template, token)
		if ctx.Err() != nil {
			break
		}
	}

	m.configureHosts(ctx, requests, results, cfg)

	var batchErr *multierror.Error
	for _, result := range results {
		if result.Err != nil {
			batchErr = multierror.Append(batchErr, fmt.Errorf("%s: %w", result.VMName, result.Err))
		}
	}
	return results, batchErr.ErrorOrNil()
}

func (m *HostManager) provisionOne(ctx context.Context, request HostRequest, cfg PoolConfig, template map[string]any, token string) HostResult {
	result := HostResult{
		VMName: deriveVMName(cfg.NamingPrefix, request.FirstName, request.LastName),
		UPN:    request.UPN,
	}

	exists, err := m.RM.VirtualMachineExists(ctx, cfg.ResourceGroup, result.VMName)
	if err != nil {
		result.Err = err
		return result
	}
	if exists {
		message.Info("VM %s already exists, skipping provisioning", result.VMName)
		m.Log.Infof("%s already exists, provisioning skipped", result.VMName)
		result.Skipped = true
		return result
	}

	message.Info("Provisioning session host %s for %s", result.VMName, request.UPN)
	deploymentName := result.VMName + "-" + uuid.New().String()[:8]
	_, err = m.RM.Deploy(ctx, cfg.ResourceGroup, deploymentName, template, map[string]any{
		"vmName":            result.VMName,
		"namingPrefix":      cfg.NamingPrefix,
		"adminUser":         cfg.AdminUser,
		"adminPassword":     cfg.AdminPassword,
		"userFirstName":     request.FirstName,
		"userLastName":      request.LastName,
		"userPrincipalName": request.UPN,
		"registrationToken": token,
		"virtualNetwork":    cfg.VirtualNetwork,
		"subnet":            cfg.Subnet,
		"dnsServers":        cfg.DNSServers,
		"prepScriptUrl":     cfg.PrepScriptURL,
	})
	if err != nil {
		// The batch keeps going; this host is reported at the end.
		message.Error("Provisioning of %s failed: %v", result.VMName, err)
		m.Log.Errorf("deployment of %s failed: %v", result.VMName, err)
		result.Err = err
	}
	return result
}

// configureHosts runs the post-provisioning steps (assignment, group
// membership, auto-shutdown, device tagging) for every host that provisioned
// or already existed.
func (m *HostManager) configureHosts(ctx context.Context, requests []HostRequest, results []HostResult, cfg PoolConfig) {
	for i := range results {
		if results[i].Err != nil {
			continue
		}
		if err := m.AVD.AssignSessionHost(ctx, cfg.ResourceGroup, cfg.HostPool, results[i].VMName, results[i].UPN); err != nil {
			message.Error("Failed to assign %s to %s: %v", results[i].VMName, results[i].UPN, err)
			m.Log.Errorf("assignment of %s failed: %v", results[i].VMName, err)
			results[i].Err = err
		}
	}

	for i := range results {
		if results[i].Err != nil {
			continue
		}
		m.addGroupMemberships(ctx, requests[i], cfg)
	}

	for i := range results {
		if results[i].Err != nil {
			continue
		}
		err := m.RM.EnsureAutoShutdown(ctx, cfg.ResourceGroup, cfg.Region, results[i].VMName,
			cfg.ShutdownTime, cfg.ShutdownTimeZone, results[i].UPN)
		if err != nil {
			message.Error("Failed to configure auto-shutdown for %s: %v", results[i].VMName, err)
			m.Log.Errorf("auto-shutdown for %s failed: %v", results[i].VMName, err)
		}
	}

	m.tagDevices(ctx, results, cfg)
}

func (m *HostManager) addGroupMemberships(ctx context.Context, request HostRequest, cfg PoolConfig) {
	choices, err := m.Prompt.MultiSelect(
		fmt.Sprintf("Directory groups for %s", request.UPN),
		[]string{cfg.StandardGroup.DisplayName, cfg.ElevatedGroup.DisplayName},
	)
	if err != nil {
		message.Error("Failed to read group selection for %s: %v", request.UPN, err)
		return
	}
	if len(choices) == 0 {
		return
	}

	user, err := m.Dir.UserByPrincipalName(ctx, request.UPN)
	if err != nil {
		// A missing user only affects this request.
		message.Error("User %s not found in the directory: %v", request.UPN, err)
		m.Log.Errorf("directory lookup of %s failed: %v", request.UPN, err)
		return
	}

	for _, choice := range choices {
		groupID := cfg.StandardGroup.ID
		if choice == cfg.ElevatedGroup.DisplayName {
			groupID = cfg.ElevatedGroup.ID
		}
		if err := m.Dir.EnsureGroupMember(ctx, groupID, user.ID); err != nil {
			message.Error("Failed to add %s to group %s: %v", request.UPN, choice, err)
			m.Log.Errorf("group membership for %s failed: %v", request.UPN, err)
			continue
		}
		m.Log.Infof("%s added to group %s", request.UPN, choice)
	}
}

// tagDevices marks the directory devices backing this deployment. The scope is
// configurable: the resource-group scope intentionally tags every device whose
// display name starts with the resource group name, so shared naming prefixes
// get over-tagged.
func (m *HostManager) tagDevices(ctx context.Context, results []HostResult, cfg PoolConfig) {
	prefixes := []string{cfg.ResourceGroup}
	if cfg.TagScope == settings.TagScopeBatch {
		prefixes = prefixes[:0]
		for _, result := range results {
			if result.Err == nil {
				prefixes = append(prefixes, result.VMName)
			}
		}
	}

	for _, prefix := range prefixes {
		deviceList, err := m.Dir.DevicesByPrefix(ctx, prefix)
		if err != nil {
			message.Error("Failed to list devices with prefix %s: %v", prefix, err)
			continue
		}
		for _, device := range deviceList {
			if err := m.Dir.TagDevice(ctx, device.ID, cfg.TagValue); err != nil {
				message.Error("Failed to tag device %s: %v", device.DisplayName, err)
				continue
			}
			m.Log.Infof("device %s tagged %s", device.DisplayName, cfg.TagValue)
		}
	}
}
