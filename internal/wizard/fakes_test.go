package wizard

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pawops/paw-wizard/internal/azure"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakePrompter replays scripted answers; exhausted scripts fall back to the
// default (blank input, first option, yes, all options).
type fakePrompter struct {
	inputs      []string
	selects     []int
	confirms    []bool
	multis      [][]string
	passwords   []string
	inputCalls  int
	selectCalls int
}

func (p *fakePrompter) Input(msg, defaultValue string) (string, error) {
	p.inputCalls++
	if len(p.inputs) == 0 {
		return defaultValue, nil
	}
	answer := p.inputs[0]
	p.inputs = p.inputs[1:]
	if answer == "" {
		return defaultValue, nil
	}
	return answer, nil
}

func (p *fakePrompter) Select(msg string, options []string) (int, error) {
	p.selectCalls++
	if len(p.selects) == 0 {
		return 0, nil
	}
	idx := p.selects[0]
	p.selects = p.selects[1:]
	return idx, nil
}

func (p *fakePrompter) Confirm(msg string) (bool, error) {
	if len(p.confirms) == 0 {
		return true, nil
	}
	answer := p.confirms[0]
	p.confirms = p.confirms[1:]
	return answer, nil
}

func (p *fakePrompter) MultiSelect(msg string, options []string) ([]string, error) {
	if len(p.multis) == 0 {
		return options, nil
	}
	answer := p.multis[0]
	p.multis = p.multis[1:]
	return answer, nil
}

func (p *fakePrompter) Password(msg string) (string, error) {
	if len(p.passwords) == 0 {
		return "hunter2hunter2", nil
	}
	answer := p.passwords[0]
	p.passwords = p.passwords[1:]
	return answer, nil
}

type fakeFactory struct {
	subs []azure.Subscription
	rm   *fakeRM
	dir  *fakeDirectory
	avd  *fakeDesktop
}

func (f *fakeFactory) ListSubscriptions(ctx context.Context) ([]azure.Subscription, error) {
	return f.subs, nil
}

func (f *fakeFactory) ResourceManager(subscriptionID string) (azure.ResourceManager, error) {
	return f.rm, nil
}

func (f *fakeFactory) Directory() (azure.Directory, error) {
	return f.dir, nil
}

func (f *fakeFactory) Desktop(subscriptionID string) (azure.DesktopService, error) {
	return f.avd, nil
}

type fakeRM struct {
	events *[]string

	resourceGroups []azure.ResourceGroup
	subnetExists   bool
	existingVMs    map[string]bool
	unavailable    map[string]bool
	deployErrFor   map[string]error
	assignments    map[azure.RoleAssignment]int
	shutdowns      []string
	storageChecks  []string
}

func (f *fakeRM) record(event string) {
	if f.events != nil {
		*f.events = append(*f.events, event)
	}
}

func (f *fakeRM) ListResourceGroups(ctx context.Context) ([]azure.ResourceGroup, error) {
	return f.resourceGroups, nil
}

func (f *fakeRM) GetResourceGroup(ctx context.Context, name string) (*azure.ResourceGroup, error) {
	for _, rg := range f.resourceGroups {
		if rg.Name == name {
			return &rg, nil
		}
	}
	return nil, nil
}

func (f *fakeRM) CreateResourceGroup(ctx context.Context, name, region string) error {
	f.resourceGroups = append(f.resourceGroups, azure.ResourceGroup{Name: name, Region: region})
	return nil
}

func (f *fakeRM) SubnetExists(ctx context.Context, resourceGroup, vnet, subnet string) (bool, error) {
	return f.subnetExists, nil
}

func (f *fakeRM) VirtualMachineExists(ctx context.Context, resourceGroup, name string) (bool, error) {
	f.record("exists:" + name)
	return f.existingVMs[name], nil
}

func (f *fakeRM) StorageNameAvailable(ctx context.Context, name string) (bool, error) {
	f.storageChecks = append(f.storageChecks, name)
	return !f.unavailable[name], nil
}

func (f *fakeRM) Deploy(ctx context.Context, resourceGroup, deploymentName string, template, parameters map[string]any) (map[string]any, error) {
	name, _ := parameters["vmName"].(string)
	f.record("deploy:" + name)
	if err := f.deployErrFor[name]; err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

func (f *fakeRM) EnsureRoleAssignment(ctx context.Context, assignment azure.RoleAssignment) error {
	if f.assignments == nil {
		f.assignments = map[azure.RoleAssignment]int{}
	}
	// Re-assigning an existing triple is a no-op, mirroring the remote
	// service's RoleAssignmentExists behavior.
	if f.assignments[assignment] == 0 {
		f.assignments[assignment] = 1
	}
	return nil
}

func (f *fakeRM) EnsureAutoShutdown(ctx context.Context, resourceGroup, region, vmName, timeOfDay, timeZone, notifyUPN string) error {
	f.record("shutdown:" + vmName)
	f.shutdowns = append(f.shutdowns, vmName)
	return nil
}

type fakeDirectory struct {
	searches      []string
	searchResults map[string][]azure.Group
	groupsByID    map[string]azure.Group
	users         map[string]azure.User
	userErr       map[string]error
	members       map[string][]string
	devices       map[string][]azure.Device
	tagged        map[string]string
	appsByName    map[string][]azure.Application
	appsByPrefix  map[string][]azure.Application
	policies      []azure.AccessPolicy
	policySets    map[string][][]string
}

func (f *fakeDirectory) SearchGroups(ctx context.Context, namePart string) ([]azure.Group, error) {
	f.searches = append(f.searches, namePart)
	return f.searchResults[namePart], nil
}

func (f *fakeDirectory) GetGroup(ctx context.Context, id string) (*azure.Group, error) {
	if g, ok := f.groupsByID[id]; ok {
		return &g, nil
	}
	return nil, nil
}

func (f *fakeDirectory) CreateGroup(ctx context.Context, displayName, description string) (*azure.Group, error) {
	return &azure.Group{ID: "new-" + displayName, DisplayName: displayName}, nil
}

func (f *fakeDirectory) EnsureGroupMember(ctx context.Context, groupID, objectID string) error {
	if f.members == nil {
		f.members = map[string][]string{}
	}
	for _, member := range f.members[groupID] {
		if member == objectID {
			return nil
		}
	}
	f.members[groupID] = append(f.members[groupID], objectID)
	return nil
}

func (f *fakeDirectory) UserByPrincipalName(ctx context.Context, upn string) (*azure.User, error) {
	if err := f.userErr[upn]; err != nil {
		return nil, err
	}
	if u, ok := f.users[upn]; ok {
		return &u, nil
	}
	return &azure.User{ID: "id-" + upn, PrincipalName: upn}, nil
}

func (f *fakeDirectory) DevicesByPrefix(ctx context.Context, prefix string) ([]azure.Device, error) {
	return f.devices[prefix], nil
}

func (f *fakeDirectory) TagDevice(ctx context.Context, deviceID, value string) error {
	if f.tagged == nil {
		f.tagged = map[string]string{}
	}
	f.tagged[deviceID] = value
	return nil
}

func (f *fakeDirectory) ApplicationsByName(ctx context.Context, displayName string) ([]azure.Application, error) {
	return f.appsByName[displayName], nil
}

func (f *fakeDirectory) ApplicationsByPrefix(ctx context.Context, prefix string) ([]azure.Application, error) {
	return f.appsByPrefix[prefix], nil
}

func (f *fakeDirectory) ListAccessPolicies(ctx context.Context) ([]azure.AccessPolicy, error) {
	return f.policies, nil
}

func (f *fakeDirectory) SetPolicyExclusions(ctx context.Context, policyID string, appIDs []string) error {
	if f.policySets == nil {
		f.policySets = map[string][][]string{}
	}
	f.policySets[policyID] = append(f.policySets[policyID], appIDs)
	for i := range f.policies {
		if f.policies[i].ID == policyID {
			f.policies[i].ExcludedApps = appIDs
		}
	}
	return nil
}

type fakeDesktop struct {
	events *[]string

	mintErr        error
	mintCalls      int
	revokeCalls    int
	tokenExpiry    time.Time
	assigned       map[string]string
	assignErrFor   map[string]error
	appGroupExists bool
}

func (f *fakeDesktop) record(event string) {
	if f.events != nil {
		*f.events = append(*f.events, event)
	}
}

func (f *fakeDesktop) MintRegistrationToken(ctx context.Context, resourceGroup, hostPool string, expiresAt time.Time) (string, error) {
	f.mintCalls++
	f.tokenExpiry = expiresAt
	f.record("mint")
	if f.mintErr != nil {
		return "", f.mintErr
	}
	return "reg-token", nil
}

func (f *fakeDesktop) RevokeRegistrationToken(ctx context.Context, resourceGroup, hostPool string) error {
	f.revokeCalls++
	f.record("revoke")
	return nil
}

func (f *fakeDesktop) AssignSessionHost(ctx context.Context, resourceGroup, hostPool, sessionHost, upn string) error {
	f.record("assign:" + sessionHost)
	if err := f.assignErrFor[sessionHost]; err != nil {
		return err
	}
	if f.assigned == nil {
		f.assigned = map[string]string{}
	}
	f.assigned[sessionHost] = upn
	return nil
}

func (f *fakeDesktop) ApplicationGroupExists(ctx context.Context, resourceGroup, name string) (bool, error) {
	return f.appGroupExists, nil
}

func (f *fakeDesktop) UpdateDesktopFriendlyName(ctx context.Context, resourceGroup, applicationGroup, friendlyName string) error {
	return nil
}
