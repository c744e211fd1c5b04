package session

import "time"

const (
	stateFileName      = ".paw-wizard-state"
	stateFileDirectory = ".paw-wizard"
)

// GroupRef points at an identity-directory group for one of the two roles.
type GroupRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Record is the resumable deployment configuration persisted at the end of a
// successful core-infrastructure run and read back by later runs. Every field
// is either verified against the live tenant or syntactically validated before
// it is recorded.
type Record struct {
	TenantID         string    `json:"tenantId"`
	SubscriptionID   string    `json:"subscriptionId"`
	SubscriptionName string    `json:"subscriptionName"`
	ResourceGroup    string    `json:"resourceGroup"`
	Region           string    `json:"region"`
	VirtualNetwork   string    `json:"virtualNetwork"`
	Subnet           string    `json:"subnet"`
	NamingPrefix     string    `json:"namingPrefix"`
	StorageAccount   string    `json:"storageAccount"`
	StandardGroup    GroupRef  `json:"standardGroup"`
	ElevatedGroup    GroupRef  `json:"elevatedGroup"`
	TemplatePath     string    `json:"templatePath"`
	HostPool         string    `json:"hostPool"`
	Workspace        string    `json:"workspace"`
	ApplicationGroup string    `json:"applicationGroup"`
	SavedAt          time.Time `json:"savedAt"`
}
