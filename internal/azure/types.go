package azure

type Subscription struct {
	ID          string
	DisplayName string
}

type ResourceGroup struct {
	Name   string
	Region string
}

type Group struct {
	ID          string
	DisplayName string
}

type User struct {
	ID            string
	PrincipalName string
	DisplayName   string
}

type Device struct {
	ID          string
	DisplayName string
}

type Application struct {
	ID          string
	AppID       string
	DisplayName string
}

// AccessPolicy is a tenant-wide conditional-access policy with the application
// ids currently excluded from it.
type AccessPolicy struct {
	ID           string
	DisplayName  string
	ExcludedApps []string
}

type PrincipalType string

const (
	PrincipalGroup PrincipalType = "Group"
	PrincipalUser  PrincipalType = "User"
)

// RoleAssignment identifies one (principal, role, scope) triple. Creating the
// same triple twice is a no-op.
type RoleAssignment struct {
	Scope            string
	RoleDefinitionID string
	PrincipalID      string
	PrincipalType    PrincipalType
}
