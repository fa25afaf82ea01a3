package cm

// Wire types. Only the fields the bring-up uses are modelled.

type itemList[T any] struct {
	Items []T `json:"items"`
}

// Host is a host known to the management server.
type Host struct {
	HostID    string    `json:"hostId"`
	Hostname  string    `json:"hostname"`
	IPAddress string    `json:"ipAddress,omitempty"`
	RoleRefs  []RoleRef `json:"roleRefs,omitempty"`
}

// RoleRef references a role running on a host.
type RoleRef struct {
	ClusterName string `json:"clusterName,omitempty"`
	ServiceName string `json:"serviceName"`
	RoleName    string `json:"roleName"`
}

type hostRef struct {
	HostID   string `json:"hostId"`
	Hostname string `json:"hostname,omitempty"`
}

// HostTemplate is a named set of role config groups.
type HostTemplate struct {
	Name                string               `json:"name"`
	RoleConfigGroupRefs []RoleConfigGroupRef `json:"roleConfigGroupRefs,omitempty"`
}

// RoleConfigGroupRef references a role config group by name.
type RoleConfigGroupRef struct {
	RoleConfigGroupName string `json:"roleConfigGroupName"`
}

// RoleConfigGroup is a role config group of a service.
type RoleConfigGroup struct {
	Name     string `json:"name"`
	RoleType string `json:"roleType"`
	Base     bool   `json:"base,omitempty"`
}

// Parcel is a software bundle distributed to the cluster.
type Parcel struct {
	Product string `json:"product"`
	Version string `json:"version"`
	Stage   string `json:"stage"`
}

// Parcel stages used by the bring-up.
const (
	ParcelActivating = "ACTIVATING"
	ParcelActivated  = "ACTIVATED"
)

// Service is a cluster service or the management service.
type Service struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	ServiceState  string `json:"serviceState,omitempty"`
	HealthSummary string `json:"healthSummary,omitempty"`
}

// Service states and health summaries used by the bring-up.
const (
	ServiceStarted   = "STARTED"
	ServiceStateNA   = "NA"
	HealthGood       = "GOOD"
	HealthNotAvail   = "NOT_AVAILABLE"
	HealthConcerning = "CONCERNING"
	HealthBad        = "BAD"
)

// Command is an asynchronous server-side command.
type Command struct {
	ID            int64  `json:"id"`
	Name          string `json:"name,omitempty"`
	Active        bool   `json:"active"`
	Success       bool   `json:"success"`
	ResultMessage string `json:"resultMessage,omitempty"`
}

type configItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type apiError struct {
	Message string `json:"message"`
}
