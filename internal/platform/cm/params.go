package cm

// Submit parameters, one type per operation kind.

// RegisterHostsParams adds hosts to the cluster.
type RegisterHostsParams struct {
	HostIDs []string
}

// CreateHostTemplateParams creates a host template.
type CreateHostTemplateParams struct {
	Name             string
	RoleConfigGroups []string
}

// ApplyHostTemplateParams applies a host template to hosts.
type ApplyHostTemplateParams struct {
	Template   string
	HostIDs    []string
	StartRoles bool
}

// ServiceConfigParams updates service-level configuration.
type ServiceConfigParams struct {
	Service string
	Config  map[string]string
}

// RoleConfigGroupParams updates a role config group's configuration.
type RoleConfigGroupParams struct {
	Service string
	Group   string
	Config  map[string]string
}

// ManagementConfigParams updates the management server configuration.
type ManagementConfigParams struct {
	Config map[string]string
}

// ServiceCommandParams runs a named service command such as "start".
type ServiceCommandParams struct {
	Service string
	Command string
}
