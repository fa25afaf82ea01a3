package cm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/imamik/bringup/internal/bringup"
)

var _ bringup.ManagementClient = (*Client)(nil)

// Submit performs the remote call for kind. params must be the matching
// *Params type from this package (or nil for kinds without parameters).
// Synchronous calls return bringup.NoHandle.
func (c *Client) Submit(ctx context.Context, kind bringup.Kind, params any) (bringup.Handle, error) {
	switch kind {
	case bringup.KindRegisterHosts:
		p, err := paramsAs[RegisterHostsParams](kind, params)
		if err != nil {
			return bringup.NoHandle, err
		}
		return bringup.NoHandle, c.RegisterHosts(ctx, p.HostIDs)

	case bringup.KindCreateHostTemplate:
		p, err := paramsAs[CreateHostTemplateParams](kind, params)
		if err != nil {
			return bringup.NoHandle, err
		}
		return bringup.NoHandle, c.CreateHostTemplate(ctx, p.Name, p.RoleConfigGroups)

	case bringup.KindApplyHostTemplate:
		p, err := paramsAs[ApplyHostTemplateParams](kind, params)
		if err != nil {
			return bringup.NoHandle, err
		}
		return c.commandHandle(c.ApplyHostTemplate(ctx, p.Template, p.HostIDs, p.StartRoles))

	case bringup.KindUpdateServiceConfig:
		p, err := paramsAs[ServiceConfigParams](kind, params)
		if err != nil {
			return bringup.NoHandle, err
		}
		return bringup.NoHandle, c.UpdateServiceConfig(ctx, p.Service, p.Config)

	case bringup.KindUpdateRoleGroupConfig:
		p, err := paramsAs[RoleConfigGroupParams](kind, params)
		if err != nil {
			return bringup.NoHandle, err
		}
		return bringup.NoHandle, c.UpdateRoleConfigGroupConfig(ctx, p.Service, p.Group, p.Config)

	case bringup.KindUpdateManagementConfig:
		p, err := paramsAs[ManagementConfigParams](kind, params)
		if err != nil {
			return bringup.NoHandle, err
		}
		return bringup.NoHandle, c.UpdateManagementConfig(ctx, p.Config)

	case bringup.KindDeployClientConfig:
		return c.commandHandle(c.DeployClientConfig(ctx))

	case bringup.KindStartService:
		p, err := paramsAs[ServiceCommandParams](kind, params)
		if err != nil {
			return bringup.NoHandle, err
		}
		return c.commandHandle(c.ServiceCommand(ctx, p.Service, p.Command))

	case bringup.KindStartManagementService:
		return c.commandHandle(c.ManagementServiceCommand(ctx, "start"))

	case bringup.KindStopManagementService:
		return c.commandHandle(c.ManagementServiceCommand(ctx, "stop"))

	default:
		return bringup.NoHandle, fmt.Errorf("unsupported operation kind %q", kind)
	}
}

// OperationStatus implements bringup.StatusReader.
func (c *Client) OperationStatus(ctx context.Context, handle bringup.Handle) (bringup.RemoteStatus, error) {
	cmd, err := c.Command(ctx, string(handle))
	if err != nil {
		return bringup.RemoteStatus{}, err
	}
	return bringup.RemoteStatus{Active: cmd.Active, Success: cmd.Success, Message: cmd.ResultMessage}, nil
}

func paramsAs[T any](kind bringup.Kind, params any) (T, error) {
	switch p := params.(type) {
	case T:
		return p, nil
	case *T:
		if p != nil {
			return *p, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%s: unexpected parameters %T, want %T", kind, params, zero)
}

func (c *Client) commandHandle(cmd Command, err error) (bringup.Handle, error) {
	if err != nil {
		return bringup.NoHandle, err
	}
	return bringup.Handle(strconv.FormatInt(cmd.ID, 10)), nil
}

// RegisterHosts adds hosts to the cluster. The call is synchronous.
func (c *Client) RegisterHosts(ctx context.Context, hostIDs []string) error {
	body := itemList[hostRef]{}
	for _, id := range hostIDs {
		body.Items = append(body.Items, hostRef{HostID: id})
	}
	return c.do(ctx, "add_cluster_hosts", http.MethodPost, c.clusterPath("hosts"), nil, body, nil)
}

// CreateHostTemplate creates a host template from role config group names.
func (c *Client) CreateHostTemplate(ctx context.Context, name string, roleConfigGroups []string) error {
	tmpl := HostTemplate{Name: name}
	for _, g := range roleConfigGroups {
		tmpl.RoleConfigGroupRefs = append(tmpl.RoleConfigGroupRefs, RoleConfigGroupRef{RoleConfigGroupName: g})
	}
	body := itemList[HostTemplate]{Items: []HostTemplate{tmpl}}
	return c.do(ctx, "create_host_template", http.MethodPost, c.clusterPath("hostTemplates"), nil, body, nil)
}

// ApplyHostTemplate applies a host template to hosts.
func (c *Client) ApplyHostTemplate(ctx context.Context, template string, hostIDs []string, startRoles bool) (Command, error) {
	body := itemList[hostRef]{}
	for _, id := range hostIDs {
		body.Items = append(body.Items, hostRef{HostID: id})
	}
	query := url.Values{"startRoles": {strconv.FormatBool(startRoles)}}
	var cmd Command
	err := c.do(ctx, "apply_host_template", http.MethodPost,
		c.clusterPath("hostTemplates", template, "commands", "applyHostTemplate"), query, body, &cmd)
	return cmd, err
}

// UpdateServiceConfig sets service-level configuration values.
func (c *Client) UpdateServiceConfig(ctx context.Context, service string, config map[string]string) error {
	return c.do(ctx, "update_service_config", http.MethodPut,
		c.clusterPath("services", service, "config"), nil, configItems(config), nil)
}

// UpdateRoleConfigGroupConfig sets configuration values of a role config group.
func (c *Client) UpdateRoleConfigGroupConfig(ctx context.Context, service, group string, config map[string]string) error {
	return c.do(ctx, "update_role_config_group_config", http.MethodPut,
		c.clusterPath("services", service, "roleConfigGroups", group, "config"), nil, configItems(config), nil)
}

// UpdateManagementConfig sets management server configuration values.
func (c *Client) UpdateManagementConfig(ctx context.Context, config map[string]string) error {
	return c.do(ctx, "update_cm_config", http.MethodPut, c.apiPath("cm", "config"), nil, configItems(config), nil)
}

// DeployClientConfig deploys client configuration to every host.
func (c *Client) DeployClientConfig(ctx context.Context) (Command, error) {
	var cmd Command
	err := c.do(ctx, "deploy_client_config", http.MethodPost, c.clusterPath("commands", "deployClientConfig"), nil, nil, &cmd)
	return cmd, err
}

// ServiceCommand runs a named service command, e.g. "start".
func (c *Client) ServiceCommand(ctx context.Context, service, command string) (Command, error) {
	var cmd Command
	err := c.do(ctx, "service_command", http.MethodPost, c.clusterPath("services", service, "commands", command), nil, nil, &cmd)
	return cmd, err
}

// ManagementServiceCommand runs a command on the management service.
func (c *Client) ManagementServiceCommand(ctx context.Context, command string) (Command, error) {
	var cmd Command
	err := c.do(ctx, "cm_service_command", http.MethodPost, c.apiPath("cm", "service", "commands", command), nil, nil, &cmd)
	return cmd, err
}

// configItems renders config in key order so requests are deterministic.
func configItems(config map[string]string) itemList[configItem] {
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	body := itemList[configItem]{Items: make([]configItem, 0, len(keys))}
	for _, k := range keys {
		body.Items = append(body.Items, configItem{Name: k, Value: config[k]})
	}
	return body
}
