package cm

import (
	"context"
	"net/http"
	"net/url"
)

// Version returns the highest API version the server supports, e.g. "v19".
// It is the cheapest call the server answers and serves as a liveness probe.
func (c *Client) Version(ctx context.Context) (string, error) {
	var v string
	err := c.do(ctx, "version", http.MethodGet, "/api/version", nil, nil, &v)
	return v, err
}

// Hosts returns every host known to the management server, with role refs.
func (c *Client) Hosts(ctx context.Context) ([]Host, error) {
	var list itemList[Host]
	err := c.get(ctx, "get_hosts", c.apiPath("hosts"), url.Values{"view": {"full"}}, &list)
	return list.Items, err
}

// ClusterHosts returns the hosts that are members of the cluster.
func (c *Client) ClusterHosts(ctx context.Context) ([]Host, error) {
	var list itemList[Host]
	err := c.get(ctx, "get_cluster_hosts", c.clusterPath("hosts"), nil, &list)
	return list.Items, err
}

// HostTemplates returns the cluster's host templates.
func (c *Client) HostTemplates(ctx context.Context) ([]HostTemplate, error) {
	var list itemList[HostTemplate]
	err := c.get(ctx, "get_host_templates", c.clusterPath("hostTemplates"), nil, &list)
	return list.Items, err
}

// Parcels returns the cluster's parcels.
func (c *Client) Parcels(ctx context.Context) ([]Parcel, error) {
	var list itemList[Parcel]
	err := c.get(ctx, "get_parcels", c.clusterPath("parcels"), nil, &list)
	return list.Items, err
}

// Services returns the cluster's services.
func (c *Client) Services(ctx context.Context) ([]Service, error) {
	var list itemList[Service]
	err := c.get(ctx, "get_services", c.clusterPath("services"), nil, &list)
	return list.Items, err
}

// RoleConfigGroups returns the role config groups of a service.
func (c *Client) RoleConfigGroups(ctx context.Context, service string) ([]RoleConfigGroup, error) {
	var list itemList[RoleConfigGroup]
	err := c.get(ctx, "get_role_config_groups", c.clusterPath("services", service, "roleConfigGroups"), nil, &list)
	return list.Items, err
}

// ManagementService returns the management service.
func (c *Client) ManagementService(ctx context.Context) (Service, error) {
	var svc Service
	err := c.get(ctx, "get_cm_service", c.apiPath("cm", "service"), nil, &svc)
	return svc, err
}

// Command returns the state of a command. It is not retried: callers poll it.
func (c *Client) Command(ctx context.Context, id string) (Command, error) {
	var cmd Command
	err := c.do(ctx, "get_command", http.MethodGet, c.apiPath("commands", id), nil, nil, &cmd)
	return cmd, err
}
