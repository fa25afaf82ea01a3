package handlers

import (
	"context"
	"errors"

	"github.com/imamik/bringup/internal/bringup"
	"github.com/imamik/bringup/internal/orchestration"
	"github.com/imamik/bringup/internal/platform/cm"
)

var errPlanOnly = errors.New("management plane is not contacted while planning")

// planOnly is the management plane used to build a plan. Every call fails.
type planOnly struct{}

var _ orchestration.Management = planOnly{}

func (planOnly) Submit(context.Context, bringup.Kind, any) (bringup.Handle, error) {
	return bringup.NoHandle, errPlanOnly
}

func (planOnly) OperationStatus(context.Context, bringup.Handle) (bringup.RemoteStatus, error) {
	return bringup.RemoteStatus{}, errPlanOnly
}

func (planOnly) Version(context.Context) (string, error) { return "", errPlanOnly }

func (planOnly) Hosts(context.Context) ([]cm.Host, error) { return nil, errPlanOnly }

func (planOnly) ClusterHosts(context.Context) ([]cm.Host, error) { return nil, errPlanOnly }

func (planOnly) HostTemplates(context.Context) ([]cm.HostTemplate, error) { return nil, errPlanOnly }

func (planOnly) Parcels(context.Context) ([]cm.Parcel, error) { return nil, errPlanOnly }

func (planOnly) Services(context.Context) ([]cm.Service, error) { return nil, errPlanOnly }

func (planOnly) RoleConfigGroups(context.Context, string) ([]cm.RoleConfigGroup, error) {
	return nil, errPlanOnly
}

func (planOnly) ManagementService(context.Context) (cm.Service, error) {
	return cm.Service{}, errPlanOnly
}
