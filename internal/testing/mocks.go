package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/bringup/internal/bringup"
	"github.com/imamik/bringup/internal/platform/cm"
)

// MockManagement is a mock implementation of the management plane used by
// the workflow. It can be used across all tests that need to script remote
// behavior call by call.
type MockManagement struct {
	mock.Mock
}

var _ bringup.ManagementClient = (*MockManagement)(nil)

// Submit records a submission.
func (m *MockManagement) Submit(ctx context.Context, kind bringup.Kind, params any) (bringup.Handle, error) {
	args := m.Called(ctx, kind, params)
	return args.Get(0).(bringup.Handle), args.Error(1)
}

// OperationStatus returns a scripted status.
func (m *MockManagement) OperationStatus(ctx context.Context, handle bringup.Handle) (bringup.RemoteStatus, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(bringup.RemoteStatus), args.Error(1)
}

// Version returns a mock API version.
func (m *MockManagement) Version(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// Hosts returns mock hosts.
func (m *MockManagement) Hosts(ctx context.Context) ([]cm.Host, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cm.Host), args.Error(1)
}

// ClusterHosts returns mock cluster members.
func (m *MockManagement) ClusterHosts(ctx context.Context) ([]cm.Host, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cm.Host), args.Error(1)
}

// HostTemplates returns mock host templates.
func (m *MockManagement) HostTemplates(ctx context.Context) ([]cm.HostTemplate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cm.HostTemplate), args.Error(1)
}

// Parcels returns mock parcels.
func (m *MockManagement) Parcels(ctx context.Context) ([]cm.Parcel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cm.Parcel), args.Error(1)
}

// Services returns mock services.
func (m *MockManagement) Services(ctx context.Context) ([]cm.Service, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cm.Service), args.Error(1)
}

// RoleConfigGroups returns mock role config groups.
func (m *MockManagement) RoleConfigGroups(ctx context.Context, service string) ([]cm.RoleConfigGroup, error) {
	args := m.Called(ctx, service)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cm.RoleConfigGroup), args.Error(1)
}

// ManagementService returns the mock management service.
func (m *MockManagement) ManagementService(ctx context.Context) (cm.Service, error) {
	args := m.Called(ctx)
	return args.Get(0).(cm.Service), args.Error(1)
}

// NewMockManagement creates a MockManagement whose API answers.
func NewMockManagement() *MockManagement {
	m := &MockManagement{}
	m.On("Version", mock.Anything).Return("v19", nil).Maybe()
	return m
}

// WithHosts configures the hosts known to the server and the cluster members.
func (m *MockManagement) WithHosts(known []cm.Host, members []cm.Host) *MockManagement {
	m.On("Hosts", mock.Anything).Return(known, nil)
	m.On("ClusterHosts", mock.Anything).Return(members, nil)
	return m
}

// WithServices configures the cluster services.
func (m *MockManagement) WithServices(services []cm.Service) *MockManagement {
	m.On("Services", mock.Anything).Return(services, nil)
	return m
}

// WithSubmit configures every submission of kind to return handle.
func (m *MockManagement) WithSubmit(kind bringup.Kind, handle bringup.Handle) *MockManagement {
	m.On("Submit", mock.Anything, kind, mock.Anything).Return(handle, nil)
	return m
}

// WithStatus configures the status reported for handle.
func (m *MockManagement) WithStatus(handle bringup.Handle, status bringup.RemoteStatus) *MockManagement {
	m.On("OperationStatus", mock.Anything, handle).Return(status, nil)
	return m
}
