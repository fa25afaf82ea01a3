package cmtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Command states, as a server-side command reports them on successive polls.
var (
	Running   = State{Active: true}
	Succeeded = State{Success: true}
)

// Failed returns a terminal failure state with message.
func Failed(message string) State { return State{Message: message} }

// State is one observation of a command.
type State struct {
	Active  bool
	Success bool
	Message string
}

// Host is a host known to the fake server.
type Host struct {
	ID       string
	Hostname string
	Roles    []string
}

// Service is a cluster service.
type Service struct {
	Name   string
	Type   string
	State  string
	Health string
	// RoleConfigGroups maps group name to role type.
	RoleConfigGroups map[string]string
}

// Server is an in-memory management server. All exported methods are safe to
// call while requests are served.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	cluster      string
	username     string
	password     string
	hosts        []Host
	clusterHosts []string
	templates    map[string][]string
	applied      map[string][]string
	parcels      []parcelScript
	services     []Service
	cmService    Service
	config       map[string]map[string]string
	scripts      map[string][]State
	commands     map[int64]*command
	nextID       int64
	calls        []string
	failRequests map[string]int
	unavailable  int
}

type command struct {
	name   string
	states []State
	polls  int
}

type parcelScript struct {
	product string
	version string
	stages  []string
	polls   int
}

// NewServer starts a fake server for cluster. Stop it with Close.
func NewServer(cluster string) *Server {
	s := &Server{
		cluster:      cluster,
		templates:    map[string][]string{},
		applied:      map[string][]string{},
		config:       map[string]map[string]string{},
		scripts:      map[string][]State{},
		commands:     map[int64]*command{},
		failRequests: map[string]int{},
		cmService:    Service{Name: "mgmt", Type: "MGMT", State: "STOPPED", Health: "GOOD"},
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// RequireAuth makes the server reject requests without these credentials.
func (s *Server) RequireAuth(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username, s.password = username, password
}

// AddHost makes a host known to the server. roles are role names it carries.
func (s *Server) AddHost(id, hostname string, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hosts = append(s.hosts, Host{ID: id, Hostname: hostname, Roles: roles})
}

// AddClusterHost marks a known host as a cluster member.
func (s *Server) AddClusterHost(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.clusterHosts, id) {
		s.clusterHosts = append(s.clusterHosts, id)
	}
}

// ClusterHosts returns the IDs of cluster members.
func (s *Server) ClusterHosts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.clusterHosts)
	slices.Sort(out)
	return out
}

// AddTemplate creates a host template.
func (s *Server) AddTemplate(name string, groups ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[name] = groups
}

// Templates returns the template names.
func (s *Server) Templates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for name := range s.templates {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Applied returns the host IDs a template has been applied to.
func (s *Server) Applied(template string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.applied[template])
	slices.Sort(out)
	return out
}

// AddParcel adds a parcel moving through stages, one per poll. The last
// stage sticks.
func (s *Server) AddParcel(product, version string, stages ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parcels = append(s.parcels, parcelScript{product: product, version: version, stages: stages})
}

// AddService adds a cluster service.
func (s *Server) AddService(svc Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = append(s.services, svc)
}

// SetServiceHealth updates a service's state and health.
func (s *Server) SetServiceHealth(name, state, health string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.services {
		if s.services[i].Name == name {
			s.services[i].State = state
			s.services[i].Health = health
		}
	}
	if s.cmService.Name == name {
		s.cmService.State = state
		s.cmService.Health = health
	}
}

// Config returns configuration written to scope: "cm", a service name, or
// "service/group".
func (s *Server) Config(scope string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]string{}
	for k, v := range s.config[scope] {
		out[k] = v
	}
	return out
}

// Script sets the states a command named name reports on successive polls.
// Names are "applyHostTemplate:<template>", "deployClientConfig",
// "<service>:<command>" and "cm:<command>". Unscripted commands succeed
// after one active poll.
func (s *Server) Script(name string, states ...State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[name] = states
}

// FailNext makes the next n requests matching "METHOD path" fail with 500.
func (s *Server) FailNext(call string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRequests[call] = n
}

// Unavailable makes the next n requests of any kind fail with 503.
func (s *Server) Unavailable(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = n
}

// Calls returns every request served, as "METHOD path".
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// CountCalls returns how many requests matched prefix.
func (s *Server) CountCalls(prefix string) int {
	n := 0
	for _, c := range s.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Commands returns the names of commands started, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.commands))
	for id := range s.commands {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = s.commands[id].name
	}
	return out
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	api := "/api/{version}"
	cl := api + "/clusters/{cluster}"

	mux.HandleFunc("GET /api/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "v19")
	})
	mux.HandleFunc("GET "+api+"/hosts", s.getHosts)
	mux.HandleFunc("GET "+cl+"/hosts", s.getClusterHosts)
	mux.HandleFunc("POST "+cl+"/hosts", s.postClusterHosts)
	mux.HandleFunc("GET "+cl+"/hostTemplates", s.getTemplates)
	mux.HandleFunc("POST "+cl+"/hostTemplates", s.postTemplates)
	mux.HandleFunc("POST "+cl+"/hostTemplates/{template}/commands/applyHostTemplate", s.applyTemplate)
	mux.HandleFunc("GET "+cl+"/parcels", s.getParcels)
	mux.HandleFunc("GET "+cl+"/services", s.getServices)
	mux.HandleFunc("PUT "+cl+"/services/{service}/config", s.putServiceConfig)
	mux.HandleFunc("GET "+cl+"/services/{service}/roleConfigGroups", s.getRoleConfigGroups)
	mux.HandleFunc("PUT "+cl+"/services/{service}/roleConfigGroups/{group}/config", s.putRoleConfigGroupConfig)
	mux.HandleFunc("POST "+cl+"/services/{service}/commands/{command}", s.serviceCommand)
	mux.HandleFunc("POST "+cl+"/commands/deployClientConfig", func(w http.ResponseWriter, _ *http.Request) {
		s.startCommand(w, "deployClientConfig")
	})
	mux.HandleFunc("PUT "+api+"/cm/config", s.putCMConfig)
	mux.HandleFunc("GET "+api+"/cm/service", s.getCMService)
	mux.HandleFunc("POST "+api+"/cm/service/commands/{command}", s.cmServiceCommand)
	mux.HandleFunc("GET "+api+"/commands/{id}", s.getCommand)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.admit(w, r) {
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// admit records the call and applies auth and failure injection.
func (s *Server) admit(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := r.Method + " " + r.URL.Path
	s.calls = append(s.calls, call)

	if s.username != "" {
		u, p, ok := r.BasicAuth()
		if !ok || u != s.username || p != s.password {
			writeError(w, http.StatusUnauthorized, "Bad credentials")
			return false
		}
	}
	if s.unavailable > 0 {
		s.unavailable--
		writeError(w, http.StatusServiceUnavailable, "server starting")
		return false
	}
	if n := s.failRequests[call]; n > 0 {
		s.failRequests[call] = n - 1
		writeError(w, http.StatusInternalServerError, "injected failure")
		return false
	}
	if cluster := clusterOf(r.URL.Path); cluster != "" && cluster != s.cluster {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Cluster '%s' not found.", cluster))
		return false
	}
	return true
}

func clusterOf(path string) string {
	_, rest, ok := strings.Cut(path, "/clusters/")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}

type items[T any] struct {
	Items []T `json:"items"`
}

type wireRoleRef struct {
	ServiceName string `json:"serviceName"`
	RoleName    string `json:"roleName"`
}

type wireHost struct {
	HostID   string        `json:"hostId"`
	Hostname string        `json:"hostname"`
	RoleRefs []wireRoleRef `json:"roleRefs,omitempty"`
}

func (s *Server) getHosts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := items[wireHost]{Items: []wireHost{}}
	for _, h := range s.hosts {
		wh := wireHost{HostID: h.ID, Hostname: h.Hostname}
		for _, role := range h.Roles {
			svc, _, _ := strings.Cut(role, "-")
			wh.RoleRefs = append(wh.RoleRefs, wireRoleRef{ServiceName: svc, RoleName: role})
		}
		out.Items = append(out.Items, wh)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getClusterHosts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := items[wireHost]{Items: []wireHost{}}
	for _, id := range s.clusterHosts {
		out.Items = append(out.Items, wireHost{HostID: id, Hostname: s.hostname(id)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) postClusterHosts(w http.ResponseWriter, r *http.Request) {
	var body items[wireHost]
	if !readJSON(w, r, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range body.Items {
		if s.hostname(h.HostID) == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Host '%s' not found.", h.HostID))
			return
		}
		if slices.Contains(s.clusterHosts, h.HostID) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Host '%s' is already in a cluster.", h.HostID))
			return
		}
	}
	for _, h := range body.Items {
		s.clusterHosts = append(s.clusterHosts, h.HostID)
	}
	writeJSON(w, http.StatusOK, body)
}

type wireTemplate struct {
	Name                string `json:"name"`
	RoleConfigGroupRefs []struct {
		RoleConfigGroupName string `json:"roleConfigGroupName"`
	} `json:"roleConfigGroupRefs"`
}

func (s *Server) getTemplates(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := items[wireTemplate]{Items: []wireTemplate{}}
	for name := range s.templates {
		out.Items = append(out.Items, wireTemplate{Name: name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) postTemplates(w http.ResponseWriter, r *http.Request) {
	var body items[wireTemplate]
	if !readJSON(w, r, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range body.Items {
		if _, exists := s.templates[t.Name]; exists {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Host template with name '%s' already exists.", t.Name))
			return
		}
	}
	for _, t := range body.Items {
		var groups []string
		for _, ref := range t.RoleConfigGroupRefs {
			groups = append(groups, ref.RoleConfigGroupName)
		}
		s.templates[t.Name] = groups
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) applyTemplate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("template")
	var body items[wireHost]
	if !readJSON(w, r, &body) {
		return
	}
	s.mu.Lock()
	groups, ok := s.templates[name]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, fmt.Sprintf("Host template '%s' not found.", name))
		return
	}
	for _, h := range body.Items {
		s.applied[name] = append(s.applied[name], h.HostID)
		for i := range s.hosts {
			if s.hosts[i].ID == h.HostID {
				for _, g := range groups {
					s.hosts[i].Roles = append(s.hosts[i].Roles, strings.TrimSuffix(g, "-BASE")+"-"+h.HostID)
				}
			}
		}
	}
	s.mu.Unlock()
	s.startCommand(w, "applyHostTemplate:"+name)
}

type wireParcel struct {
	Product string `json:"product"`
	Version string `json:"version"`
	Stage   string `json:"stage"`
}

func (s *Server) getParcels(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := items[wireParcel]{Items: []wireParcel{}}
	for i := range s.parcels {
		p := &s.parcels[i]
		idx := min(p.polls, len(p.stages)-1)
		p.polls++
		out.Items = append(out.Items, wireParcel{Product: p.product, Version: p.version, Stage: p.stages[idx]})
	}
	writeJSON(w, http.StatusOK, out)
}

type wireService struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	ServiceState  string `json:"serviceState"`
	HealthSummary string `json:"healthSummary"`
}

func toWire(svc Service) wireService {
	return wireService{Name: svc.Name, Type: svc.Type, ServiceState: svc.State, HealthSummary: svc.Health}
}

func (s *Server) getServices(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := items[wireService]{Items: []wireService{}}
	for _, svc := range s.services {
		out.Items = append(out.Items, toWire(svc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getCMService(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, toWire(s.cmService))
}

func (s *Server) getRoleConfigGroups(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("service")
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.service(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Service '%s' not found in cluster '%s'.", name, s.cluster))
		return
	}
	type wireGroup struct {
		Name     string `json:"name"`
		RoleType string `json:"roleType"`
	}
	out := items[wireGroup]{Items: []wireGroup{}}
	names := make([]string, 0, len(svc.RoleConfigGroups))
	for g := range svc.RoleConfigGroups {
		names = append(names, g)
	}
	slices.Sort(names)
	for _, g := range names {
		out.Items = append(out.Items, wireGroup{Name: g, RoleType: svc.RoleConfigGroups[g]})
	}
	writeJSON(w, http.StatusOK, out)
}

type wireConfig struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (s *Server) putServiceConfig(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("service")
	s.mu.Lock()
	_, ok := s.service(name)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Service '%s' not found in cluster '%s'.", name, s.cluster))
		return
	}
	s.putConfig(w, r, name)
}

func (s *Server) putRoleConfigGroupConfig(w http.ResponseWriter, r *http.Request) {
	svcName, group := r.PathValue("service"), r.PathValue("group")
	s.mu.Lock()
	svc, ok := s.service(svcName)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Service '%s' not found in cluster '%s'.", svcName, s.cluster))
		return
	}
	if _, ok := svc.RoleConfigGroups[group]; !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Role config group '%s' not found.", group))
		return
	}
	s.putConfig(w, r, svcName+"/"+group)
}

func (s *Server) putCMConfig(w http.ResponseWriter, r *http.Request) {
	s.putConfig(w, r, "cm")
}

func (s *Server) putConfig(w http.ResponseWriter, r *http.Request, scope string) {
	var body items[wireConfig]
	if !readJSON(w, r, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config[scope] == nil {
		s.config[scope] = map[string]string{}
	}
	for _, item := range body.Items {
		s.config[scope][item.Name] = item.Value
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) serviceCommand(w http.ResponseWriter, r *http.Request) {
	name, cmd := r.PathValue("service"), r.PathValue("command")
	s.mu.Lock()
	_, ok := s.service(name)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Service '%s' not found in cluster '%s'.", name, s.cluster))
		return
	}
	if cmd == "start" {
		s.SetServiceHealth(name, "STARTED", "GOOD")
	}
	s.startCommand(w, name+":"+cmd)
}

func (s *Server) cmServiceCommand(w http.ResponseWriter, r *http.Request) {
	cmd := r.PathValue("command")
	s.mu.Lock()
	switch cmd {
	case "start":
		s.cmService.State = "STARTED"
	case "stop":
		s.cmService.State = "STOPPED"
	}
	s.mu.Unlock()
	s.startCommand(w, "cm:"+cmd)
}

type wireCommand struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Active        bool   `json:"active"`
	Success       bool   `json:"success"`
	ResultMessage string `json:"resultMessage,omitempty"`
}

func (s *Server) startCommand(w http.ResponseWriter, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	states, ok := s.scripts[name]
	if !ok {
		states = []State{Running, Succeeded}
	}
	s.nextID++
	id := s.nextID
	s.commands[id] = &command{name: name, states: states}
	writeJSON(w, http.StatusOK, wireCommand{ID: id, Name: name, Active: true})
}

func (s *Server) getCommand(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid command id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd, ok := s.commands[id]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Command '%d' not found.", id))
		return
	}
	st := cmd.states[min(cmd.polls, len(cmd.states)-1)]
	cmd.polls++
	writeJSON(w, http.StatusOK, wireCommand{
		ID: id, Name: cmd.name, Active: st.Active, Success: st.Success, ResultMessage: st.Message,
	})
}

func (s *Server) hostname(id string) string {
	for _, h := range s.hosts {
		if h.ID == id {
			return h.Hostname
		}
	}
	return ""
}

func (s *Server) service(name string) (Service, bool) {
	for _, svc := range s.services {
		if svc.Name == name {
			return svc, true
		}
	}
	return Service{}, false
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
