package registry

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAgent answers the handful of Consul agent endpoints the registry uses.
type fakeAgent struct {
	mu         sync.Mutex
	registered map[string]consulapi.AgentServiceRegistration
}

func (a *fakeAgent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case r.URL.Path == "/v1/agent/self":
		_ = json.NewEncoder(w).Encode(map[string]map[string]interface{}{"Config": {"NodeName": "node-1"}})
	case r.URL.Path == "/v1/agent/service/register" && r.Method == http.MethodPut:
		var reg consulapi.AgentServiceRegistration
		if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.registered[reg.ID] = reg
	case strings.HasPrefix(r.URL.Path, "/v1/agent/service/deregister/"):
		delete(a.registered, strings.TrimPrefix(r.URL.Path, "/v1/agent/service/deregister/"))
	case strings.HasPrefix(r.URL.Path, "/v1/health/service/"):
		name := strings.TrimPrefix(r.URL.Path, "/v1/health/service/")
		entries := []*consulapi.ServiceEntry{}
		for _, reg := range a.registered {
			if reg.Name == name {
				entries = append(entries, &consulapi.ServiceEntry{
					Node:    &consulapi.Node{Address: "10.0.0.1"},
					Service: &consulapi.AgentService{ID: reg.ID, Service: reg.Name, Address: reg.Address, Port: reg.Port},
				})
			}
		}
		_ = json.NewEncoder(w).Encode(entries)
	default:
		http.NotFound(w, r)
	}
}

func newTestRegistry(t *testing.T) (ServiceRegistry, *fakeAgent) {
	t.Helper()
	agent := &fakeAgent{registered: map[string]consulapi.AgentServiceRegistration{}}
	srv := httptest.NewServer(agent)
	t.Cleanup(srv.Close)

	reg, err := NewConsulRegistry(srv.URL, zap.NewNop().Sugar())
	require.NoError(t, err)
	return reg, agent
}

func TestRegisterAndDiscover(t *testing.T) {
	reg, agent := newTestRegistry(t)

	httpInst := HTTPInstance("yamdb", "127.0.0.1", 8000)
	grpcInst := GRPCInstance("yamdb", "127.0.0.1", 50051)
	require.NoError(t, reg.Register(httpInst))
	require.NoError(t, reg.Register(grpcInst))

	stored := agent.registered[httpInst.ID]
	assert.Equal(t, "yamdb-http", stored.Name)
	assert.Equal(t, "http://127.0.0.1:8000/v1/health", stored.Check.HTTP)
	assert.Equal(t, "127.0.0.1:50051", agent.registered[grpcInst.ID].Check.GRPC)

	addrs, err := reg.Discover("yamdb-grpc", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1:50051"}, addrs)

	require.NoError(t, reg.Deregister(grpcInst.ID))
	_, err = reg.Discover("yamdb-grpc", "")
	assert.True(t, errors.Is(err, ErrNoInstances))
}

func TestNewConsulRegistryUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewConsulRegistry(srv.URL, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestInstanceID(t *testing.T) {
	assert.Equal(t, "yamdb-http-10.0.0.5-8000", InstanceID("yamdb", "http", "10.0.0.5", 8000))
}
