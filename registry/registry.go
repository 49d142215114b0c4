package registry

import (
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
)

// Instance is one registered endpoint of the API: the HTTP listener or the gRPC one.
type Instance struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
	Check   *consulapi.AgentServiceCheck
}

// ServiceRegistry defines the interface for service registration and discovery.
type ServiceRegistry interface {
	// Register announces an instance together with its health check.
	Register(inst Instance) error

	// Deregister removes an instance using its unique ID.
	Deregister(id string) error

	// Discover finds healthy instances of a service by name and optional tag.
	// Returns a list of "host:port" strings.
	Discover(name string, tag string) ([]string, error)
}

// InstanceID builds the unique ID of an endpoint, e.g. yamdb-http-10.0.0.5-8000.
func InstanceID(name, protocol, host string, port int) string {
	return fmt.Sprintf("%s-%s-%s-%d", name, protocol, host, port)
}

// HTTPInstance describes the REST API of name listening on host:port,
// checked through the health route.
func HTTPInstance(name, host string, port int) Instance {
	id := InstanceID(name, "http", host, port)
	return Instance{
		ID:      id,
		Name:    name + "-http",
		Address: host,
		Port:    port,
		Tags:    []string{"http", "v1"},
		Check:   CreateHTTPCheck(id, host, port, "/v1/health", "10s", "1s"),
	}
}

// GRPCInstance describes the gRPC server of name listening on host:port.
func GRPCInstance(name, host string, port int) Instance {
	id := InstanceID(name, "grpc", host, port)
	return Instance{
		ID:      id,
		Name:    name + "-grpc",
		Address: host,
		Port:    port,
		Tags:    []string{"grpc"},
		Check:   CreateGRPCSCheck(id, fmt.Sprintf("%s:%d", host, port), "10s", "1s", false),
	}
}
