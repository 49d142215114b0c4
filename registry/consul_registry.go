package registry

import (
	"errors"
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

// ErrNoInstances is returned by Discover when no healthy instance is registered.
var ErrNoInstances = errors.New("no healthy instances")

type consulRegistry struct {
	client *consulapi.Client
	logger *zap.SugaredLogger
}

// Ensure consulRegistry implements ServiceRegistry
var _ ServiceRegistry = (*consulRegistry)(nil)

// NewConsulRegistry connects to the Consul agent at address.
func NewConsulRegistry(address string, logger *zap.SugaredLogger) (ServiceRegistry, error) {
	consulConfig := consulapi.DefaultConfig()
	if address != "" {
		consulConfig.Address = address
	}

	client, err := consulapi.NewClient(consulConfig)
	if err != nil {
		logger.Errorw("Failed to create Consul client", "address", consulConfig.Address, "error", err)
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	if _, err = client.Agent().NodeName(); err != nil {
		logger.Errorw("Failed to connect to Consul agent", "address", consulConfig.Address, "error", err)
		return nil, fmt.Errorf("cannot connect to consul agent at %s: %w", consulConfig.Address, err)
	}
	logger.Infow("Successfully connected to Consul agent", "address", consulConfig.Address)

	return &consulRegistry{
		client: client,
		logger: logger.Named("ConsulRegistry"),
	}, nil
}

// Register registers an instance with Consul, including its health check.
func (r *consulRegistry) Register(inst Instance) error {
	reg := &consulapi.AgentServiceRegistration{
		ID:      inst.ID,
		Name:    inst.Name,
		Tags:    inst.Tags,
		Port:    inst.Port,
		Address: inst.Address,
		Check:   inst.Check,
	}
	if len(inst.Tags) > 0 {
		reg.Meta = map[string]string{"protocol": inst.Tags[0]}
	}

	if err := r.client.Agent().ServiceRegister(reg); err != nil {
		r.logger.Errorw("Failed to register service with Consul", "service_id", inst.ID, "service_name", inst.Name, "address", inst.Address, "port", inst.Port, "error", err)
		return fmt.Errorf("failed to register service '%s': %w", inst.Name, err)
	}
	r.logger.Infow("Successfully registered service with Consul", "service_id", inst.ID, "service_name", inst.Name, "address", inst.Address, "port", inst.Port)
	return nil
}

// Deregister removes a service instance from Consul.
func (r *consulRegistry) Deregister(id string) error {
	if err := r.client.Agent().ServiceDeregister(id); err != nil {
		r.logger.Errorw("Failed to deregister service from Consul", "service_id", id, "error", err)
		return fmt.Errorf("failed to deregister service '%s': %w", id, err)
	}
	r.logger.Infow("Successfully deregistered service from Consul", "service_id", id)
	return nil
}

// Discover finds healthy instances of a service in Consul.
// It returns a list of addresses (e.g., "host:port").
func (r *consulRegistry) Discover(name string, tag string) ([]string, error) {
	instances, _, err := r.client.Health().Service(name, tag, true, nil)
	if err != nil {
		r.logger.Warnw("Failed to discover service from Consul", "service_name", name, "tag", tag, "error", err)
		return nil, fmt.Errorf("failed to discover service '%s': %w", name, err)
	}

	if len(instances) == 0 {
		r.logger.Warnw("No healthy instances found for service", "service_name", name, "tag", tag)
		return nil, fmt.Errorf("service '%s': %w", name, ErrNoInstances)
	}

	addrs := make([]string, 0, len(instances))
	for _, inst := range instances {
		// Prefer Service.Address, fallback to Node.Address
		addr := inst.Service.Address
		if addr == "" {
			addr = inst.Node.Address
		}
		addrs = append(addrs, fmt.Sprintf("%s:%d", addr, inst.Service.Port))
	}
	r.logger.Debugw("Discovered healthy service instances", "service_name", name, "tag", tag, "count", len(addrs), "addresses", addrs)
	return addrs, nil
}

// CreateHTTPCheck creates a Consul HTTP health check configuration.
// serviceHost is the address Consul hits for the check.
func CreateHTTPCheck(serviceID, serviceHost string, servicePort int, checkPath string, interval, timeout string) *consulapi.AgentServiceCheck {
	return &consulapi.AgentServiceCheck{
		CheckID:                        fmt.Sprintf("check_%s_http", serviceID),
		Name:                           fmt.Sprintf("HTTP Check for %s", serviceID),
		HTTP:                           fmt.Sprintf("http://%s:%d%s", serviceHost, servicePort, checkPath),
		Method:                         "GET",
		Interval:                       interval,
		Timeout:                        timeout,
		DeregisterCriticalServiceAfter: "1m", // Automatically deregister after 1 minute of being critical
	}
}

// CreateGRPCSCheck creates a Consul gRPC health check configuration.
// The target must serve the gRPC Health Checking Protocol.
func CreateGRPCSCheck(serviceID, grpcTarget string, interval, timeout string, useTLS bool) *consulapi.AgentServiceCheck {
	return &consulapi.AgentServiceCheck{
		CheckID:                        fmt.Sprintf("check_%s_grpc", serviceID),
		Name:                           fmt.Sprintf("gRPC Check for %s", serviceID),
		GRPC:                           grpcTarget,
		GRPCUseTLS:                     useTLS,
		Interval:                       interval,
		Timeout:                        timeout,
		DeregisterCriticalServiceAfter: "1m",
	}
}
