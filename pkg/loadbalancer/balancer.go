package loadbalancer

import "sync"

// LoadBalancer hands out upstream base URLs round-robin. The gateway uses
// one per proxied service when a deployment runs several mapper replicas.
type LoadBalancer struct {
	servers []string
	mu      sync.Mutex
	current int
}

func NewLoadBalancer(servers []string) *LoadBalancer {
	return &LoadBalancer{
		servers: servers,
		current: 0,
	}
}

// GetNextServer returns the next upstream base URL, or "" when none are
// configured.
func (lb *LoadBalancer) GetNextServer() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if len(lb.servers) == 0 {
		return ""
	}
	server := lb.servers[lb.current]
	lb.current = (lb.current + 1) % len(lb.servers)
	return server
}
