package api

import (
	"fmt"

	"WarrenFinSaas/internal/serviceiface"
)

type GatewayService struct {
	config map[string]interface{}
}

func NewGatewayService(cfg map[string]interface{}) serviceiface.Service {
	return &GatewayService{config: cfg}
}

func (s *GatewayService) Name() string {
	return "gateway"
}

func (s *GatewayService) Start() error {
	port := "8081"
	switch v := s.config["port"].(type) {
	case string:
		if v != "" {
			port = v
		}
	case int:
		port = fmt.Sprintf("%d", v)
	case float64:
		port = fmt.Sprintf("%d", int(v))
	}

	var upstreams []string
	if raw, ok := s.config["mapper_upstreams"].([]interface{}); ok {
		for _, u := range raw {
			if s, ok := u.(string); ok && s != "" {
				upstreams = append(upstreams, s)
			}
		}
	}

	go StartGateway(port, upstreams)
	return nil
}

func (s *GatewayService) Stop() error {
	// Implement stop logic if needed
	return nil
}
