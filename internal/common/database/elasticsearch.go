// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"

	"admissions-wizard/internal/common/config"
	"admissions-wizard/internal/common/errors"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient wraps the client behind programme search.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	addresses := cfg.Addresses
	if len(addresses) == 0 && cfg.URL != "" {
		addresses = []string{cfg.URL}
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch address is empty")
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es}, nil
}

// Ping doubles as the readiness check.
func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return errors.NewUpstreamUnavailableError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewUpstreamUnavailableError("elasticsearch", fmt.Errorf("ping returned %s", res.Status()))
	}
	return nil
}
