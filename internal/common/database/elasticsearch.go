// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contractor-matching/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient wraps the Elasticsearch client
type ElasticsearchClient struct {
	Client *elasticsearch.Client
	Index  string
}

// NewElasticsearch creates a new Elasticsearch client
func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es, Index: cfg.Index}, nil
}

// Ping tests the Elasticsearch connection
func (c *ElasticsearchClient) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := c.Client.Ping(
		c.Client.Ping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}

	return nil
}

// contractorIndexMapping declares location as geo_point so geo_distance
// filters apply, and keeps specialties/verification as keywords for exact
// term matching.
const contractorIndexMapping = `{
  "mappings": {
    "properties": {
      "id":                   {"type": "keyword"},
      "name":                 {"type": "text"},
      "specialties":          {"type": "keyword"},
      "hourly_rate":          {"type": "double"},
      "location":             {"type": "geo_point"},
      "service_radius_miles": {"type": "double"},
      "rating":               {"type": "double"},
      "reliability_score":    {"type": "double"},
      "avg_response_minutes": {"type": "double"},
      "completed_jobs":       {"type": "integer"},
      "availability":         {"type": "keyword"},
      "current_jobs":         {"type": "integer"},
      "max_concurrent_jobs":  {"type": "integer"},
      "verification":         {"type": "keyword"},
      "background_check":     {"type": "keyword"},
      "insurance_verified":   {"type": "boolean"}
    }
  }
}`

// EnsureIndex creates the contractor index with its mapping if it does not
// exist yet. Existing indices are left untouched.
func (c *ElasticsearchClient) EnsureIndex(ctx context.Context) error {
	exists, err := c.Client.Indices.Exists(
		[]string{c.Index},
		c.Client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", c.Index, err)
	}
	defer exists.Body.Close()

	if exists.StatusCode == 200 {
		return nil
	}

	res, err := c.Client.Indices.Create(
		c.Index,
		c.Client.Indices.Create.WithContext(ctx),
		c.Client.Indices.Create.WithBody(strings.NewReader(contractorIndexMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", c.Index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index creation error for %s: %s", c.Index, res.Status())
	}

	return nil
}
