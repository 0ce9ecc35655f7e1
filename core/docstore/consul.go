package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/consul/api"
)

// kvAPI is the subset of the Consul KV client the store uses.
type kvAPI interface {
	Get(key string, q *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error)
	List(prefix string, q *api.QueryOptions) (api.KVPairs, *api.QueryMeta, error)
	CAS(p *api.KVPair, q *api.WriteOptions) (bool, *api.WriteMeta, error)
}

// ConsulConfig configures the Consul KV backend.
type ConsulConfig struct {
	// Address of the Consul agent.
	Address string `mapstructure:"address" default:"127.0.0.1:8500"`
	// Token for ACL authentication (optional).
	Token string `mapstructure:"token" default:""`
	// Datacenter to use (optional).
	Datacenter string `mapstructure:"datacenter" default:""`
	// Prefix for every key.
	Prefix string `mapstructure:"prefix" default:"files-kraken"`
}

// ConsulStore keeps each document as a JSON value under <prefix>/<schema>/<id>.
type ConsulStore struct {
	kv     kvAPI
	prefix string
}

// NewConsulStore connects to the configured agent.
func NewConsulStore(cfg ConsulConfig) (*ConsulStore, error) {
	clientConfig := api.DefaultConfig()
	if cfg.Address != "" {
		clientConfig.Address = cfg.Address
	}
	if cfg.Token != "" {
		clientConfig.Token = cfg.Token
	}
	if cfg.Datacenter != "" {
		clientConfig.Datacenter = cfg.Datacenter
	}
	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}
	return newConsulStore(client.KV(), cfg.Prefix), nil
}

func newConsulStore(kv kvAPI, prefix string) *ConsulStore {
	return &ConsulStore{kv: kv, prefix: strings.Trim(prefix, "/")}
}

func (c *ConsulStore) schemaPrefix(schema string) string {
	if c.prefix == "" {
		return schema + "/"
	}
	return c.prefix + "/" + schema + "/"
}

func (c *ConsulStore) key(schema, id string) string {
	return c.schemaPrefix(schema) + id
}

// Add implements Store. A check-and-set with index 0 only writes absent keys.
func (c *ConsulStore) Add(ctx context.Context, schema string, doc Document) error {
	id := doc.ID()
	if id == "" {
		return fmt.Errorf("document for %s has no id", schema)
	}
	stored := doc.Clone()
	stored[KeySchema] = schema
	body, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", schema, id, err)
	}
	ok, _, err := c.kv.CAS(&api.KVPair{Key: c.key(schema, id), Value: body}, (&api.WriteOptions{}).WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", schema, id, err)
	}
	if !ok {
		return fmt.Errorf("%s/%s: %w", schema, id, ErrExists)
	}
	return nil
}

func (c *ConsulStore) decode(schema, id string, value []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(value, &doc); err != nil {
		return nil, fmt.Errorf("corrupt document %s/%s: %w", schema, id, err)
	}
	if doc == nil {
		doc = Document{}
	}
	doc[KeySchema] = schema
	doc[KeyID] = id
	return doc, nil
}

// Get implements Store.
func (c *ConsulStore) Get(ctx context.Context, schema, id string) (Document, error) {
	pair, _, err := c.kv.Get(c.key(schema, id), (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", schema, id, err)
	}
	if pair == nil {
		return nil, nil
	}
	return c.decode(schema, id, pair.Value)
}

// Update implements Store. The write fails if the key changed since it was read.
func (c *ConsulStore) Update(ctx context.Context, schema, id string, fields Document) error {
	pair, _, err := c.kv.Get(c.key(schema, id), (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to read %s/%s: %w", schema, id, err)
	}
	if pair == nil {
		return fmt.Errorf("%s/%s: %w", schema, id, ErrNotFound)
	}
	doc, err := c.decode(schema, id, pair.Value)
	if err != nil {
		return err
	}
	for k, v := range fields {
		if k == KeySchema || k == KeyID {
			continue
		}
		doc[k] = v
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", schema, id, err)
	}
	next := &api.KVPair{Key: pair.Key, Value: body, ModifyIndex: pair.ModifyIndex}
	ok, _, err := c.kv.CAS(next, (&api.WriteOptions{}).WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", schema, id, err)
	}
	if !ok {
		return fmt.Errorf("concurrent modification of %s/%s", schema, id)
	}
	return nil
}

// List implements Store.
func (c *ConsulStore) List(ctx context.Context, schema string) ([]Document, error) {
	prefix := c.schemaPrefix(schema)
	pairs, _, err := c.kv.List(prefix, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", schema, err)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })

	out := make([]Document, 0, len(pairs))
	for _, pair := range pairs {
		id := strings.TrimPrefix(pair.Key, prefix)
		if id == "" || strings.Contains(id, "/") {
			continue
		}
		doc, err := c.decode(schema, id, pair.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Close implements Store.
func (c *ConsulStore) Close() error { return nil }
