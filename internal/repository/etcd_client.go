package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/kirychukyurii/mission-control/internal/config"
	"github.com/kirychukyurii/mission-control/internal/util"
)

// ErrViewNotStored is returned when etcd holds no definition for a view
var ErrViewNotStored = errors.New("view not stored")

// ViewRepository defines read access to view definitions kept outside the config file
type ViewRepository interface {
	// ReadView reads a single view definition
	ReadView(ctx context.Context, name string) (*config.ViewConfig, error)

	// ListViewNames lists the names of all stored views, sorted
	ListViewNames(ctx context.Context) ([]string, error)

	// Close closes the underlying connection
	Close() error
}

// kv is the subset of the etcd KV API used by the repository
type kv interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
}

// etcdClient implements ViewRepository
type etcdClient struct {
	client *clientv3.Client
	kv     kv
	prefix string
	logger *slog.Logger
}

// NewEtcdRepository creates a new etcd view repository
func NewEtcdRepository(cfg config.EtcdConfig, logger *slog.Logger) (ViewRepository, error) {
	etcdCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	}

	tlsConfig, err := util.LoadTLSConfig(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS config: %w", err)
	}
	etcdCfg.TLS = tlsConfig

	client, err := clientv3.New(etcdCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	logger.Info("connected to etcd cluster",
		slog.Any("endpoints", cfg.Endpoints),
		slog.String("prefix", cfg.Prefix),
	)

	return &etcdClient{
		client: client,
		kv:     client,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

// ReadView reads a view definition stored as JSON under prefix+name
func (e *etcdClient) ReadView(ctx context.Context, name string) (*config.ViewConfig, error) {
	resp, err := e.kv.Get(ctx, e.prefix+name)
	if err != nil {
		return nil, fmt.Errorf("failed to read view %s from etcd: %w", name, err)
	}

	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrViewNotStored, name)
	}

	var view config.ViewConfig
	if err := json.Unmarshal(resp.Kvs[0].Value, &view); err != nil {
		return nil, fmt.Errorf("failed to unmarshal view %s: %w", name, err)
	}
	// The key is authoritative for the name
	view.Name = name

	e.logger.Debug("read view from etcd", "view", name)

	return &view, nil
}

// ListViewNames lists view keys under the prefix
func (e *etcdClient) ListViewNames(ctx context.Context) ([]string, error) {
	resp, err := e.kv.Get(ctx, e.prefix, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list views from etcd: %w", err)
	}

	names := make([]string, 0, len(resp.Kvs))
	for _, item := range resp.Kvs {
		name := strings.TrimPrefix(string(item.Key), e.prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// Close closes the etcd client connection
func (e *etcdClient) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
