package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/kirychukyurii/mission-control/internal/logger"
)

type fakeKV struct {
	kvs []*mvccpb.KeyValue
	err error
}

func (f *fakeKV) Get(_ context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	if f.err != nil {
		return nil, f.err
	}

	withPrefix := clientv3.IsOptsWithPrefix(opts)
	resp := &clientv3.GetResponse{}
	for _, item := range f.kvs {
		k := string(item.Key)
		if k == key || (withPrefix && strings.HasPrefix(k, key)) {
			resp.Kvs = append(resp.Kvs, item)
		}
	}
	return resp, nil
}

func newTestEtcd(store kv) *etcdClient {
	return &etcdClient{kv: store, prefix: "mc/views/", logger: logger.Discard()}
}

func TestEtcdRepository_ReadView(t *testing.T) {
	repo := newTestEtcd(&fakeKV{kvs: []*mvccpb.KeyValue{
		{Key: []byte("mc/views/release"), Value: []byte(`{"name":"ignored","history_limit":50,"filter_by_failures":true}`)},
	}})

	view, err := repo.ReadView(context.Background(), "release")
	require.NoError(t, err)
	assert.Equal(t, "release", view.Name)
	assert.Equal(t, 50, view.HistoryLimit)
	assert.True(t, view.FilterByFailures)

	_, err = repo.ReadView(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrViewNotStored)
}

func TestEtcdRepository_ReadView_ReturnsError_When_ValueMalformed(t *testing.T) {
	repo := newTestEtcd(&fakeKV{kvs: []*mvccpb.KeyValue{
		{Key: []byte("mc/views/broken"), Value: []byte(`{`)},
	}})

	_, err := repo.ReadView(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrViewNotStored)
}

func TestEtcdRepository_ListViewNames(t *testing.T) {
	repo := newTestEtcd(&fakeKV{kvs: []*mvccpb.KeyValue{
		{Key: []byte("mc/views/zeta")},
		{Key: []byte("mc/views/alpha")},
		{Key: []byte("mc/views/alpha/history")},
		{Key: []byte("other/key")},
	}})

	names, err := repo.ListViewNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}

func TestEtcdRepository_PropagatesErrors(t *testing.T) {
	repo := newTestEtcd(&fakeKV{err: errors.New("connection refused")})

	_, err := repo.ReadView(context.Background(), "x")
	assert.ErrorContains(t, err, "connection refused")

	_, err = repo.ListViewNames(context.Background())
	assert.ErrorContains(t, err, "connection refused")

	assert.NoError(t, repo.Close())
}
