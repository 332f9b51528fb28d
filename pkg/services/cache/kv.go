package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/nats-io/nats.go"
)

// KVStore is a SharedStore backed by a JetStream key/value bucket.
type KVStore struct {
	kv nats.KeyValue
}

func NewKVStore(kv nats.KeyValue) *KVStore {
	return &KVStore{kv: kv}
}

// The legacy KeyValue API has no per-call context; the JetStream context
// timeout bounds each call instead.

func (s *KVStore) Get(_ context.Context, key string) ([]byte, error) {
	entry, err := s.kv.Get(kvKey(key))
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "kv get")
	}
	return entry.Value(), nil
}

func (s *KVStore) Put(_ context.Context, key string, value []byte) error {
	if _, err := s.kv.Put(kvKey(key), value); err != nil {
		return errors.Wrap(err, "kv put")
	}
	return nil
}

func (s *KVStore) Delete(_ context.Context, key string) error {
	err := s.kv.Delete(kvKey(key))
	if errors.Is(err, nats.ErrKeyNotFound) {
		return ErrNotFound
	}
	return errors.Wrap(err, "kv delete")
}

func (s *KVStore) Purge(_ context.Context) error {
	keys, err := s.kv.Keys()
	if errors.Is(err, nats.ErrNoKeysFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "kv keys")
	}
	for _, k := range keys {
		if err := s.kv.Purge(k); err != nil {
			return errors.Wrapf(err, "kv purge %s", k)
		}
	}
	return nil
}

// kvKey maps an arbitrary cache key onto a single-token KV key. Bytes outside
// [-/=a-zA-Z0-9] are escaped as _XX, so "stand:BA1:EGLL" becomes
// "stand_3ABA1_3AEGLL".
func kvKey(key string) string {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		ch := key[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9',
			ch == '-', ch == '/', ch == '=':
			b.WriteByte(ch)
		default:
			fmt.Fprintf(&b, "_%02X", ch)
		}
	}
	return b.String()
}
