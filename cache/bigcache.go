package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
)

var _ Provider = (*BigCacheProvider)(nil)

// BigCacheProvider is an in-memory provider backed by one bigcache instance
// per bucket. Entries carry no expiry of their own; the life window is set
// far enough out that entries effectively live until the bucket is dropped.
type BigCacheProvider struct {
	mutex   *sync.Mutex
	buckets map[string]*bigcache.BigCache
}

func NewBigCacheProvider() *BigCacheProvider {
	return &BigCacheProvider{
		mutex:   &sync.Mutex{},
		buckets: make(map[string]*bigcache.BigCache),
	}
}

func (p *BigCacheProvider) bucket(name string, create bool) (*bigcache.BigCache, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if c, ok := p.buckets[name]; ok {
		return c, nil
	}
	if !create {
		return nil, nil
	}
	config := bigcache.DefaultConfig(24 * 365 * time.Hour)
	config.CleanWindow = 0
	config.Verbose = false
	c, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, err
	}
	p.buckets[name] = c
	return c, nil
}

func (p *BigCacheProvider) Get(bucket, key string) ([]byte, bool, error) {
	c, err := p.bucket(bucket, false)
	if err != nil || c == nil {
		return nil, false, err
	}
	bytes, err := c.Get(key)
	if err == bigcache.ErrEntryNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return bytes, true, nil
}

func (p *BigCacheProvider) Put(bucket, key string, bytes []byte) error {
	c, err := p.bucket(bucket, true)
	if err != nil {
		return err
	}
	return c.Set(key, bytes)
}

func (p *BigCacheProvider) Has(bucket, key string) bool {
	_, ok, _ := p.Get(bucket, key)
	return ok
}

func (p *BigCacheProvider) Keys(bucket string, cb func(string)) {
	c, err := p.bucket(bucket, false)
	if err != nil || c == nil {
		return
	}
	it := c.Iterator()
	for it.SetNext() {
		entry, err := it.Value()
		if err != nil {
			return
		}
		cb(entry.Key())
	}
}

func (p *BigCacheProvider) Buckets() ([]string, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	buckets := make([]string, 0, len(p.buckets))
	for name := range p.buckets {
		buckets = append(buckets, name)
	}
	sort.Strings(buckets)
	return buckets, nil
}

func (p *BigCacheProvider) DeleteBucket(bucket string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	c, ok := p.buckets[bucket]
	if !ok {
		return nil
	}
	delete(p.buckets, bucket)
	return c.Close()
}
