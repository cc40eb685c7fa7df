package httpcache

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"fknsrs.biz/p/ytmetrics/internal/ctxclock"
	"fknsrs.biz/p/ytmetrics/internal/ctxlogger"
)

type cachedResponse struct {
	UpdatedAt  time.Time
	URL        string
	Status     string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *cachedResponse) makeResponse(req *http.Request) *http.Response {
	return &http.Response{
		Status:        r.Status,
		StatusCode:    r.StatusCode,
		Header:        r.Header,
		Body:          io.NopCloser(bytes.NewReader(r.Body)),
		ContentLength: int64(len(r.Body)),
		Request:       req,
	}
}

type Storage interface {
	Fetch(key string) (*cachedResponse, error)
	Save(key string, r *cachedResponse) error
}

var bboltBucketName = []byte("cache")

type BBoltStorage struct {
	db *bbolt.DB
}

func NewBBoltStorage(db *bbolt.DB) *BBoltStorage {
	return &BBoltStorage{db: db}
}

func (s *BBoltStorage) Fetch(key string) (*cachedResponse, error) {
	var d []byte

	if err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bboltBucketName)
		if b == nil {
			return nil
		}

		if v := b.Get([]byte(key)); v != nil {
			d = append([]byte(nil), v...)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("httpcache.BBoltStorage.Fetch: %w", err)
	}

	if d == nil {
		return nil, nil
	}

	var r cachedResponse
	if err := gob.NewDecoder(bytes.NewReader(d)).Decode(&r); err != nil {
		return nil, fmt.Errorf("httpcache.BBoltStorage.Fetch: could not decode entry: %w", err)
	}

	return &r, nil
}

func (s *BBoltStorage) Save(key string, r *cachedResponse) error {
	buf := bytes.NewBuffer(nil)
	if err := gob.NewEncoder(buf).Encode(r); err != nil {
		return fmt.Errorf("httpcache.BBoltStorage.Save: could not encode entry: %w", err)
	}

	if err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bboltBucketName)
		if err != nil {
			return err
		}

		return b.Put([]byte(key), buf.Bytes())
	}); err != nil {
		return fmt.Errorf("httpcache.BBoltStorage.Save: %w", err)
	}

	return nil
}

// Transport caches successful GET responses. Query parameters named in
// ignoreParams (credentials, usually) are left out of the cache key so that
// rotating them does not invalidate the cache or get written to disk.
type Transport struct {
	transport    http.RoundTripper
	storage      Storage
	maxAge       time.Duration
	ignoreParams []string
}

func NewTransport(transport http.RoundTripper, storage Storage, maxAge time.Duration, ignoreParams ...string) *Transport {
	if transport == nil {
		transport = http.DefaultTransport
	}

	if maxAge == 0 {
		maxAge = time.Hour
	}

	return &Transport{
		transport:    transport,
		storage:      storage,
		maxAge:       maxAge,
		ignoreParams: ignoreParams,
	}
}

func (t *Transport) cacheKey(u *url.URL) string {
	uu := *u

	q := uu.Query()
	for _, name := range t.ignoreParams {
		q.Del(name)
	}
	uu.RawQuery = q.Encode()

	h := sha1.New()
	io.WriteString(h, uu.String())

	return path.Join(u.Host, hex.EncodeToString(h.Sum(nil)))
}

func (t *Transport) now(ctx context.Context) time.Time {
	if now, err := ctxclock.Now(ctx); err == nil {
		return now
	}

	return time.Now()
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.transport.RoundTrip(req)
	}

	ctx := req.Context()
	l := ctxlogger.GetLogger(ctx)
	key := t.cacheKey(req.URL)

	if cr, err := t.storage.Fetch(key); err != nil {
		l.WithError(err).WithField("http.cache_key", key).Warn("could not read http cache entry")
	} else if cr != nil && t.now(ctx).Sub(cr.UpdatedAt) < t.maxAge {
		l.WithFields(logrus.Fields{"http.cache_key": key, "http.host": req.URL.Host}).Debug("http cache hit")
		return cr.makeResponse(req), nil
	}

	res, err := t.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return res, nil
	}

	d, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("httpcache.Transport.RoundTrip: could not read response body: %w", err)
	}

	cr := &cachedResponse{
		UpdatedAt:  t.now(ctx),
		URL:        req.URL.Host + req.URL.Path,
		Status:     res.Status,
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       d,
	}

	if err := t.storage.Save(key, cr); err != nil {
		l.WithError(err).WithField("http.cache_key", key).Warn("could not write http cache entry")
	}

	return cr.makeResponse(req), nil
}
