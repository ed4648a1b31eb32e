package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultRefreshInterval = 15 * time.Minute
	// A kid miss refreshes at most this often.
	minMissRefresh = 30 * time.Second
	fetchTimeout   = 10 * time.Second
)

var ErrKeyNotFound = errors.New("jwks: key not found")

type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS caches the issuer's RSA signing keys by kid.
type JWKS struct {
	url    string
	client *http.Client
	logger zerolog.Logger

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	lastRefresh time.Time

	ticker *time.Ticker
	quit   chan struct{}
}

// NewJWKS loads the key set once and refreshes it every refreshInterval
// (15m when zero) until Close.
func NewJWKS(ctx context.Context, url string, refreshInterval time.Duration, logger zerolog.Logger) (*JWKS, error) {
	if url == "" {
		return nil, errors.New("jwks: no url configured")
	}
	if refreshInterval <= 0 {
		refreshInterval = defaultRefreshInterval
	}
	j := &JWKS{
		url:    url,
		client: &http.Client{Timeout: fetchTimeout},
		logger: logger,
		keys:   map[string]*rsa.PublicKey{},
	}
	if err := j.refresh(ctx); err != nil {
		return nil, err
	}
	j.ticker = time.NewTicker(refreshInterval)
	j.quit = make(chan struct{})
	go j.loop()
	return j, nil
}

func (j *JWKS) loop() {
	for {
		select {
		case <-j.ticker.C:
			if err := j.refresh(context.Background()); err != nil {
				j.logger.Warn().Err(err).Msg("jwks refresh failed, keeping cached keys")
			}
		case <-j.quit:
			return
		}
	}
}

// Close stops background refresh.
func (j *JWKS) Close() {
	if j.quit == nil {
		return
	}
	close(j.quit)
	j.ticker.Stop()
}

func (j *JWKS) refresh(ctx context.Context) error {
	if j.url == "" {
		return errors.New("jwks: no url configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return fmt.Errorf("jwks: failed to build request: %w", err)
	}
	resp, err := j.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks: failed to fetch keys: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks: unexpected status %d", resp.StatusCode)
	}

	var raw struct {
		Keys []jwkKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("jwks: failed to decode key set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(raw.Keys))
	for _, k := range raw.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			j.logger.Warn().Err(err).Str("kid", k.Kid).Msg("skipping malformed jwk")
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("jwks: no usable RSA signing keys")
	}

	j.mu.Lock()
	j.keys = keys
	j.lastRefresh = time.Now()
	j.mu.Unlock()

	j.logger.Debug().Int("keys", len(keys)).Msg("jwks refreshed")
	return nil
}

func (k jwkKey) publicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	e := new(big.Int).SetBytes(eBytes)
	if len(nBytes) == 0 || !e.IsInt64() || e.Int64() < 3 {
		return nil, errors.New("invalid key parameters")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: int(e.Int64())}, nil
}

// Get returns the key for kid. On a miss the set is refetched, at most once
// per minMissRefresh, to pick up rotated keys.
func (j *JWKS) Get(kid string) (*rsa.PublicKey, error) {
	j.mu.RLock()
	p := j.keys[kid]
	recent := time.Since(j.lastRefresh) < minMissRefresh
	j.mu.RUnlock()
	if p != nil {
		return p, nil
	}
	if recent {
		return nil, ErrKeyNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	if err := j.refresh(ctx); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if p = j.keys[kid]; p == nil {
		return nil, ErrKeyNotFound
	}
	return p, nil
}
