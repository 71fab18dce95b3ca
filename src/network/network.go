package network

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"sol-terminal/src/helpers"
	"sol-terminal/src/logger"
	"sol-terminal/src/models"

	"golang.org/x/time/rate"
)

// -----------------------------------------------------------------------------
// AsyncNetworkManager issues JSON-RPC HTTP requests with retries, pacing and
// endpoint rotation. Public RPC endpoints rate-limit aggressively, so a
// failing endpoint is rotated out before the next attempt.
// -----------------------------------------------------------------------------

type AsyncNetworkManager struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Client  *http.Client
	limiter *rate.Limiter

	mu        sync.Mutex
	endpoints []string
	current   int
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	rps := cfg.Network.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	return &AsyncNetworkManager{
		Config:    cfg,
		Logger:    log,
		endpoints: cfg.Connection.RPCEndpoints,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		Client: &http.Client{
			Timeout: time.Duration(cfg.Network.RequestTimeout) * time.Second,
		},
	}
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) currentEndpoint() string {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	return nm.endpoints[nm.current]
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) rotateEndpoint() {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	if len(nm.endpoints) > 1 {
		nm.current = (nm.current + 1) % len(nm.endpoints)
		nm.Logger.Info("Rotated RPC endpoint to %s", nm.endpoints[nm.current])
	}
}

// -----------------------------------------------------------------------------

// PostJSON performs a POST of the marshaled payload with retries, exponential
// backoff and endpoint rotation.
func (nm *AsyncNetworkManager) PostJSON(ctx context.Context, payload []byte) ([]byte, error) {
	maxRetries := nm.Config.Network.MaxRetries
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(time.Duration(i*i) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			nm.rotateEndpoint()
		}

		if err := nm.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		endpoint := nm.currentEndpoint()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if nm.Config.Network.UserAgent != "" {
			req.Header.Set("User-Agent", nm.Config.Network.UserAgent)
		}

		resp, err := nm.Client.Do(req)
		if err != nil {
			lastErr = err
			nm.Logger.Warning("RPC request to %s failed (attempt %d/%d): %v", endpoint, i+1, maxRetries+1, err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
			nm.Logger.Warning("RPC request rejected (attempt %d/%d): %v", i+1, maxRetries+1, lastErr)
			continue
		}

		return body, nil
	}

	return nil, helpers.NewConnectionError(nm.currentEndpoint(), lastErr)
}
