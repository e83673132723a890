package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gatehouse/gatehouse/internal/domain"
	"github.com/gatehouse/gatehouse/internal/token"
	"go.uber.org/zap"
)

// Response is the nullable JSON body a webhook may answer with. Its
// app_metadata/user_metadata keys overwrite the user's metadata before token
// issuance; the whole object seeds the access token's metadata claim.
type Response map[string]any

func (r Response) objectField(key string) domain.JSONMap {
	if v, ok := r[key].(map[string]any); ok {
		return domain.JSONMap(v)
	}
	return nil
}

// AppMetadata returns the app_metadata override, nil when absent.
func (r Response) AppMetadata() domain.JSONMap {
	return r.objectField("app_metadata")
}

// UserMetadata returns the user_metadata override, nil when absent.
func (r Response) UserMetadata() domain.JSONMap {
	return r.objectField("user_metadata")
}

// HookError is a webhook's structured rejection of a login or signup. The
// operator's status and body are surfaced to the caller; the attempt is never
// retried.
type HookError struct {
	Status int
	Body   domain.JSONMap
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook rejected with status %d", e.Status)
}

const requestTimeout = 10 * time.Second

// Dispatcher notifies operator-configured endpoints of login/signup events.
// Delivery is at most once per event.
type Dispatcher struct {
	tokens *token.Manager
	client *http.Client
	logger *zap.Logger
}

// NewDispatcher creates a webhook dispatcher
func NewDispatcher(tokens *token.Manager, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		tokens: tokens,
		client: &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

// Trigger posts {event, provider, user} to the tenant's endpoint for event.
// A tenant without a hook for the event is a no-op success. A non-2xx answer
// comes back as *HookError; transport failures and unparseable bodies map to
// a generic unprocessable error.
func (d *Dispatcher) Trigger(ctx context.Context, event, providerName string, user *domain.User, sig *token.OperatorSignature) (Response, error) {
	url, ok := sig.HookURL(event)
	if !ok {
		return nil, nil
	}

	payload, err := json.Marshal(map[string]any{
		"event":    event,
		"provider": providerName,
		"user":     user,
	})
	if err != nil {
		d.logger.Error("failed to marshal hook payload", zap.Error(err))
		return nil, domain.ErrInternal()
	}

	headerToken, err := d.tokens.SignHookToken()
	if err != nil {
		d.logger.Error("failed to sign hook token", zap.Error(err))
		return nil, domain.ErrInternal()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		d.logger.Error("failed to build hook request", zap.String("url", url), zap.Error(err))
		return nil, domain.ErrInternal()
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", headerToken)

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Error("hook request failed",
			zap.String("event", event),
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, domain.NewError(422, "hook_error", "Webhook Call Failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		d.logger.Error("failed to read hook response", zap.Error(err))
		return nil, domain.NewError(422, "hook_error", "Webhook Call Failed")
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		if len(bytes.TrimSpace(body)) == 0 {
			return nil, nil
		}

		var hookResponse Response
		if err := json.Unmarshal(body, &hookResponse); err != nil {
			d.logger.Error("failed to parse hook response", zap.Error(err))
			return nil, domain.NewError(422, "hook_success_response_parsing_error", "Unable To Parse Webhook Response")
		}

		return hookResponse, nil
	}

	var rejection domain.JSONMap
	if err := json.Unmarshal(body, &rejection); err != nil {
		d.logger.Error("failed to parse hook rejection",
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return nil, domain.NewError(422, "hook_error_response_parsing_error", "Unable To Parse Webhook Response")
	}

	return nil, &HookError{Status: resp.StatusCode, Body: rejection}
}
