package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// ErrSettlementUnavailable marks transport-level and 5xx failures of the
// external settlement endpoint. These are retry-worthy; anything else
// from the endpoint is final.
var ErrSettlementUnavailable = errors.New("settlement endpoint unavailable")

type SettlementRequest struct {
	BookingID   uuid.UUID `json:"bookingId"`
	ResourceID  uuid.UUID `json:"resourceId"`
	RequesterID uuid.UUID `json:"requesterId"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
}

type SettlementResult struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
	// Reference is the provider's settlement id; not every provider
	// returns one.
	Reference string `json:"reference,omitempty"`
}

type SettlementClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewSettlementClient(baseURL string) *SettlementClient {
	return &SettlementClient{
		baseURL: baseURL,
		// Timeouts are enforced per call through the context; the client
		// itself stays unbounded so the caller owns the deadline.
		httpClient: http.DefaultClient,
	}
}

// ProcessBooking submits the booking to the external settlement process
// and returns its verdict.
func (c *SettlementClient) ProcessBooking(ctx context.Context, request SettlementRequest) (SettlementResult, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("failed to marshal settlement request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/external/bookings/sync", bytes.NewReader(body))
	if err != nil {
		return SettlementResult{}, fmt.Errorf("failed to build settlement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SettlementResult{}, fmt.Errorf("%w: %v", ErrSettlementUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return SettlementResult{}, fmt.Errorf("%w: status %d", ErrSettlementUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return SettlementResult{}, fmt.Errorf("unexpected settlement status code: %d", resp.StatusCode)
	}

	var result SettlementResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return SettlementResult{}, fmt.Errorf("failed to decode settlement response: %w", err)
	}

	return result, nil
}
