package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"blendcaja/internal/model"

	"github.com/google/uuid"
)

// supervisorCodeRequest is sent to the identity service to resolve a code.
type supervisorCodeRequest struct {
	Code      string `json:"code"`
	CompanyID string `json:"company_id"`
}

// supervisorCodeResponse is returned by POST /v1/supervisores/validar.
type supervisorCodeResponse struct {
	Valid        bool   `json:"valid"`
	SupervisorID string `json:"supervisor_id"`
	Nombre       string `json:"nombre"`
}

// IdentityClient resolves supervisor codes against the external identity
// service. Calls go through a CircuitBreaker; the deadline comes from ctx.
type IdentityClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *CircuitBreaker
}

func NewIdentityClient(baseURL string, cb *CircuitBreaker) *IdentityClient {
	if cb == nil {
		cb = NewCircuitBreaker(DefaultCBConfig())
	}
	return &IdentityClient{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		cb:         cb,
	}
}

// LookupSupervisorCode returns the supervisor owning code, or (nil, nil) when
// the service answers that the code is not valid for companyID. Any transport
// failure, non-200 status or open breaker is returned as an error.
func (c *IdentityClient) LookupSupervisorCode(ctx context.Context, code string, companyID uuid.UUID) (*model.Supervisor, error) {
	var result supervisorCodeResponse
	err := c.cb.Execute(ctx, func(ctx context.Context) error {
		body, err := json.Marshal(supervisorCodeRequest{Code: code, CompanyID: companyID.String()})
		if err != nil {
			return fmt.Errorf("identity: marshal payload: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/supervisores/validar", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("identity: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("identity: service unreachable: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("identity: service returned %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("identity: decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(result.SupervisorID)
	if err != nil {
		return nil, fmt.Errorf("identity: invalid supervisor_id %q: %w", result.SupervisorID, err)
	}
	return &model.Supervisor{ID: id, Nombre: result.Nombre}, nil
}
