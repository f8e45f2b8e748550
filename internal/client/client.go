// Package client is a typed Go consumer of the storefront API: thin
// request wrappers plus CartSession, a local mirror of the server cart.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetToken installs the bearer token attached to subsequent requests.
// An empty token sends requests unauthenticated.
func (c *Client) SetToken(token string) { c.token = token }

// APIError is a non-2xx response decoded from the server's
// {status, message} body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

type CartItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

type Cart struct {
	ID         uuid.UUID       `json:"id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Items      []CartItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type cartItemPayload struct {
	CustomerID uuid.UUID `json:"customer_id"`
	ProductID  uuid.UUID `json:"product_id"`
	Quantity   int       `json:"quantity,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// AddToCart adds or increments a line item and returns the full updated cart.
func (c *Client) AddToCart(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*Cart, error) {
	cart := &Cart{}
	err := c.do(ctx, http.MethodPost, "/api/cart/add",
		cartItemPayload{CustomerID: customerID, ProductID: productID, Quantity: quantity}, cart)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// GetCart retrieves the customer's cart; a customer who never added
// anything gets a not-found APIError.
func (c *Client) GetCart(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	cart := &Cart{}
	if err := c.do(ctx, http.MethodGet, "/api/cart/"+customerID.String(), nil, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateCartItem sets the absolute quantity of an existing line item.
func (c *Client) UpdateCartItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*Cart, error) {
	cart := &Cart{}
	err := c.do(ctx, http.MethodPut, "/api/cart/update",
		struct {
			CustomerID uuid.UUID `json:"customer_id"`
			ProductID  uuid.UUID `json:"product_id"`
			Quantity   int       `json:"quantity"`
		}{customerID, productID, quantity}, cart)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveFromCart removes a line item; the product id travels in the body.
func (c *Client) RemoveFromCart(ctx context.Context, customerID, productID uuid.UUID) (*Cart, error) {
	cart := &Cart{}
	err := c.do(ctx, http.MethodDelete, "/api/cart/remove",
		cartItemPayload{CustomerID: customerID, ProductID: productID}, cart)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// ClearCart empties the customer's cart.
func (c *Client) ClearCart(ctx context.Context, customerID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/cart/clear",
		struct {
			CustomerID uuid.UUID `json:"customer_id"`
		}{customerID}, &messageResponse{})
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil {
			apiErr.Message = body.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
