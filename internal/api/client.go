// Package api is the typed client for the stock-ordering backend. One method
// per backend operation; every non-2xx response surfaces as a *RequestError
// with a human-readable message. No retries, no caching.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/cleanhub/stockport/internal/domain"
)

// defaultTimeout bounds every request so a hung backend cannot hang the
// submission pipeline indefinitely.
const defaultTimeout = 30 * time.Second

// RequestError is returned for any non-2xx backend response.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed: %s (status %d)", e.Message, e.Status)
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// do issues one JSON request. token may be empty for unauthenticated calls;
// out may be nil when the response body is irrelevant.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newRequestError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// newRequestError prefers the backend-supplied message and falls back to a
// generic one.
func newRequestError(resp *http.Response) *RequestError {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err == nil {
		if payload.Message != "" {
			msg = payload.Message
		} else {
			msg = payload.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	if msg == "" {
		msg = "unexpected backend response"
	}
	return &RequestError{Status: resp.StatusCode, Message: msg}
}

// SiteCredentials is the response of a successful site authentication.
type SiteCredentials struct {
	AuthToken string `json:"auth_token"`
	SiteID    string `json:"site_id"`
}

// AuthenticateSite calls POST /sites/authenticate.
func (c *Client) AuthenticateSite(ctx context.Context, siteName, password string) (*SiteCredentials, error) {
	body := map[string]string{"site_name": siteName, "password": password}
	var out SiteCredentials
	if err := c.do(ctx, http.MethodPost, "/sites/authenticate", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthenticateAdmin calls POST /admin/login and returns the admin token.
func (c *Client) AuthenticateAdmin(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/admin/login", "", body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// FetchSite calls GET /sites/:id.
func (c *Client) FetchSite(ctx context.Context, token, siteID string) (*domain.Site, error) {
	var out domain.Site
	if err := c.do(ctx, http.MethodGet, "/sites/"+url.PathEscape(siteID), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchProducts calls POST /products/list for the given catalog ids.
func (c *Client) FetchProducts(ctx context.Context, token string, productIDs []string) ([]domain.Product, error) {
	body := map[string][]string{"product_ids": productIDs}
	var out []domain.Product
	if err := c.do(ctx, http.MethodPost, "/products/list", token, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrderRequest is the order-creation payload assembled by the
// submission pipeline. Image fields carry backend URLs, never local handles.
type CreateOrderRequest struct {
	SiteID       string             `json:"site_id"`
	SiteInfo     domain.SiteInfo    `json:"site_info"`
	CleanerEmail string             `json:"cleaner_email"`
	OrderDate    string             `json:"order_date"`
	Items        []domain.OrderItem `json:"order_items"`
	RoomPhotos   []string           `json:"room_photos"`
}

// CreateOrder calls POST /orders/create and returns the echoed order record.
func (c *Client) CreateOrder(ctx context.Context, token string, req *CreateOrderRequest) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, http.MethodPost, "/orders/create", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActiveOrders calls GET /orders/active.
func (c *Client) ActiveOrders(ctx context.Context, token string) ([]domain.Order, error) {
	var out []domain.Order
	if err := c.do(ctx, http.MethodGet, "/orders/active", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CompletedOrders calls GET /orders/completed.
func (c *Client) CompletedOrders(ctx context.Context, token string) ([]domain.Order, error) {
	var out []domain.Order
	if err := c.do(ctx, http.MethodGet, "/orders/completed", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OrderDetail calls GET /orders/:order_number.
func (c *Client) OrderDetail(ctx context.Context, token, orderNumber string) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderNumber), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LastOrdersForSite calls POST /orders/last-three-orders: the most recent
// orders for a site placed before orderDate.
func (c *Client) LastOrdersForSite(ctx context.Context, token, siteID, orderDate string) ([]domain.Order, error) {
	body := map[string]string{"site_id": siteID, "order_date": orderDate}
	var out []domain.Order
	if err := c.do(ctx, http.MethodPost, "/orders/last-three-orders", token, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateOrderStatus calls PUT /orders/update-status. deliveryDate may be
// empty; the backend maps the status value onto the order lifecycle.
func (c *Client) UpdateOrderStatus(ctx context.Context, token, orderID, status, reason, deliveryDate string) error {
	body := map[string]string{
		"order_id": orderID,
		"status":   status,
		"reason":   reason,
	}
	if deliveryDate != "" {
		body["delivery_date"] = deliveryDate
	}
	return c.do(ctx, http.MethodPut, "/orders/update-status", token, body, nil)
}

// UpdateNotes calls PUT /orders/update-notes.
func (c *Client) UpdateNotes(ctx context.Context, token, orderNumber, notes string) error {
	body := map[string]string{"order_number": orderNumber, "notes": notes}
	return c.do(ctx, http.MethodPut, "/orders/update-notes", token, body, nil)
}

// UpdateDeliveryDate calls PUT /orders/update-delivery-date.
func (c *Client) UpdateDeliveryDate(ctx context.Context, token, orderNumber, deliveryDate string) error {
	body := map[string]string{"order_number": orderNumber, "delivery_date": deliveryDate}
	return c.do(ctx, http.MethodPut, "/orders/update-delivery-date", token, body, nil)
}

// UploadImage calls POST /orders/upload-image with a multipart form of one
// binary `image` part plus a `folder` field, returning the stored image URL.
func (c *Client) UploadImage(ctx context.Context, token, folder, filename string, image io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if err := mw.WriteField("folder", folder); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/orders/upload-image", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newRequestError(resp)
	}

	var out struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return out.ImageURL, nil
}
