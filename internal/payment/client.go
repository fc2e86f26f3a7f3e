package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client calls a Stripe-compatible payment-intents API. Requests are
// form-encoded per that API's conventions.
type Client struct {
	BaseURL   string
	SecretKey string
	HTTP      *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("currency", req.Currency)
	form.Set("receipt_email", req.Email)
	form.Set("description", req.Description)
	form.Set("metadata[order_number]", req.OrderNumber)
	form.Set("metadata[customer_email]", req.Email)
	form.Set("metadata[item_count]", strconv.Itoa(req.ItemCount))
	form.Set("shipping[name]", strings.TrimSpace(req.Shipping.FirstName+" "+req.Shipping.LastName))
	form.Set("shipping[address][line1]", req.Shipping.Address1)
	if req.Shipping.Address2 != "" {
		form.Set("shipping[address][line2]", req.Shipping.Address2)
	}
	form.Set("shipping[address][city]", req.Shipping.City)
	form.Set("shipping[address][state]", req.Shipping.State)
	form.Set("shipping[address][postal_code]", req.Shipping.PostalCode)
	country := req.Shipping.Country
	if country == "" {
		country = "US"
	}
	form.Set("shipping[address][country]", country)

	var intent Intent
	if err := c.post(ctx, "/v1/payment_intents", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// CancelIntent is the compensating action when order persistence fails after
// an intent was already created.
func (c *Client) CancelIntent(ctx context.Context, intentID string) error {
	return c.post(ctx, "/v1/payment_intents/"+intentID+"/cancel", url.Values{}, nil)
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.SecretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return &GatewayError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &GatewayError{StatusCode: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayError{StatusCode: resp.StatusCode, Message: gatewayMessage(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &GatewayError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

func gatewayMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return "request rejected"
}
