package payment

import (
    "bytes"
    "encoding/json"
    "fmt"
    "net/http"
    "os"
    "strings"
    "sync"
    "time"
)

const defaultBaseURL = "https://api-m.sandbox.paypal.com"

// Client wraps the PayPal REST API. Access tokens come from the
// client-credentials grant and are cached until shortly before expiry.
type Client struct {
    baseURL      string
    clientID     string
    clientSecret string
    httpClient   *http.Client

    // One Client is shared by every request, so the cached token is
    // guarded.
    tokenMu     sync.Mutex
    accessToken string
    tokenExpiry time.Time
}

func NewClient() *Client {
    return &Client{
        baseURL:      defaultBaseURL,
        clientID:     os.Getenv("PAYPAL_CLIENT_ID"),
        clientSecret: os.Getenv("PAYPAL_SECRET"),
        httpClient: &http.Client{
            Timeout: 30 * time.Second,
        },
    }
}


func (c *Client) getAccessToken() (string, error) {
    c.tokenMu.Lock()
    defer c.tokenMu.Unlock()

    if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
        return c.accessToken, nil
    }

    body := strings.NewReader("grant_type=client_credentials")
    req, err := http.NewRequest("POST", c.baseURL+"/v1/oauth2/token", body)
    if err != nil {
        return "", err
    }
    req.SetBasicAuth(c.clientID, c.clientSecret)
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

    resp, err := c.httpClient.Do(req)
    if err != nil {
        return "", fmt.Errorf("error requesting access token: %w", err)
    }
    defer resp.Body.Close()

    if resp.StatusCode != http.StatusOK {
        return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
    }

    var tokenResp struct {
        AccessToken string `json:"access_token"`
        ExpiresIn   int    `json:"expires_in"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
        return "", fmt.Errorf("error reading token response: %w", err)
    }

    c.accessToken = tokenResp.AccessToken
    c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)

    return c.accessToken, nil
}


// CreateOrder opens a checkout order for the given amount and returns
// the order ID the frontend approves against.
func (c *Client) CreateOrder(amount float64, currency string) (string, error) {
    token, err := c.getAccessToken()
    if err != nil {
        return "", err
    }

    payload := map[string]interface{}{
        "intent": "CAPTURE",
        "purchase_units": []map[string]interface{}{
            {
                "amount": map[string]string{
                    "currency_code": currency,
                    "value":         fmt.Sprintf("%.2f", amount),
                },
            },
        },
    }

    jsonData, err := json.Marshal(payload)
    if err != nil {
        return "", err
    }

    req, err := http.NewRequest("POST", c.baseURL+"/v2/checkout/orders", bytes.NewBuffer(jsonData))
    if err != nil {
        return "", err
    }
    req.Header.Set("Authorization", "Bearer "+token)
    req.Header.Set("Content-Type", "application/json")

    resp, err := c.httpClient.Do(req)
    if err != nil {
        return "", fmt.Errorf("error creating order: %w", err)
    }
    defer resp.Body.Close()

    if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
        return "", fmt.Errorf("order endpoint returned status %d", resp.StatusCode)
    }

    var orderResp struct {
        ID string `json:"id"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&orderResp); err != nil {
        return "", fmt.Errorf("error reading order response: %w", err)
    }
    if orderResp.ID == "" {
        return "", fmt.Errorf("order endpoint returned empty order ID")
    }

    return orderResp.ID, nil
}


// CaptureOrder captures an approved order and returns the capture ID.
func (c *Client) CaptureOrder(orderID string) (string, error) {
    token, err := c.getAccessToken()
    if err != nil {
        return "", err
    }

    url := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.baseURL, orderID)
    req, err := http.NewRequest("POST", url, bytes.NewBufferString("{}"))
    if err != nil {
        return "", err
    }
    req.Header.Set("Authorization", "Bearer "+token)
    req.Header.Set("Content-Type", "application/json")

    resp, err := c.httpClient.Do(req)
    if err != nil {
        return "", fmt.Errorf("error capturing order: %w", err)
    }
    defer resp.Body.Close()

    if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
        return "", fmt.Errorf("capture endpoint returned status %d", resp.StatusCode)
    }

    var captureResp struct {
        Status        string `json:"status"`
        PurchaseUnits []struct {
            Payments struct {
                Captures []struct {
                    ID     string `json:"id"`
                    Status string `json:"status"`
                } `json:"captures"`
            } `json:"payments"`
        } `json:"purchase_units"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&captureResp); err != nil {
        return "", fmt.Errorf("error reading capture response: %w", err)
    }

    if captureResp.Status != "COMPLETED" {
        return "", fmt.Errorf("capture not completed, status %s", captureResp.Status)
    }

    for _, unit := range captureResp.PurchaseUnits {
        for _, capture := range unit.Payments.Captures {
            if capture.ID != "" {
                return capture.ID, nil
            }
        }
    }

    return "", fmt.Errorf("capture response missing capture ID")
}
