package meeting

import (
    "bytes"
    "encoding/json"
    "fmt"
    "net/http"
    "os"
    "time"
)

const defaultBaseURL = "https://api.videosdk.live/v2"

// Client talks to the VideoSDK rooms API. Rooms are created once per
// appointment and the room ID is stored on the appointment record.
type Client struct {
    baseURL    string
    authToken  string
    httpClient *http.Client
}

func NewClient() *Client {
    return &Client{
        baseURL:   defaultBaseURL,
        authToken: os.Getenv("VIDEOSDK_AUTH_TOKEN"),
        httpClient: &http.Client{
            Timeout: 15 * time.Second,
        },
    }
}


// CreateRoom provisions a new video room and returns its ID.
func (c *Client) CreateRoom() (string, error) {
    req, err := http.NewRequest("POST", c.baseURL+"/rooms", bytes.NewBufferString("{}"))
    if err != nil {
        return "", err
    }
    req.Header.Set("Authorization", c.authToken)
    req.Header.Set("Content-Type", "application/json")

    resp, err := c.httpClient.Do(req)
    if err != nil {
        return "", fmt.Errorf("error creating video room: %w", err)
    }
    defer resp.Body.Close()

    if resp.StatusCode != http.StatusOK {
        return "", fmt.Errorf("video room API returned status %d", resp.StatusCode)
    }

    var roomResp struct {
        RoomID string `json:"roomId"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&roomResp); err != nil {
        return "", fmt.Errorf("error reading video room response: %w", err)
    }
    if roomResp.RoomID == "" {
        return "", fmt.Errorf("video room API returned empty room ID")
    }

    return roomResp.RoomID, nil
}
