package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL    = "https://graph.instagram.com"
	defaultAPIVersion = "v21.0"
	defaultTimeout    = 30 * time.Second
)

// Client is an Instagram Graph API client for content publishing
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

// ClientOption is a function that configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithAPIVersion sets the API version
func WithAPIVersion(version string) ClientOption {
	return func(c *Client) {
		c.apiVersion = version
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a new Instagram API client
func New(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiVersion: defaultAPIVersion,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an error from the Instagram API
type APIError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	FBTraceID    string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("instagram API error: %s (code: %d, subcode: %d)", e.Message, e.Code, e.ErrorSubcode)
}

// IsAuthError reports whether the error is an authorization/permission
// failure. Code 190 is an invalid or expired token, 102 is a session
// error, 10 and the 200-299 range are permission errors.
func (e *APIError) IsAuthError() bool {
	switch {
	case e.Code == 190, e.Code == 102, e.Code == 10:
		return true
	case e.Code >= 200 && e.Code <= 299:
		return true
	default:
		return false
	}
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ContainerStatus represents the status of a media container
type ContainerStatus string

const (
	ContainerStatusExpired    ContainerStatus = "EXPIRED"
	ContainerStatusError      ContainerStatus = "ERROR"
	ContainerStatusFinished   ContainerStatus = "FINISHED"
	ContainerStatusInProgress ContainerStatus = "IN_PROGRESS"
	ContainerStatusPublished  ContainerStatus = "PUBLISHED"
)

// GetProfileInput represents input for fetching the token owner's profile
type GetProfileInput struct {
	AccessToken string
}

// GetProfileOutput represents the token owner's profile
type GetProfileOutput struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// GetProfile fetches the profile behind an access token. Used as a cheap
// validity check before a publish attempt.
func (c *Client) GetProfile(ctx context.Context, in GetProfileInput) (*GetProfileOutput, error) {
	endpoint := fmt.Sprintf("%s/%s/me", c.baseURL, c.apiVersion)

	params := url.Values{}
	params.Set("access_token", in.AccessToken)
	params.Set("fields", "id,username")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out GetProfileOutput
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// CreateMediaContainerInput represents input for creating a media container
type CreateMediaContainerInput struct {
	UserID      string
	AccessToken string
	ImageURL    string // For images
	VideoURL    string // For video content
	Caption     string
}

// CreateMediaContainerOutput represents output from creating a media container
type CreateMediaContainerOutput struct {
	ID string `json:"id"`
}

// CreateMediaContainer creates a media container for publishing
// Step 1 of the publishing process
func (c *Client) CreateMediaContainer(ctx context.Context, in CreateMediaContainerInput) (*CreateMediaContainerOutput, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/media", c.baseURL, c.apiVersion, in.UserID)

	params := url.Values{}
	params.Set("access_token", in.AccessToken)

	if in.ImageURL != "" {
		params.Set("image_url", in.ImageURL)
	}
	if in.VideoURL != "" {
		params.Set("video_url", in.VideoURL)
		params.Set("media_type", "REELS")
	}
	if in.Caption != "" {
		params.Set("caption", in.Caption)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out CreateMediaContainerOutput
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// GetContainerStatusInput represents input for checking container status
type GetContainerStatusInput struct {
	ContainerID string
	AccessToken string
}

// GetContainerStatusOutput represents output from checking container status
type GetContainerStatusOutput struct {
	ID           string          `json:"id"`
	Status       ContainerStatus `json:"status_code"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// GetContainerStatus checks the status of a media container
// Step 2 of the publishing process (for video content)
func (c *Client) GetContainerStatus(ctx context.Context, in GetContainerStatusInput) (*GetContainerStatusOutput, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, in.ContainerID)

	params := url.Values{}
	params.Set("access_token", in.AccessToken)
	params.Set("fields", "status_code,error_message")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out GetContainerStatusOutput
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// PublishMediaInput represents input for publishing media
type PublishMediaInput struct {
	UserID      string
	AccessToken string
	ContainerID string
}

// PublishMediaOutput represents output from publishing media
type PublishMediaOutput struct {
	ID string `json:"id"` // Instagram Media ID
}

// PublishMedia publishes a media container
// Final step of the publishing process
func (c *Client) PublishMedia(ctx context.Context, in PublishMediaInput) (*PublishMediaOutput, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/media_publish", c.baseURL, c.apiVersion, in.UserID)

	params := url.Values{}
	params.Set("access_token", in.AccessToken)
	params.Set("creation_id", in.ContainerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out PublishMediaOutput
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// do executes an HTTP request and decodes the response
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	// Check for error response
	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
		}
		return &errResp.Error
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
