package facebook

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
	defaultBaseURL    = "https://graph.facebook.com"
	defaultAPIVersion = "v21.0"
	defaultTimeout    = 30 * time.Second
)

// Client is a Facebook Graph API client for page publishing
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

// New creates a new Facebook Graph API client
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

// APIError represents an error from the Facebook Graph API
type APIError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	FBTraceID    string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("facebook API error: %s (code: %d, subcode: %d)", e.Message, e.Code, e.ErrorSubcode)
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

// DebugTokenInput represents input for token introspection
type DebugTokenInput struct {
	AccessToken string
}

// DebugTokenOutput represents token introspection results
type DebugTokenOutput struct {
	IsValid   bool   `json:"is_valid"`
	AppID     string `json:"app_id"`
	UserID    string `json:"user_id"`
	ExpiresAt int64  `json:"expires_at"`
}

type debugTokenResponse struct {
	Data DebugTokenOutput `json:"data"`
}

// DebugToken introspects an access token. Used as a cheap validity check
// before a publish attempt.
func (c *Client) DebugToken(ctx context.Context, in DebugTokenInput) (*DebugTokenOutput, error) {
	endpoint := fmt.Sprintf("%s/%s/debug_token", c.baseURL, c.apiVersion)

	params := url.Values{}
	params.Set("input_token", in.AccessToken)
	params.Set("access_token", in.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out debugTokenResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// CreateFeedPostInput represents input for a text-only feed post
type CreateFeedPostInput struct {
	PageID      string
	AccessToken string
	Message     string
	Link        string
}

// CreateFeedPostOutput represents output from creating a feed post
type CreateFeedPostOutput struct {
	ID string `json:"id"`
}

// CreateFeedPost publishes a text post to a page feed
// POST /{page-id}/feed
func (c *Client) CreateFeedPost(ctx context.Context, in CreateFeedPostInput) (*CreateFeedPostOutput, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/feed", c.baseURL, c.apiVersion, in.PageID)

	params := url.Values{}
	params.Set("access_token", in.AccessToken)
	params.Set("message", in.Message)
	if in.Link != "" {
		params.Set("link", in.Link)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out CreateFeedPostOutput
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// CreatePhotoPostInput represents input for a photo post
type CreatePhotoPostInput struct {
	PageID      string
	AccessToken string
	PhotoURL    string
	Caption     string
}

// CreatePhotoPostOutput represents output from creating a photo post
type CreatePhotoPostOutput struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

// CreatePhotoPost publishes a photo (by public URL) to a page
// POST /{page-id}/photos
func (c *Client) CreatePhotoPost(ctx context.Context, in CreatePhotoPostInput) (*CreatePhotoPostOutput, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/photos", c.baseURL, c.apiVersion, in.PageID)

	params := url.Values{}
	params.Set("access_token", in.AccessToken)
	params.Set("url", in.PhotoURL)
	if in.Caption != "" {
		params.Set("caption", in.Caption)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var out CreatePhotoPostOutput
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
