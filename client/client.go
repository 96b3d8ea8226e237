package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"intentlink/internal/errors"
	"intentlink/internal/intent"
	"intentlink/internal/middleware"
	"intentlink/internal/view"
)

// Client talks to an intentlink server. Its cookie jar keeps the viewer ID
// the server issues, so repeated interactions from one Client count once.
// Callers that outlive the process persist ViewerID and pass it back with
// WithViewerID.
type Client struct {
	baseURL    string
	endpoint   *url.URL
	httpClient *http.Client
}

type Option func(*Client)

// WithViewerID makes the client act as a viewer the server already knows.
func WithViewerID(id string) Option {
	return func(c *Client) {
		if id == "" {
			return
		}
		c.httpClient.Jar.SetCookies(c.endpoint, []*http.Cookie{{
			Name:  middleware.ViewerCookie,
			Value: id,
			Path:  "/",
		}})
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	endpoint, err := url.Parse(baseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:  baseURL,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: time.Second * 10,
			Jar:     jar,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ViewerID returns the viewer ID the server issued, or "" before the first
// response that set one.
func (c *Client) ViewerID() string {
	for _, cookie := range c.httpClient.Jar.Cookies(c.endpoint) {
		if cookie.Name == middleware.ViewerCookie {
			return cookie.Value
		}
	}
	return ""
}

func (c *Client) CreateIntention(req view.ShareRequest) (*view.Shared, error) {
	var result view.Shared
	if err := c.do(http.MethodPost, "/api/intentions", req, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) View(token string) (*view.Page, error) {
	var page view.Page
	if err := c.do(http.MethodGet, "/api/intentions/"+url.PathEscape(token), nil, http.StatusOK, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) Preview(token string) (*view.Preview, error) {
	var preview view.Preview
	if err := c.do(http.MethodGet, "/api/intentions/"+url.PathEscape(token)+"/preview", nil, http.StatusOK, &preview); err != nil {
		return nil, err
	}
	return &preview, nil
}

func (c *Client) Stats(token string) (intent.InteractionStats, error) {
	var stats intent.InteractionStats
	err := c.do(http.MethodGet, "/api/intentions/"+url.PathEscape(token)+"/stats", nil, http.StatusOK, &stats)
	return stats, err
}

func (c *Client) Interact(token string, kind intent.Kind) (*view.Interaction, error) {
	body := map[string]intent.Kind{"kind": kind}
	var res view.Interaction
	if err := c.do(http.MethodPost, "/api/intentions/"+url.PathEscape(token)+"/interactions", body, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var apiErr errors.Error
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Type != "" {
			apiErr.Code = resp.StatusCode
			return &apiErr
		}
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
