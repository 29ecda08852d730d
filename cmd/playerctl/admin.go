package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/danmuck/playernet/internal/player"
)

// adminClient talks to the playerd admin API.
type adminClient struct {
	base  string
	token string
	http  *http.Client
}

func newAdminClient(base, token string) *adminClient {
	return &adminClient{base: base, token: token, http: &http.Client{Timeout: 5 * time.Second}}
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("admin api %d: %s", e.Status, e.Message)
}

func (c *adminClient) do(method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &apiError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *adminClient) Health() (map[string]string, error) {
	var out map[string]string
	err := c.do(http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *adminClient) Sessions() ([]player.Info, error) {
	var out struct {
		Sessions []player.Info `json:"sessions"`
	}
	err := c.do(http.MethodGet, "/sessions", nil, &out)
	return out.Sessions, err
}

func (c *adminClient) Disconnect(id, reason string, notify bool) error {
	req := map[string]any{"reason": reason, "notify": notify}
	return c.do(http.MethodPost, "/sessions/"+url.PathEscape(id)+"/disconnect", req, nil)
}

func (c *adminClient) Message(id, message string) (bool, error) {
	var out struct {
		Delivered bool `json:"delivered"`
	}
	err := c.do(http.MethodPost, "/sessions/"+url.PathEscape(id)+"/message", map[string]string{"message": message}, &out)
	return out.Delivered, err
}

func (c *adminClient) Broadcast(message string) (int, error) {
	var out struct {
		Delivered int `json:"delivered"`
	}
	err := c.do(http.MethodPost, "/broadcast", map[string]string{"message": message}, &out)
	return out.Delivered, err
}

func (c *adminClient) Observers() ([]string, error) {
	var out struct {
		Observers []string `json:"observers"`
	}
	err := c.do(http.MethodGet, "/observers", nil, &out)
	return out.Observers, err
}

func (c *adminClient) RemoveObserver(name string) error {
	return c.do(http.MethodDelete, "/observers/"+url.PathEscape(name), nil, nil)
}
