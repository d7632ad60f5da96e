package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext holds per-scenario HTTP state against a running evidex server.
type TestContext struct {
	BaseURL string
	Actor   string
	client  *http.Client

	status  int
	body    []byte
	data    map[string]any
	errCode string
	saved   map[string]string
}

func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Actor:   "e2e@evidex.test",
		client:  &http.Client{Timeout: 15 * time.Second},
		saved:   map[string]string{},
	}
}

// Reset clears response and saved values between scenarios.
func (tc *TestContext) Reset() {
	tc.status = 0
	tc.body = nil
	tc.data = nil
	tc.errCode = ""
	tc.saved = map[string]string{}
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, tc.BaseURL+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", tc.Actor)

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.status = resp.StatusCode
	tc.body, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.data = nil
	tc.errCode = ""
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var env struct {
			Data  map[string]any `json:"data"`
			Error *struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(tc.body, &env); err == nil {
			tc.data = env.Data
			if env.Error != nil {
				tc.errCode = env.Error.Code
			}
		}
	}
	return nil
}

func (tc *TestContext) Status() int { return tc.status }

func (tc *TestContext) ErrorCode() string { return tc.errCode }

func (tc *TestContext) Body() string { return string(tc.body) }

// Field reads a dotted path from the response data, e.g. "document.batesNumber".
func (tc *TestContext) Field(path string) (any, error) {
	var cur any = tc.data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q not found in %s", path, tc.body)
		}
		cur, ok = m[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in %s", path, tc.body)
		}
	}
	return cur, nil
}

// Save remembers a response field under name for later {name} substitution.
func (tc *TestContext) Save(name, field string) error {
	v, err := tc.Field(field)
	if err != nil {
		return err
	}
	tc.saved[name] = fmt.Sprint(v)
	return nil
}

func (tc *TestContext) Set(name, value string) { tc.saved[name] = value }

// Expand replaces {name} placeholders with saved values.
func (tc *TestContext) Expand(s string) string {
	for k, v := range tc.saved {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}
