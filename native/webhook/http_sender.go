package webhook

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// HTTPSender delivers webhook bodies over real HTTP, satisfying Sender.
type HTTPSender struct {
	Client *http.Client
}

// NewHTTPSender constructs an HTTPSender with a client dedicated to
// webhook delivery, independent of any client used for outbound RPC.
func NewHTTPSender() *HTTPSender {
	return &HTTPSender{Client: &http.Client{}}
}

// Send implements Sender.
func (s *HTTPSender) Send(url string, body []byte, headers map[string]string, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	return resp.StatusCode, respBody, nil
}
