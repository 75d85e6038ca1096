package classify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/juruen/digitpad/log"
	"github.com/juruen/digitpad/normalize"
)

const DefaultTimeout = 5 * time.Second

// Sign returns the hex HMAC-SHA512 of data keyed by key+hmacKey.
func Sign(key, hmacKey string, data []byte) string {
	mac := hmac.New(sha512.New, []byte(key+hmacKey))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// SendRequest posts data to url with the applicationKey and hmac headers.
func SendRequest(ctx context.Context, client *http.Client, url, key, hmacKey string, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("applicationKey", key)
		req.Header.Set("hmac", Sign(key, hmacKey, data))
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: Status %d, Response: %s", res.StatusCode, string(body))
	}

	return body, nil
}

// Remote classifies by calling an HTTP endpoint.
type Remote struct {
	URL            string
	ApplicationKey string
	HmacKey        string
	client         *http.Client
}

func NewRemote(url, applicationKey, hmacKey string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Remote{
		URL:            url,
		ApplicationKey: applicationKey,
		HmacKey:        hmacKey,
		client:         &http.Client{Timeout: timeout},
	}
}

func (r *Remote) Classify(ctx context.Context, input normalize.ModelInput) (int, error) {
	if r.URL == "" {
		return -1, unavailable("remote classifier has no url")
	}

	data, err := json.Marshal(Request{Input: input})
	if err != nil {
		return -1, unavailable("encode request: %v", err)
	}

	body, err := SendRequest(ctx, r.client, r.URL, r.ApplicationKey, r.HmacKey, data)
	if err != nil {
		return -1, unavailable("%v", err)
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return -1, unavailable("decode response: %v", err)
	}
	if resp.Digit == nil {
		return -1, unavailable("response carries no digit")
	}
	if err := checkDigit(*resp.Digit); err != nil {
		return -1, err
	}

	log.Trace.Printf("remote: digit %d (%d bytes)", *resp.Digit, len(body))
	return *resp.Digit, nil
}
