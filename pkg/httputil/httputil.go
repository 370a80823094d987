package httputil

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"
)

var client = &http.Client{Timeout: 30 * time.Second}

// NewHTTPRequest performs an HTTP call and returns the response status and
// body. Only the verbs used by the relay API are supported.
func NewHTTPRequest(
	ctx context.Context,
	method, url, bodyString string, header map[string]string,
) (int, string, error) {
	switch method {
	case "GET", "DELETE":
		return do(ctx, method, url, nil, header)
	case "POST", "PUT":
		return do(ctx, method, url, strings.NewReader(bodyString), header)
	default:
		return 0, "", fmt.Errorf("verb not supported %s", method)
	}
}

func do(
	ctx context.Context,
	method, url string, body *strings.Reader, header map[string]string,
) (int, string, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return 0, "", err
	}

	for key, value := range header {
		req.Header.Set(key, value)
	}

	rs, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer rs.Body.Close()

	bodyBytes, err := ioutil.ReadAll(rs.Body)
	if err != nil {
		return 0, "", err
	}

	return rs.StatusCode, string(bodyBytes), nil
}
