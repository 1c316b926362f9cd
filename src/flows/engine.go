package flows

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coe-labs/coe-agent/src/data"
	"github.com/coe-labs/coe-agent/src/webclient"
)

// Engine invokes flows over the external flow-execution service. The output
// shape depends on the flow's own definition; callers must normalize it
// before showing anything to a user.
type Engine struct {
	baseURL    string
	httpClient *http.Client
}

func NewEngine(baseURL string, timeout time.Duration) *Engine {
	return &Engine{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: webclient.NewDefault(timeout),
	}
}

// Run executes a flow by its endpoint name and returns the raw output map.
func (e *Engine) Run(ctx context.Context, flow *data.Flow, args map[string]any) (map[string]any, error) {
	if flow == nil {
		return nil, fmt.Errorf("flows: nil flow")
	}
	if e.baseURL == "" {
		return nil, fmt.Errorf("flows: engine base URL not configured")
	}

	if args == nil {
		args = map[string]any{}
	}
	reqBody, _ := json.Marshal(map[string]any{"user_input": userInput(args)})
	endpoint := e.baseURL + "/flows/run/" + url.PathEscape(flow.Name)

	_, body, err := webclient.DoWithRetry(ctx, 2, 2*time.Second, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(reqBody))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := e.httpClient.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, b, fmt.Errorf("status %d", resp.StatusCode)
		}
		return resp.StatusCode, b, nil
	})
	if err != nil {
		return nil, fmt.Errorf("flows: run %q: %w", flow.Name, err)
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("flows: run %q: bad response: %w", flow.Name, err)
	}
	return out, nil
}

// userInput collapses the common single-field argument form into the plain
// string the flow service expects.
func userInput(args map[string]any) any {
	if s, ok := args["input"].(string); ok && len(args) == 1 {
		return s
	}
	return args
}
