package perception

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/vango-go/asana-coach/pkg/coach/catalog"
)

const defaultBaseURL = "http://127.0.0.1:8766"

// HTTPClient talks to a pose sidecar that owns the landmark model and the
// reference-pose geometry. It implements both Detector and Comparator.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}
}

func (c *HTTPClient) Detect(ctx context.Context, image []byte) (Landmarks, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	var decoded struct {
		Landmarks []Landmark `json:"landmarks"`
	}
	if err := c.post(ctx, "/v1/detect", map[string]any{
		"image_b64": base64.StdEncoding.EncodeToString(image),
	}, &decoded); err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	return Landmarks(decoded.Landmarks), nil
}

func (c *HTTPClient) Compare(ctx context.Context, landmarks Landmarks, pose catalog.PoseID) (Verdict, error) {
	if strings.TrimSpace(string(pose)) == "" {
		return Verdict{}, fmt.Errorf("pose is required")
	}
	var decoded struct {
		Similar     bool         `json:"similar"`
		Accuracy    float64      `json:"accuracy"`
		WrongJoints []WrongJoint `json:"wrong_joints"`
	}
	if err := c.post(ctx, "/v1/compare", map[string]any{
		"pose":      pose,
		"landmarks": landmarks,
	}, &decoded); err != nil {
		return Verdict{}, fmt.Errorf("compare %s: %w", pose, err)
	}
	return Verdict{
		Similar:     decoded.Similar,
		Accuracy:    clampAccuracy(decoded.Accuracy),
		WrongJoints: decoded.WrongJoints,
	}, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return fmt.Errorf("pose service error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func clampAccuracy(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
