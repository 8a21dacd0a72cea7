package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultCartesiaBaseURL = "https://api.cartesia.ai"
	DefaultCartesiaVoiceID = "a0e99841-438c-4a64-b679-ae501e7d6091"

	cartesiaVersion = "2025-04-16"
	cartesiaModel   = "sonic-3"
)

// Cartesia synthesizes mp3 audio through the Cartesia bytes endpoint.
type Cartesia struct {
	apiKey     string
	baseURL    string
	voiceID    string
	httpClient *http.Client
}

func NewCartesia(apiKey, baseURL, voiceID string, httpClient *http.Client) *Cartesia {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultCartesiaBaseURL
	}
	if strings.TrimSpace(voiceID) == "" {
		voiceID = DefaultCartesiaVoiceID
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Cartesia{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		voiceID:    voiceID,
		httpClient: httpClient,
	}
}

func (c *Cartesia) Configured() bool {
	return c != nil && c.apiKey != ""
}

type cartesiaRequest struct {
	ModelID      string               `json:"model_id"`
	Transcript   string               `json:"transcript"`
	Voice        cartesiaVoice        `json:"voice"`
	OutputFormat cartesiaOutputFormat `json:"output_format"`
	Language     string               `json:"language,omitempty"`
}

type cartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	SampleRate int    `json:"sample_rate"`
	BitRate    int    `json:"bit_rate"`
}

func (c *Cartesia) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if !c.Configured() {
		return nil, errors.New("cartesia api key is not configured")
	}
	body, err := json.Marshal(cartesiaRequest{
		ModelID:    cartesiaModel,
		Transcript: text,
		Voice:      cartesiaVoice{Mode: "id", ID: c.voiceID},
		OutputFormat: cartesiaOutputFormat{
			Container:  "mp3",
			SampleRate: 24000,
			BitRate:    128000,
		},
		Language: "en",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cartesia request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return []byte{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("cartesia error %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return audio, nil
}
