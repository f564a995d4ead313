package client

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"net/http"
	"strings"
)

// PaddleClient talks to a PaddleOCR REST endpoint. It is the primary text
// recognizer; results below the confidence threshold are dropped before
// they reach the pipeline.
type PaddleClient struct {
	apiURL              string
	confidenceThreshold float64
	httpClient          *http.Client
}

// NewPaddleClient creates a client for the given PaddleOCR API URL.
func NewPaddleClient(apiURL string, confidenceThreshold float64) *PaddleClient {
	return &PaddleClient{
		apiURL:              apiURL,
		confidenceThreshold: confidenceThreshold,
		httpClient:          &http.Client{},
	}
}

// Recognize extracts text fragments from an image via the PaddleOCR API.
// Fragments with confidence below the threshold are filtered out.
func (p *PaddleClient) Recognize(img image.Image) ([]string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	payload := map[string]interface{}{
		"images": []string{base64.StdEncoding.EncodeToString(buf.Bytes())},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := p.httpClient.Post(p.apiURL, "application/json", bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to call PaddleOCR API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("PaddleOCR API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Results [][]struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode PaddleOCR response: %w", err)
	}

	var texts []string
	if len(result.Results) > 0 {
		for _, line := range result.Results[0] {
			text := strings.TrimSpace(line.Text)
			if text == "" || line.Confidence < p.confidenceThreshold {
				continue
			}
			texts = append(texts, text)
		}
	}

	log.Printf("PaddleOCR recognized %d text fragments", len(texts))
	return texts, nil
}
