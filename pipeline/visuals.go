package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
)

// ImageRequest describes one scene image to materialise at OutputPath.
type ImageRequest struct {
	Scene      Scene
	Index      int
	ArtStyle   string
	Niche      string
	OutputPath string
}

// ImageProvider is one tier of the image fallback chain. Provide writes the
// image to req.OutputPath or returns an error; it never leaves a partial file.
type ImageProvider interface {
	Name() string
	Provide(ctx context.Context, req ImageRequest) error
}

// Sourcer tries providers in order and stops at the first success.
type Sourcer struct {
	providers []ImageProvider
}

func NewSourcer(providers ...ImageProvider) *Sourcer {
	return &Sourcer{providers: providers}
}

// Source returns the name of the provider that produced the image.
func (s *Sourcer) Source(ctx context.Context, req ImageRequest) (string, error) {
	var lastErr error
	for _, p := range s.providers {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		err := p.Provide(ctx, req)
		if err == nil {
			return p.Name(), nil
		}
		log.Printf("[visuals] scene %d: %s failed, falling through: %v", req.Index+1, p.Name(), err)
		lastErr = err
	}
	if lastErr == nil {
		return "", ErrNoImage
	}
	return "", fmt.Errorf("%w: %v", ErrNoImage, lastErr)
}

// OpenAIImageProvider generates an image with the images API.
type OpenAIImageProvider struct {
	endpoint string
	model    string
	key      KeyFunc
	client   *http.Client
}

func NewOpenAIImageProvider(endpoint, model string, key KeyFunc, client *http.Client) *OpenAIImageProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAIImageProvider{endpoint: endpoint, model: model, key: key, client: client}
}

func (p *OpenAIImageProvider) Name() string { return "ai-image" }

type imageGenRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
	Style   string `json:"style"`
}

type imageGenResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

func imageStyle(artStyle string) string {
	if artStyle == "realism" {
		return "natural"
	}
	return "vivid"
}

func (p *OpenAIImageProvider) Provide(ctx context.Context, req ImageRequest) error {
	apiKey := p.key()
	if apiKey == "" {
		return fmt.Errorf("image service: %w", ErrMissingKey)
	}

	body, err := json.Marshal(imageGenRequest{
		Model:   p.model,
		Prompt:  req.Scene.VisualPrompt + ", vertical format, 9:16 aspect ratio, no text or watermarks, safe for work, appropriate for all audiences",
		N:       1,
		Size:    "1024x1792",
		Quality: "hd",
		Style:   imageStyle(req.ArtStyle),
	})
	if err != nil {
		return fmt.Errorf("marshal image request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create image request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read image response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{Service: "DALL-E", Status: resp.StatusCode, Body: string(raw)}
	}

	var out imageGenResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode image response: %w", err)
	}
	if len(out.Data) == 0 || out.Data[0].URL == "" {
		return errors.New("image response has no url")
	}
	return downloadTo(ctx, p.client, out.Data[0].URL, req.OutputPath)
}

// PixabayProvider searches stock photos.
type PixabayProvider struct {
	endpoint string
	key      KeyFunc
	client   *http.Client
	pick     func(n int) int
}

func NewPixabayProvider(endpoint string, key KeyFunc, client *http.Client) *PixabayProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &PixabayProvider{endpoint: endpoint, key: key, client: client, pick: rand.IntN}
}

func (p *PixabayProvider) Name() string { return "stock-search" }

type pixabayResponse struct {
	Hits []struct {
		LargeImageURL string `json:"largeImageURL"`
	} `json:"hits"`
}

var jargonPattern = regexp.MustCompile(`(?i)photorealistic|high quality|detailed|cinematic|professional|no text|no watermarks`)

const maxKeywordLength = 100

// searchKeywords strips style jargon from the prompt and prefixes the niche.
func searchKeywords(visualPrompt, niche string) string {
	cleaned := strings.ToLower(visualPrompt)
	cleaned = jargonPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, "...", ""))
	keywords := strings.TrimSpace(niche + " " + cleaned)
	if r := []rune(keywords); len(r) > maxKeywordLength {
		keywords = string(r[:maxKeywordLength])
	}
	return keywords
}

func (p *PixabayProvider) Provide(ctx context.Context, req ImageRequest) error {
	apiKey := p.key()
	if apiKey == "" {
		return fmt.Errorf("image search: %w", ErrMissingKey)
	}

	q := url.Values{}
	q.Set("key", apiKey)
	q.Set("q", searchKeywords(req.Scene.VisualPrompt, req.Niche))
	q.Set("image_type", "photo")
	q.Set("orientation", "vertical")
	q.Set("per_page", "10")
	q.Set("safesearch", "true")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create search request: %w", err)
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return &APIError{Service: "Pixabay", Status: resp.StatusCode, Body: string(raw)}
	}
	var out pixabayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	if len(out.Hits) == 0 {
		return errors.New("no search results")
	}

	top := len(out.Hits)
	if top > 5 {
		top = 5
	}
	return downloadTo(ctx, p.client, out.Hits[p.pick(top)].LargeImageURL, req.OutputPath)
}

var placeholderPalette = []string{
	"#1a1a2e",
	"#16213e",
	"#0f3460",
	"#2c3e50",
	"#34495e",
	"#2c2c54",
}

// PlaceholderColor returns the palette color for a scene index.
func PlaceholderColor(index int) string {
	if index < 0 {
		index = -index
	}
	return placeholderPalette[index%len(placeholderPalette)]
}

// PlaceholderProvider renders a solid frame with the encoder. It is the last tier.
type PlaceholderProvider struct {
	encoder *Encoder
}

func NewPlaceholderProvider(encoder *Encoder) *PlaceholderProvider {
	return &PlaceholderProvider{encoder: encoder}
}

func (p *PlaceholderProvider) Name() string { return "placeholder" }

func (p *PlaceholderProvider) Provide(ctx context.Context, req ImageRequest) error {
	return p.encoder.SolidFrame(ctx, PlaceholderColor(req.Index), req.OutputPath)
}

// downloadTo streams url into path and removes the file on any failure.
func downloadTo(ctx context.Context, client *http.Client, rawURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status: %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr == nil && closeErr == nil && n == 0 {
		copyErr = errors.New("downloaded image is empty")
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		return errors.Join(copyErr, closeErr)
	}
	return nil
}
