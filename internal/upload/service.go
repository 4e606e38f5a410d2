package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"
)

const uploadFolder = "logistics"

var (
	// ErrNotConfigured indicates missing Cloudinary credentials.
	ErrNotConfigured = errors.New("upload: cloudinary credentials are not configured")
	// ErrEmptyFile indicates a zero-length upload.
	ErrEmptyFile = errors.New("upload: file is empty")
	// ErrGateway indicates the remote upload API rejected the request.
	ErrGateway = errors.New("upload: cloudinary request failed")
)

// Config carries the server-side Cloudinary credentials.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
}

func (c Config) valid() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Result describes a stored media asset.
type Result struct {
	URL          string `json:"url"`
	PublicID     string `json:"public_id"`
	ResourceType string `json:"resource_type"`
	Format       string `json:"format"`
	Bytes        int64  `json:"bytes"`
}

// Service signs uploads and forwards them to the Cloudinary API.
type Service struct {
	cfg     Config
	client  *http.Client
	baseURL string
	now     func() time.Time
}

func NewService(cfg Config) *Service {
	return &Service{
		cfg:     cfg,
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: "https://api.cloudinary.com/v1_1",
		now:     time.Now,
	}
}

// Upload forwards one file to Cloudinary under the logistics folder and
// returns the asset metadata. The caller keeps the returned URL.
func (s *Service) Upload(ctx context.Context, filename, contentType string, data []byte) (Result, error) {
	if !s.cfg.valid() {
		return Result{}, ErrNotConfigured
	}
	if len(data) == 0 {
		return Result{}, ErrEmptyFile
	}

	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	signature := Signature(map[string]string{
		"folder":    uploadFolder,
		"timestamp": timestamp,
	}, s.cfg.APISecret)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := map[string]string{
		"api_key":   s.cfg.APIKey,
		"timestamp": timestamp,
		"signature": signature,
		"folder":    uploadFolder,
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return Result{}, fmt.Errorf("upload: build form: %w", err)
		}
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return Result{}, fmt.Errorf("upload: build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return Result{}, fmt.Errorf("upload: build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return Result{}, fmt.Errorf("upload: build form: %w", err)
	}

	url := fmt.Sprintf("%s/%s/auto/upload", s.baseURL, s.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return Result{}, fmt.Errorf("upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("%w: status %d: %s", ErrGateway, resp.StatusCode, detail)
	}

	var payload struct {
		SecureURL    string `json:"secure_url"`
		PublicID     string `json:"public_id"`
		ResourceType string `json:"resource_type"`
		Format       string `json:"format"`
		Bytes        int64  `json:"bytes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrGateway, err)
	}
	return Result{
		URL:          payload.SecureURL,
		PublicID:     payload.PublicID,
		ResourceType: payload.ResourceType,
		Format:       payload.Format,
		Bytes:        payload.Bytes,
	}, nil
}
