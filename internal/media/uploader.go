package media

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
	"strings"
	"time"

	"golang.org/x/time/rate"

	"convocoach/internal/logging"
)

const (
	defaultBaseURL       = "https://api.cloudinary.com"
	defaultFolder        = "media/sessions"
	defaultUploadTimeout = 2 * time.Minute
	progressInterval     = 100 * time.Millisecond
)

// AvatarFolder holds profile pictures.
const AvatarFolder = "media/users"

var (
	ErrNotConfigured = errors.New("media upload is not configured: set cloud name and upload preset")
	ErrNotImage      = errors.New("avatar must be an image")
)

// ProgressFunc receives a percentage in [0, 100].
type ProgressFunc func(percent float64)

type Config struct {
	BaseURL      string
	CloudName    string
	UploadPreset string
	Folder       string
	Timeout      time.Duration
	Limits       Limits
	Compress     bool
}

type Uploader struct {
	cfg    Config
	http   *http.Client
	logger logging.Logger
}

type UploaderOption func(*Uploader)

func WithHTTPClient(client *http.Client) UploaderOption {
	return func(u *Uploader) {
		if client != nil {
			u.http = client
		}
	}
}

func WithLogger(logger logging.Logger) UploaderOption {
	return func(u *Uploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}

func NewUploader(cfg Config, opts ...UploaderOption) (*Uploader, error) {
	cfg.CloudName = strings.TrimSpace(cfg.CloudName)
	cfg.UploadPreset = strings.TrimSpace(cfg.UploadPreset)
	if cfg.CloudName == "" || cfg.UploadPreset == "" {
		return nil, ErrNotConfigured
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.Folder) == "" {
		cfg.Folder = defaultFolder
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultUploadTimeout
	}
	cfg.Limits = cfg.Limits.withDefaults()
	u := &Uploader{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u, nil
}

func (u *Uploader) Limits() Limits {
	return u.cfg.Limits
}

// InFolder returns an uploader that stores files under folder instead.
func (u *Uploader) InFolder(folder string) *Uploader {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return u
	}
	clone := *u
	clone.cfg.Folder = folder
	return &clone
}

// UploadAvatar stores a profile picture under AvatarFolder.
func (u *Uploader) UploadAvatar(ctx context.Context, f File) (string, error) {
	if len(f.Data) > 0 && !f.IsImage() {
		return "", ErrNotImage
	}
	return u.InFolder(AvatarFolder).Upload(ctx, f, nil)
}

// UploadAll validates the batch, then uploads files one at a time. Overall
// progress is ((completed + current/100) / total) * 100.
func (u *Uploader) UploadAll(ctx context.Context, files []File, progress ProgressFunc) ([]string, error) {
	if err := Validate(files, u.cfg.Limits); err != nil {
		return nil, err
	}
	total := float64(len(files))
	urls := make([]string, 0, len(files))
	for i, f := range files {
		completed := float64(i)
		url, err := u.Upload(ctx, f, func(p float64) {
			if progress != nil {
				progress(((completed + p/100) / total) * 100)
			}
		})
		if err != nil {
			return urls, fmt.Errorf("upload %s: %w", f.Name, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// Upload sends one file and returns its secure URL.
func (u *Uploader) Upload(ctx context.Context, f File, progress ProgressFunc) (string, error) {
	if err := Validate([]File{f}, u.cfg.Limits); err != nil {
		return "", err
	}
	if u.cfg.Compress && f.IsImage() {
		compressed, err := Compress(f)
		if err != nil {
			u.logger.Warn("media_compress_failed", logging.F("file", f.Name), logging.F("error", err))
		} else {
			f = compressed
		}
	}

	body, contentType, err := u.multipartBody(f)
	if err != nil {
		return "", err
	}
	reader := &progressReader{
		r:        bytes.NewReader(body),
		total:    int64(len(body)),
		progress: progress,
		limiter:  &rate.Sometimes{Interval: progressInterval},
	}
	endpoint := fmt.Sprintf("%s/v1_1/%s/auto/upload", u.cfg.BaseURL, u.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return "", err
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", contentType)

	started := time.Now()
	resp, err := u.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload struct {
		SecureURL string `json:"secure_url"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&payload)
	if resp.StatusCode != http.StatusOK {
		if payload.Error.Message != "" {
			return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, payload.Error.Message)
		}
		return "", fmt.Errorf("upload failed with status %d", resp.StatusCode)
	}
	if decodeErr != nil || payload.SecureURL == "" {
		return "", errors.New("failed to parse upload response")
	}
	if progress != nil {
		progress(100)
	}
	u.logger.Info("media_uploaded",
		logging.F("file", f.Name),
		logging.F("bytes", f.Size()),
		logging.F("duration_ms", time.Since(started).Milliseconds()),
	)
	return payload.SecureURL, nil
}

func (u *Uploader) multipartBody(f File) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Name))
	header.Set("Content-Type", f.ContentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("upload_preset", u.cfg.UploadPreset); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("folder", u.cfg.Folder); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// progressReader reports bytes handed to the transport, at most once per
// interval.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	progress ProgressFunc
	limiter  *rate.Sometimes
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	p.read += int64(n)
	if p.progress != nil && p.total > 0 && n > 0 {
		pct := float64(p.read) / float64(p.total) * 100
		p.limiter.Do(func() { p.progress(pct) })
	}
	return n, err
}
