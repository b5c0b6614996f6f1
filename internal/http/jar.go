package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/net/publicsuffix"

	ioutils "github.com/handiism/bandcamp-catalog/internal/io"
)

type storedCookie struct {
	URL      string    `json:"url"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

// FileJar is an http.CookieJar that mirrors every cookie it receives to a
// JSON file and reloads them on creation.
type FileJar struct {
	jar    *cookiejar.Jar
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	cookies map[string]storedCookie

	// saveMu orders file writes so a later snapshot is never overwritten
	// by an earlier one.
	saveMu sync.Mutex
}

// JarOption configures a FileJar.
type JarOption func(*FileJar)

// WithJarLogger sets the logger used for persistence failures.
func WithJarLogger(logger *slog.Logger) JarOption {
	return func(j *FileJar) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// NewFileJar loads the jar stored at path. A missing file starts empty.
func NewFileJar(path string, opts ...JarOption) (*FileJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	j := &FileJar{
		jar:     jar,
		path:    path,
		logger:  slog.Default(),
		cookies: make(map[string]storedCookie),
	}
	for _, opt := range opts {
		opt(j)
	}
	if err := j.load(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *FileJar) load() error {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}

	now := time.Now()
	for _, sc := range stored {
		if !sc.Expires.IsZero() && sc.Expires.Before(now) {
			continue
		}
		u, err := url.Parse(sc.URL)
		if err != nil {
			continue
		}
		j.jar.SetCookies(u, []*http.Cookie{sc.cookie()})
		j.cookies[cookieKey(u, sc.Name)] = sc
	}
	return nil
}

func (sc storedCookie) cookie() *http.Cookie {
	return &http.Cookie{
		Name:     sc.Name,
		Value:    sc.Value,
		Path:     sc.Path,
		Domain:   sc.Domain,
		Expires:  sc.Expires,
		Secure:   sc.Secure,
		HttpOnly: sc.HttpOnly,
	}
}

func cookieKey(u *url.URL, name string) string {
	return u.Hostname() + "|" + name
}

// SetCookies implements http.CookieJar and persists the jar.
func (j *FileJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)

	j.mu.Lock()
	origin := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}).String()
	for _, c := range cookies {
		key := cookieKey(u, c.Name)
		if c.MaxAge < 0 || c.Value == "" {
			delete(j.cookies, key)
			continue
		}
		expires := c.Expires
		if c.MaxAge > 0 {
			expires = time.Now().Add(time.Duration(c.MaxAge) * time.Second)
		}
		j.cookies[key] = storedCookie{
			URL:      origin,
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
	}
	j.mu.Unlock()

	if err := j.Save(); err != nil {
		j.logger.Warn("Failed to save cookie jar", "path", j.path, "error", err)
	}
}

// Cookies implements http.CookieJar.
func (j *FileJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// Save writes the jar to its file.
func (j *FileJar) Save() error {
	j.saveMu.Lock()
	defer j.saveMu.Unlock()

	j.mu.Lock()
	stored := make([]storedCookie, 0, len(j.cookies))
	for _, sc := range j.cookies {
		stored = append(stored, sc)
	}
	j.mu.Unlock()

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	return ioutils.WriteFileAtomicPerm(j.path, data, 0o600)
}
