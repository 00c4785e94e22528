package authclient

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"
)

var _ TokenStore = &CookieTokenStore{}
var _ TokenStore = &DurableTokenStore{}
var _ TokenStorage = &MemoryTokenStorage{}
var _ TokenStorage = &FileTokenStorage{}

type tokenStoreOptions struct {
	logger     Logger
	storage    TokenStorage
	jar        http.CookieJar
	base       *url.URL
	serverSide bool
}

type TokenStoreOption func(*tokenStoreOptions)

// WithTokenStoreLogger overrides the store logger.
func WithTokenStoreLogger(logger Logger) TokenStoreOption {
	return func(o *tokenStoreOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTokenStorage supplies the backend for the durable store variant.
func WithTokenStorage(storage TokenStorage) TokenStoreOption {
	return func(o *tokenStoreOptions) {
		if storage != nil {
			o.storage = storage
		}
	}
}

// WithTokenCookieJar points the cookie store variant at the jar and origin
// the HTTP client uses, so the token travels with every request.
func WithTokenCookieJar(jar http.CookieJar, base *url.URL) TokenStoreOption {
	return func(o *tokenStoreOptions) {
		o.jar = jar
		o.base = base
	}
}

// WithServerExecution marks the store as running inside a server-rendered
// request, where durable client storage is unavailable.
func WithServerExecution() TokenStoreOption {
	return func(o *tokenStoreOptions) {
		o.serverSide = true
	}
}

// NewTokenStore selects the backing store once, from the configured storage
// type. Both variants share the session's in-memory shadow so Get is
// synchronously consistent across store instances.
func NewTokenStore(cfg Config, session *SessionState, opts ...TokenStoreOption) TokenStore {
	cfg = configDefault(cfg)

	options := &tokenStoreOptions{
		logger:  defLogger{},
		storage: NewMemoryTokenStorage(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if cfg.Token.StorageType == StorageCookie {
		store := &CookieTokenStore{
			key:     cfg.Token.StorageKey,
			session: session,
			jar:     options.jar,
			base:    options.base,
			logger:  options.logger,
		}

		if store.base == nil {
			if base, err := url.Parse(cfg.BaseURL); err == nil {
				store.base = base
			}
		}

		return store
	}

	return &DurableTokenStore{
		key:        cfg.Token.StorageKey,
		session:    session,
		storage:    options.storage,
		serverSide: options.serverSide,
		logger:     options.logger,
	}
}

// CookieTokenStore keeps the bearer token in a cookie scoped to the API
// origin, readable across the application's pages.
type CookieTokenStore struct {
	key     string
	session *SessionState
	jar     http.CookieJar
	base    *url.URL
	logger  Logger
}

func (s *CookieTokenStore) Get() string {
	if token, loaded := s.session.Token(); loaded {
		return token
	}

	token := s.readCookie()
	s.session.SetToken(token)
	return token
}

func (s *CookieTokenStore) Set(token string) {
	s.session.SetToken(token)

	if s.jar == nil || s.base == nil {
		s.logger.Debug("token cookie store has no jar, keeping shadow only")
		return
	}

	cookie := &http.Cookie{
		Name:     s.key,
		Value:    token,
		Path:     "/",
		Secure:   s.base.Scheme == "https",
		SameSite: http.SameSiteLaxMode,
	}

	if token == "" {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	}

	s.jar.SetCookies(s.base, []*http.Cookie{cookie})
}

func (s *CookieTokenStore) readCookie() string {
	if s.jar == nil || s.base == nil {
		return ""
	}

	for _, cookie := range s.jar.Cookies(s.base) {
		if cookie.Name == s.key {
			return cookie.Value
		}
	}

	return ""
}

// DurableTokenStore keeps the bearer token in a TokenStorage backend. In a
// server-side execution context Get and Set are guarded no-ops: the token,
// like browser storage, only exists on the client.
type DurableTokenStore struct {
	key        string
	session    *SessionState
	storage    TokenStorage
	serverSide bool
	logger     Logger
}

func (s *DurableTokenStore) Get() string {
	if s.serverSide {
		return ""
	}

	if token, loaded := s.session.Token(); loaded {
		return token
	}

	token, err := s.storage.Get(s.key)
	if err != nil {
		s.logger.Debug("token storage read failed: %v", err)
		token = ""
	}

	s.session.SetToken(token)
	return token
}

func (s *DurableTokenStore) Set(token string) {
	if s.serverSide {
		return
	}

	s.session.SetToken(token)

	var err error
	if token == "" {
		err = s.storage.Delete(s.key)
	} else {
		err = s.storage.Set(s.key, token)
	}

	if err != nil {
		s.logger.Warn("token storage write failed: %v", err)
	}
}

// FileTokenStorage persists tokens as a JSON map on disk, for CLI and
// daemon consumers that outlive a single process. Values are written with
// 0600 permissions.
type FileTokenStorage struct {
	mu   sync.Mutex
	path string
}

func NewFileTokenStorage(path string) *FileTokenStorage {
	return &FileTokenStorage{path: path}
}

func (f *FileTokenStorage) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return "", err
	}

	return values[key], nil
}

func (f *FileTokenStorage) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}

	values[key] = value
	return f.write(values)
}

func (f *FileTokenStorage) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}

	delete(values, key)
	return f.write(values)
}

func (f *FileTokenStorage) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}

	return values, nil
}

func (f *FileTokenStorage) write(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}

	return os.WriteFile(f.path, data, 0o600)
}

// MemoryTokenStorage is the default TokenStorage backend.
type MemoryTokenStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryTokenStorage() *MemoryTokenStorage {
	return &MemoryTokenStorage{values: map[string]string{}}
}

func (m *MemoryTokenStorage) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

func (m *MemoryTokenStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryTokenStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
