package authclient_test

import (
	"net/http/cookiejar"
	"net/url"
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func durableConfig() authclient.Config {
	return authclient.Config{
		BaseURL: "http://api.example.com",
		Token: authclient.TokenConfig{
			StorageType: authclient.StorageDurable,
		},
	}
}

func TestDurableTokenStoreRoundTrip(t *testing.T) {
	session := authclient.NewSessionState("")
	store := authclient.NewTokenStore(durableConfig(), session)

	assert.Equal(t, "", store.Get())

	store.Set("abc")
	assert.Equal(t, "abc", store.Get())

	store.Set("")
	assert.Equal(t, "", store.Get())
}

func TestDurableTokenStoreReadsBackendOnFirstGet(t *testing.T) {
	storage := authclient.NewMemoryTokenStorage()
	require.NoError(t, storage.Set(authclient.DefaultTokenKey, "persisted"))

	session := authclient.NewSessionState("")
	store := authclient.NewTokenStore(durableConfig(), session,
		authclient.WithTokenStorage(storage))

	assert.Equal(t, "persisted", store.Get())
}

func TestTokenStoresShareSessionShadow(t *testing.T) {
	storage := authclient.NewMemoryTokenStorage()
	session := authclient.NewSessionState("")

	first := authclient.NewTokenStore(durableConfig(), session,
		authclient.WithTokenStorage(storage))
	second := authclient.NewTokenStore(durableConfig(), session,
		authclient.WithTokenStorage(storage))

	first.Set("shared")

	// the second store observes the write synchronously via the shadow
	assert.Equal(t, "shared", second.Get())
}

func TestDurableTokenStoreServerSideIsNoop(t *testing.T) {
	storage := authclient.NewMemoryTokenStorage()
	require.NoError(t, storage.Set(authclient.DefaultTokenKey, "persisted"))

	session := authclient.NewSessionState("")
	store := authclient.NewTokenStore(durableConfig(), session,
		authclient.WithTokenStorage(storage),
		authclient.WithServerExecution())

	assert.Equal(t, "", store.Get())

	store.Set("abc")
	assert.Equal(t, "", store.Get())

	// the backend was never touched
	value, err := storage.Get(authclient.DefaultTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "persisted", value)
}

func TestFileTokenStorageRoundTrip(t *testing.T) {
	path := t.TempDir() + "/tokens.json"
	storage := authclient.NewFileTokenStorage(path)

	value, err := storage.Get("auth.token")
	require.NoError(t, err)
	assert.Equal(t, "", value)

	require.NoError(t, storage.Set("auth.token", "abc"))

	// a fresh instance reads the persisted value back
	value, err = authclient.NewFileTokenStorage(path).Get("auth.token")
	require.NoError(t, err)
	assert.Equal(t, "abc", value)

	require.NoError(t, storage.Delete("auth.token"))
	value, err = storage.Get("auth.token")
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestDurableTokenStoreWithFileBackend(t *testing.T) {
	path := t.TempDir() + "/tokens.json"

	store := authclient.NewTokenStore(durableConfig(), authclient.NewSessionState(""),
		authclient.WithTokenStorage(authclient.NewFileTokenStorage(path)))
	store.Set("persist-me")

	// a second store over the same file observes the write
	fresh := authclient.NewTokenStore(durableConfig(), authclient.NewSessionState(""),
		authclient.WithTokenStorage(authclient.NewFileTokenStorage(path)))
	assert.Equal(t, "persist-me", fresh.Get())
}

func TestCookieTokenStoreWritesJar(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	base, err := url.Parse("http://api.example.com")
	require.NoError(t, err)

	session := authclient.NewSessionState("")
	store := authclient.NewTokenStore(authclient.Config{BaseURL: base.String()}, session,
		authclient.WithTokenCookieJar(jar, base))

	store.Set("abc")

	found := ""
	for _, cookie := range jar.Cookies(base) {
		if cookie.Name == authclient.DefaultTokenKey {
			found = cookie.Value
		}
	}
	assert.Equal(t, "abc", found)
	assert.Equal(t, "abc", store.Get())
}

func TestCookieTokenStoreReadsExistingCookie(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	base, err := url.Parse("http://api.example.com")
	require.NoError(t, err)

	seed := authclient.NewTokenStore(authclient.Config{BaseURL: base.String()},
		authclient.NewSessionState(""),
		authclient.WithTokenCookieJar(jar, base))
	seed.Set("from-cookie")

	// fresh session, the value must come from the jar
	store := authclient.NewTokenStore(authclient.Config{BaseURL: base.String()},
		authclient.NewSessionState(""),
		authclient.WithTokenCookieJar(jar, base))

	assert.Equal(t, "from-cookie", store.Get())
}

func TestCookieTokenStoreClearOnEmptySet(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	base, err := url.Parse("http://api.example.com")
	require.NoError(t, err)

	session := authclient.NewSessionState("")
	store := authclient.NewTokenStore(authclient.Config{BaseURL: base.String()}, session,
		authclient.WithTokenCookieJar(jar, base))

	store.Set("abc")
	store.Set("")

	assert.Equal(t, "", store.Get())
	for _, cookie := range jar.Cookies(base) {
		assert.NotEqual(t, authclient.DefaultTokenKey, cookie.Name)
	}
}
