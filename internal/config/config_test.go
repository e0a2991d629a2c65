package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/teamscrape/internal/locator"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := NewFromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, "https://teams.microsoft.com", cfg.URL)
	assert.Equal(t, "127.0.0.1:9222", cfg.DebuggerAddress)
	assert.Equal(t, 20*time.Second, cfg.Login.StepTimeout)
	assert.Equal(t, 5*time.Second, cfg.Login.ImplicitWait)
	assert.False(t, cfg.Login.StaySignedInOptional)
	assert.True(t, cfg.Login.FailureScreenshot)
	assert.Equal(t, 10*time.Second, cfg.Scrape.ContainerTimeout)
	assert.Equal(t, ".", cfg.Scrape.OutputDir)
	assert.Equal(t, locator.Teams(), cfg.LocatorSet())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("TEAMS_EMAIL", "user@example.com")
	t.Setenv("TEAMS_PASSWORD", "hunter2")
	t.Setenv("TEAMS_LOGIN_STEP_TIMEOUT", "45s")
	t.Setenv("TEAMS_LOGIN_STAY_SIGNED_IN_OPTIONAL", "true")
	t.Setenv("TEAMS_SCRAPE_OUTPUT_DIR", "/tmp/out")

	cfg, err := NewFromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, Credentials{Email: "user@example.com", Password: "hunter2"}, cfg.Credentials())
	assert.NoError(t, cfg.RequireCredentials())
	assert.Equal(t, 45*time.Second, cfg.Login.StepTimeout)
	assert.True(t, cfg.Login.StaySignedInOptional)
	assert.Equal(t, "/tmp/out", cfg.Scrape.OutputDir)
}

func TestRequireCredentials(t *testing.T) {
	t.Setenv("TEAMS_EMAIL", "user@example.com")
	t.Setenv("TEAMS_PASSWORD", "")

	cfg, err := NewFromViper(newViper())
	require.NoError(t, err, "credentials are only required when logging in")
	assert.ErrorIs(t, cfg.RequireCredentials(), ErrMissingCredentials)
}

func TestCredentialsNeverFormatted(t *testing.T) {
	c := Credentials{Email: "user@example.com", Password: "s3cret-pass"}
	for _, out := range []string{
		c.String(),
		fmt.Sprint(c),
		fmt.Sprintf("%v %+v %#v %s", c, c, c, c),
		fmt.Sprintf("%v", &c),
	} {
		assert.NotContains(t, out, "s3cret-pass")
		assert.NotContains(t, out, "user@example.com")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("TEAMS_SCRAPE_CONTAINER_TIMEOUT", "0s")
	t.Setenv("TEAMS_LOG_FORMAT", "xml")

	_, err := NewFromViper(newViper())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scrape.container_timeout must be positive")
	assert.Contains(t, err.Error(), `log.format "xml"`)
}

func TestLoadConfigFileWithLocatorOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teamscrape.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
url: https://teams.example.com
login:
  stay_signed_in_optional: true
  stay_signed_in_probe: 2s
locators:
  message_body:
    strategy: css
    selector: div[data-tid="chat-pane-message"]
  message_group:
    strategy: attr-prefix
    selector: data-tid=chat-pane-item
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://teams.example.com", cfg.URL)
	assert.True(t, cfg.Login.StaySignedInOptional)
	assert.Equal(t, 2*time.Second, cfg.Login.StaySignedInProbe)

	set := cfg.LocatorSet()
	assert.Equal(t, locator.CSS(`div[data-tid="chat-pane-message"]`), set[locator.MessageBody])
	assert.Equal(t, locator.AttrPrefix("data-tid", "chat-pane-item"), set[locator.MessageGroup])
	assert.Equal(t, locator.ID("i0116"), set[locator.EmailField])
}

func TestLoadRejectsBrokenLocatorOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teamscrape.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
locators:
  chat_pane:
    strategy: xpath
    selector: //div
`), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "chat_pane")
}

func TestLoadRejectsUnknownLocatorRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teamscrape.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
locators:
  emial_field:
    strategy: id
    selector: i0116
`), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "locators.emial_field is not a known role")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
