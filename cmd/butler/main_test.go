package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/butler"
	"github.com/poiesic/butler/ai/mock"
	"github.com/poiesic/butler/config"
	"github.com/poiesic/butler/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type staticSource []core.Recipe

func (s staticSource) Fetch(context.Context) ([]core.Recipe, error) {
	return s, nil
}

// stubButler makes every command build its Butler on mock services and
// returns the generation backend.
func stubButler(t *testing.T) *mock.MockBackend {
	t.Helper()
	backend := mock.NewMockBackend("primary", "生成結果")
	source := staticSource{
		{Name: "番茄炒蛋", Description: "家常菜"},
		{Name: "紅燒肉", Description: "經典"},
	}
	prev := newButler
	newButler = func(ctx context.Context, cfg *config.Config, opts ...butler.Option) (*butler.Butler, error) {
		provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), backend)
		opts = append(opts, butler.WithProvider(provider), butler.WithRecipeSource(source))
		return butler.New(ctx, cfg, opts...)
	}
	t.Cleanup(func() { newButler = prev })
	return backend
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := `ai:
  provider: openai
cache:
  enabled: false
recipes:
  cache_path: ` + filepath.Join(dir, "recipes.json") + `
  conversion: none
`
	path := filepath.Join(dir, "butler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run(append([]string{"butler", "--env-file", ""}, args...))
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	stubButler(t)
	cfg := writeConfig(t)

	out, err := run(t, "-c", cfg, "classify", "今天天氣如何")
	require.NoError(t, err)
	assert.Contains(t, out, `"intent": "weather"`)
	assert.Contains(t, out, `"location": null`)

	out, err = run(t, "-c", cfg, "classify", "--with-recipes", "紅燒肉")
	require.NoError(t, err)
	assert.Contains(t, out, `"intent": "search_recipe"`)

	_, err = run(t, "-c", cfg, "classify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text is required")
}

func TestRetrieveCommand(t *testing.T) {
	stubButler(t)
	cfg := writeConfig(t)

	out, err := run(t, "-c", cfg, "retrieve", "紅燒肉")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "紅燒肉"`)

	out, err = run(t, "-c", cfg, "retrieve", "--refresh", "火星料理")
	require.NoError(t, err)
	assert.Contains(t, out, `no recipe matched "火星料理"`)
}

func TestGenerateCommand(t *testing.T) {
	backend := stubButler(t)
	cfg := writeConfig(t)

	image := filepath.Join(t.TempDir(), "dish.png")
	require.NoError(t, os.WriteFile(image, []byte{0x89, 'P', 'N', 'G'}, 0644))

	out, err := run(t, "-c", cfg, "generate", "--image", image, "這是什麼菜")
	require.NoError(t, err)
	assert.Equal(t, "生成結果\n", out)

	parts := backend.LastParts()
	require.Len(t, parts, 2)
	assert.Equal(t, "這是什麼菜", parts[0].Text)
	assert.Equal(t, "image/png", parts[1].MIMEType)

	_, err = run(t, "-c", cfg, "generate", "--image", filepath.Join(t.TempDir(), "missing.png"), "hi")
	assert.Error(t, err)
}

func TestAskCommand(t *testing.T) {
	stubButler(t)
	cfg := writeConfig(t)

	out, err := run(t, "-c", cfg, "ask", "你好")
	require.NoError(t, err)
	assert.Contains(t, out, "生活管家")

	out, err = run(t, "-c", cfg, "ask", "番茄炒蛋")
	require.NoError(t, err)
	assert.Equal(t, "生成結果\n", out)
}

func TestWarmCacheCommand(t *testing.T) {
	stubButler(t)
	cfg := writeConfig(t)

	out, err := run(t, "-c", cfg, "warm-cache", "--batch-size", "8", "--retry-delay", "1ms")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "embedded "), out)
}

func TestConfigErrors(t *testing.T) {
	stubButler(t)

	_, err := run(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "classify", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("recipes:\n  conversion: t2s\nai:\n  provider: openai\n"), 0644))
	_, err = run(t, "-c", bad, "classify", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipes.conversion")
}

func TestReadImage(t *testing.T) {
	dir := t.TempDir()
	noExt := filepath.Join(dir, "photo")
	require.NoError(t, os.WriteFile(noExt, []byte("\xff\xd8\xff\xe0 jpeg body"), 0644))

	part, err := readImage(noExt)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", part.MIMEType)
	assert.True(t, part.IsBinary())
}

func TestSetupLogger(t *testing.T) {
	newTestApp := func(action cli.ActionFunc) *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "log-level",
					Aliases: []string{"l"},
					Value:   "info",
				},
			},
			Before: setupLogger,
			Action: action,
		}
	}
	noop := func(*cli.Context) error { return nil }

	for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "Info"} {
		t.Run("valid "+level, func(t *testing.T) {
			require.NoError(t, newTestApp(noop).Run([]string{"test", "--log-level", level}))
		})
	}

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newTestApp(noop).Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		err := newTestApp(func(c *cli.Context) error {
			assert.Equal(t, "debug", c.String("log-level"))
			return nil
		}).Run([]string{"test", "-l", "debug"})
		require.NoError(t, err)
	})
}

func TestAppCommands(t *testing.T) {
	app := newApp()
	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"classify", "retrieve", "generate", "ask", "warm-cache", "serve"}, names)
}
