// Package dialog resolves the wizard's conversation tree at startup.
package dialog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	domainworld "barnyard/internal/domain/world"
)

const (
	cacheKeyPrefix   = "barnyard:dialog:"
	maxResponseBytes = 1 << 20
	generatorPrompt  = `Write a branching conversation for an eccentric wizard who lives on a farm where pigs hunt chickens by day. ` +
		`Answer with JSON only, shaped as {"start":{"text":string,"options":[{"text":string,"response":{"text":string},"options":[...]}]}}. ` +
		`At most three levels deep, two or three options per level.`
)

var errNoGenerator = errors.New("dialog generator not configured")

type Config struct {
	File     string
	APIURL   string
	APIKey   string
	Model    string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Provider tries, in order: the redis cache, the remote generator, the file
// on disk, and the built-in tree. It never fails.
type Provider struct {
	logger zerolog.Logger
	cache  *redis.Client
	http   *http.Client
	cfg    Config
}

func NewProvider(logger zerolog.Logger, cache *redis.Client, cfg Config) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &Provider{
		logger: logger,
		cache:  cache,
		http:   &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

func (p *Provider) Load(ctx context.Context) *domainworld.DialogTree {
	if tree, err := p.fromCache(ctx); err == nil {
		p.logger.Info().Str("source", "cache").Msg("dialog tree loaded")
		return tree
	} else if !errors.Is(err, redis.Nil) {
		p.logger.Debug().Err(err).Msg("dialog cache miss")
	}

	if tree, raw, err := p.generate(ctx); err == nil {
		p.store(ctx, raw)
		p.logger.Info().Str("source", "generator").Str("model", p.cfg.Model).Msg("dialog tree loaded")
		return tree
	} else if !errors.Is(err, errNoGenerator) {
		p.logger.Warn().Err(err).Msg("dialog generation failed")
	}

	if p.cfg.File != "" {
		tree, err := loadFile(p.cfg.File)
		if err == nil {
			p.logger.Info().Str("source", "file").Str("path", p.cfg.File).Msg("dialog tree loaded")
			return tree
		}
		p.logger.Warn().Err(err).Str("path", p.cfg.File).Msg("dialog file unusable")
	}

	p.logger.Info().Str("source", "builtin").Msg("dialog tree loaded")
	return domainworld.DefaultDialogTree()
}

func (p *Provider) cacheKey() string {
	model := p.cfg.Model
	if model == "" {
		model = "default"
	}
	return cacheKeyPrefix + model
}

func (p *Provider) fromCache(ctx context.Context) (*domainworld.DialogTree, error) {
	if p.cache == nil {
		return nil, redis.Nil
	}
	b, err := p.cache.Get(ctx, p.cacheKey()).Bytes()
	if err != nil {
		return nil, err
	}
	return domainworld.ParseDialogTree(b)
}

func (p *Provider) store(ctx context.Context, raw []byte) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, p.cacheKey(), raw, p.cfg.CacheTTL).Err(); err != nil {
		p.logger.Warn().Err(err).Msg("dialog cache write failed")
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// generate asks a chat-completion endpoint for a tree and returns it together
// with the raw JSON for caching.
func (p *Provider) generate(ctx context.Context) (*domainworld.DialogTree, []byte, error) {
	if p.cfg.APIURL == "" || p.cfg.APIKey == "" {
		return nil, nil, errNoGenerator
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:          p.cfg.Model,
		Messages:       []chatMessage{{Role: "user", Content: generatorPrompt}},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("encode generator request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("build generator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("call generator: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("generator status %d", resp.StatusCode)
	}
	var out chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, nil, fmt.Errorf("decode generator response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, nil, fmt.Errorf("generator returned no choices")
	}
	raw := []byte(out.Choices[0].Message.Content)
	tree, err := domainworld.ParseDialogTree(raw)
	if err != nil {
		return nil, nil, err
	}
	return tree, raw, nil
}

func loadFile(path string) (*domainworld.DialogTree, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dialog file: %w", err)
	}
	return domainworld.ParseDialogTree(b)
}
