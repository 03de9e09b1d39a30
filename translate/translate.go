// Package translate implements AI-powered translation of ARB entries using
// HTTP API-based text-generation providers: OpenAI, Google AI (Gemini),
// Groq, Ollama, and custom OpenAI-compatible endpoints.
//
// Each target language is translated with one request per chunk of keys
// (all keys at once by default). The provider receives the source entries
// serialized as a JSON object and must return a JSON object mapping every
// requested key to its translated value. The request and the parse of its
// response are retried together with exponential backoff; a response that
// omits a requested key counts as a failed attempt.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/l10n-tools/arbkit/arbfile"
	"github.com/l10n-tools/arbkit/langmeta"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderOpenAI       = "openai"
	ProviderGoogle       = "google"
	ProviderGroq         = "groq"
	ProviderOllama       = "ollama"
	ProviderCustomOpenAI = "custom-openai"
)

// defaultTemperature is the fixed sampling temperature for all requests.
// Localization text wants determinism, not creativity.
const defaultTemperature = 0.3

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Provider holds the configuration for an AI translation service.
type Provider struct {
	// ID is the provider identifier (openai, google, groq, ...).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key (empty for local services).
	APIKey string
	// Model is the model identifier.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the request timeout.
	Timeout time.Duration
	// RequiresKey marks providers that cannot be called without an API key.
	RequiresKey bool
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		ProviderOpenAI: {
			ID:          ProviderOpenAI,
			Name:        "OpenAI",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Timeout:     120 * time.Second,
			RequiresKey: true,
		},
		ProviderGoogle: {
			ID:          ProviderGoogle,
			Name:        "Google AI (Gemini)",
			BaseURL:     "https://generativelanguage.googleapis.com",
			Model:       "gemini-2.5-flash",
			Timeout:     120 * time.Second,
			RequiresKey: true,
		},
		ProviderGroq: {
			ID:          ProviderGroq,
			Name:        "Groq",
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.3-70b-versatile",
			Timeout:     60 * time.Second,
			RequiresKey: true,
		},
		ProviderOllama: {
			ID:      ProviderOllama,
			Name:    "Ollama",
			BaseURL: "http://localhost:11434/v1",
			Model:   "llama3.2",
			Timeout: 120 * time.Second,
		},
		ProviderCustomOpenAI: {
			ID:      ProviderCustomOpenAI,
			Name:    "Custom OpenAI",
			Timeout: 60 * time.Second,
		},
	}
}

// ProviderIDs returns the known provider IDs, sorted.
func ProviderIDs() []string {
	provs := DefaultProviders()
	ids := make([]string, 0, len(provs))
	for id := range provs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveProvider builds a Provider from an ID plus overrides, validating
// that required configuration is present. A missing API key for a provider
// that requires one is a configuration error, reported before any network
// call is made.
func ResolveProvider(id, baseURL, apiKey, model, proxy string, timeout time.Duration) (Provider, error) {
	prov, ok := DefaultProviders()[id]
	if !ok {
		return Provider{}, fmt.Errorf("unknown provider %q (valid: %s)", id, strings.Join(ProviderIDs(), ", "))
	}

	if baseURL != "" {
		prov.BaseURL = baseURL
	}
	if model != "" {
		prov.Model = model
	}
	prov.APIKey = apiKey
	prov.Proxy = proxy
	if timeout > 0 {
		prov.Timeout = timeout
	}

	if prov.ID == ProviderCustomOpenAI && prov.BaseURL == "" {
		return Provider{}, fmt.Errorf("provider %s requires --base-url", prov.ID)
	}
	if prov.Model == "" {
		return Provider{}, fmt.Errorf("provider %s requires --model", prov.ID)
	}
	if prov.RequiresKey && prov.APIKey == "" {
		return Provider{}, fmt.Errorf("provider %s requires an API key (use --api-key, the ARBKIT_API_KEY environment variable, or 'arbkit auth login')", prov.ID)
	}

	return prov, nil
}

// ---------------------------------------------------------------------------
// System prompt
// ---------------------------------------------------------------------------

// DefaultSystemPrompt instructs the model to translate ARB UI strings and
// answer with a keyed JSON object.
const DefaultSystemPrompt = `You are a professional translator specializing in software and product localization. You are translating UI strings for a Flutter application stored in ARB resource files.

CONTEXT AWARENESS:
- The audience is application users
- Tone: professional yet approachable, clear and concise
- Use IT/software terminology that is standard in {{targetLang}} tech community
- Adapt to the application's specific domain based on the source text context

IMPORTANT TRANSLATION PRINCIPLES:
- Translate for NATURALNESS and FLUENCY in the target language, not word-for-word
- Use idiomatic expressions natural to {{targetLang}}, not literal translations
- Adapt sentence structure to match {{targetLang}} conventions
- Consider cultural context and target audience expectations
- Maintain the original tone and intent, but express it naturally in {{targetLang}}

TECHNICAL REQUIREMENTS:
- You receive a JSON object mapping keys to source strings.
- Return ONLY a JSON object with EXACTLY the same keys, each mapped to its translated value.
- Never translate, rename, reorder, add, or drop keys.
- Preserve all ICU placeholders exactly as-is ({name}, {count}, {count, plural, ...}, etc.).
- Preserve leading/trailing whitespace, newlines, and punctuation patterns.
- Keep brand names and proper nouns unchanged.
- Return ONLY the JSON object, no explanations or markdown code blocks.`

// ---------------------------------------------------------------------------
// Translation options
// ---------------------------------------------------------------------------

// Options controls the translation behavior.
type Options struct {
	// Provider is the AI provider configuration.
	Provider Provider
	// Language is the target language code (e.g., "ru", "de").
	Language string
	// LanguageName is the human-readable name (e.g., "Русский").
	LanguageName string
	// SourceLanguage is the base language code the values are written in.
	SourceLanguage string
	// ChunkSize is how many keys to translate per API call (0 = all at once).
	ChunkSize int
	// MaxRetries is the attempt budget per chunk, covering network errors,
	// non-2xx responses, and unparsable content. Default: 3.
	MaxRetries int
	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	// Default: 1s.
	RetryBaseDelay time.Duration
	// RequestDelay is the delay between consecutive chunks.
	RequestDelay time.Duration
	// Timeout is the per-request timeout (overrides provider timeout if set).
	Timeout time.Duration
	// SystemPrompt overrides the default system prompt.
	SystemPrompt string
	// OnProgress is called after each chunk is translated.
	OnProgress func(lang string, done, total int)
	// OnLog emits log messages during translation.
	OnLog func(format string, args ...any)
	// OnError emits error messages during translation.
	OnError func(format string, args ...any)
	// Verbose enables detailed logging.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) effectiveTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	if o.Provider.Timeout > 0 {
		return o.Provider.Timeout
	}
	return 120 * time.Second
}

func (o *Options) effectiveMaxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return 3
}

func (o *Options) effectiveRetryBaseDelay() time.Duration {
	if o.RetryBaseDelay > 0 {
		return o.RetryBaseDelay
	}
	return time.Second
}

// resolvedPrompt returns the system prompt with {{targetLang}} replaced.
func (o *Options) resolvedPrompt() string {
	prompt := o.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	langName := o.LanguageName
	if langName == "" {
		langName = langmeta.Name(o.Language)
	}
	return strings.ReplaceAll(prompt, "{{targetLang}}", langName)
}

// ---------------------------------------------------------------------------
// TranslationError
// ---------------------------------------------------------------------------

// TranslationError reports that a target language could not be translated
// after the retry budget was exhausted.
type TranslationError struct {
	// Lang is the target language code.
	Lang string
	// Cause is the last underlying failure.
	Cause error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translating %s: %v", e.Lang, e.Cause)
}

func (e *TranslationError) Unwrap() error { return e.Cause }

// ---------------------------------------------------------------------------
// HTTP client with proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	// Support both --proxy flag and HTTP_PROXY/HTTPS_PROXY env vars
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// ---------------------------------------------------------------------------
// API format types and request builders
// ---------------------------------------------------------------------------

type apiFormat int

const (
	formatOpenAIChat   apiFormat = iota // OpenAI chat/completions
	formatGeminiNative                  // Google Gemini generateContent
)

func formatFor(providerID string) apiFormat {
	if providerID == ProviderGoogle {
		return formatGeminiNative
	}
	return formatOpenAIChat
}

func buildOpenAIChatRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
		Stream:      false,
	}
	return json.Marshal(req)
}

func buildGeminiRequest(systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	req := struct {
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		GenerationConfig: genConfig{Temperature: temperature},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	return json.Marshal(req)
}

// buildHTTPRequest constructs the endpoint, headers, and body for a provider.
func buildHTTPRequest(prov Provider, systemPrompt, userPrompt string) (string, map[string]string, []byte, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	var endpoint string
	var body []byte
	var err error

	switch formatFor(prov.ID) {
	case formatGeminiNative:
		// Google AI: POST /v1beta/models/{model}:generateContent
		endpoint = fmt.Sprintf("%s/v1beta/models/%s:generateContent",
			strings.TrimRight(prov.BaseURL, "/"), prov.Model)
		if prov.APIKey != "" {
			headers["x-goog-api-key"] = prov.APIKey
		}
		body, err = buildGeminiRequest(systemPrompt, userPrompt, defaultTemperature)

	default: // formatOpenAIChat
		baseURL := strings.TrimRight(prov.BaseURL, "/")
		if !strings.HasSuffix(baseURL, "/chat/completions") {
			endpoint = baseURL + "/chat/completions"
		} else {
			endpoint = baseURL
		}
		if prov.APIKey != "" {
			headers["Authorization"] = "Bearer " + prov.APIKey
		}
		body, err = buildOpenAIChatRequest(prov.Model, systemPrompt, userPrompt, defaultTemperature)
	}

	if err != nil {
		return "", nil, nil, err
	}
	return endpoint, headers, body, nil
}

// ---------------------------------------------------------------------------
// Response parsers (multi-format)
// ---------------------------------------------------------------------------

// extractResponseText tries all known response formats and returns the text.
func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	// Check for API error
	if errObj, ok := raw["error"]; ok {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}

	// 1. OpenAI chat format: choices[0].message.content
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	// 2. Gemini format: candidates[0].content.parts[0].text
	if candidates, ok := raw["candidates"].([]any); ok && len(candidates) > 0 {
		if candidate, ok := candidates[0].(map[string]any); ok {
			if content, ok := candidate["content"].(map[string]any); ok {
				if parts, ok := content["parts"].([]any); ok && len(parts) > 0 {
					if part, ok := parts[0].(map[string]any); ok {
						if text, ok := part["text"].(string); ok {
							return text, nil
						}
					}
				}
			}
		}
	}

	// 3. Simple response field
	if resp, ok := raw["response"].(string); ok {
		return resp, nil
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

// ---------------------------------------------------------------------------
// Rate limit: parse 429 response for retry delay
// ---------------------------------------------------------------------------

// parseRetryDelay extracts the retry delay from a 429 response body.
// Looks for Google's RetryInfo detail with retryDelay field.
// Returns the delay to wait, defaulting to 60s + 5s buffer.
func parseRetryDelay(body []byte) time.Duration {
	const defaultDelay = 65 * time.Second // 60s + 5s buffer

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil {
		return defaultDelay
	}

	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			// Parse duration like "30s", "45.123s"
			d := strings.TrimSuffix(detail.RetryDelay, "s")
			if secs, err := strconv.ParseFloat(d, 64); err == nil {
				return time.Duration(secs*1000)*time.Millisecond + 5*time.Second
			}
		}
	}

	return defaultDelay
}

// ---------------------------------------------------------------------------
// Single-shot provider call
// ---------------------------------------------------------------------------

// httpStatusError is returned by callOnce for non-2xx responses so the
// retry loop can distinguish 429 from other statuses.
type httpStatusError struct {
	status int
	body   []byte
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.status, truncate(string(e.body), 500))
}

// callOnce sends one request to the provider and returns the response text.
// It does not retry; the caller owns the attempt budget.
func callOnce(ctx context.Context, prov Provider, systemPrompt, userPrompt string, timeout time.Duration, verbose bool) (string, error) {
	endpoint, headers, body, err := buildHTTPRequest(prov, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if verbose {
		log.Printf("[DEBUG] %s: POST %s (model: %s)", prov.Name, endpoint, prov.Model)
	}

	client := makeHTTPClient(prov.Proxy, timeout)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}

	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &httpStatusError{status: resp.StatusCode, body: respBody}
	}

	return extractResponseText(respBody)
}

// ---------------------------------------------------------------------------
// Prompt construction and response parsing
// ---------------------------------------------------------------------------

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// marshalPayload serializes entries as a pretty JSON object, preserving
// entry order so the model sees keys in a stable sequence.
func marshalPayload(entries []arbfile.Entry) string {
	var buf strings.Builder
	buf.WriteString("{\n")
	for i, e := range entries {
		key, _ := json.Marshal(e.Key)
		val, _ := json.Marshal(e.Value)
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
		if i < len(entries)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("}")
	return buf.String()
}

// buildUserPrompt builds the per-chunk user message.
func buildUserPrompt(entries []arbfile.Entry, srcName, dstName string) string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "Translate the values of this JSON object from %s to %s:\n\n", srcName, dstName)
	msg.WriteString(marshalPayload(entries))
	fmt.Fprintf(&msg, "\n\nReturn ONLY a JSON object with exactly these %d keys, each mapped to its translated value.", len(entries))
	return msg.String()
}

// parseKeyedTranslations extracts a JSON object from the AI response text
// and validates it against the requested keys. A missing key makes the
// whole response malformed (the attempt is retried); extra keys are
// returned to the caller for a warning and otherwise ignored.
func parseKeyedTranslations(content string, keys []string) (map[string]string, []string, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code blocks if present
	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	// The object may be wrapped in prose; take the outermost braces.
	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}

	var translations map[string]string
	if err := json.Unmarshal([]byte(content), &translations); err != nil {
		return nil, nil, fmt.Errorf("failed to parse translation response as JSON object: %w\nResponse: %s", err, truncate(content, 300))
	}

	var missing []string
	for _, key := range keys {
		if v, ok := translations[key]; !ok || v == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("response is missing %d of %d requested keys: %s",
			len(missing), len(keys), truncate(strings.Join(missing, ", "), 200))
	}

	var extra []string
	for key := range translations {
		found := false
		for _, want := range keys {
			if key == want {
				found = true
				break
			}
		}
		if !found {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)

	return translations, extra, nil
}

// ---------------------------------------------------------------------------
// Chunk translation with retry
// ---------------------------------------------------------------------------

// translateChunk sends one chunk and parses the reply, retrying the whole
// request+parse up to the attempt budget with doubling backoff. HTTP 429
// responses wait for the server-indicated delay instead.
func translateChunk(ctx context.Context, entries []arbfile.Entry, systemPrompt string, opts Options) (map[string]string, error) {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}

	srcName := langmeta.Name(opts.SourceLanguage)
	dstName := opts.LanguageName
	if dstName == "" {
		dstName = langmeta.Name(opts.Language)
	}
	userPrompt := buildUserPrompt(entries, srcName, dstName)

	maxAttempts := opts.effectiveMaxRetries()
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if attempt > 0 {
			wait := opts.effectiveRetryBaseDelay() << (attempt - 1)
			if statusErr, ok := lastErr.(*httpStatusError); ok && statusErr.status == http.StatusTooManyRequests {
				wait = parseRetryDelay(statusErr.body)
				if opts.Verbose {
					opts.log("  429 rate limited, waiting %v before retry (attempt %d/%d)", wait, attempt+1, maxAttempts)
				}
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		text, err := callOnce(ctx, opts.Provider, systemPrompt, userPrompt, opts.effectiveTimeout(), opts.Verbose)
		if err != nil {
			lastErr = err
			if opts.Verbose {
				opts.log("  attempt %d/%d failed: %v", attempt+1, maxAttempts, err)
			}
			continue
		}

		translations, extra, err := parseKeyedTranslations(text, keys)
		if err != nil {
			lastErr = err
			if opts.Verbose {
				opts.log("  attempt %d/%d returned malformed content: %v", attempt+1, maxAttempts, err)
			}
			continue
		}

		if len(extra) > 0 {
			opts.logError("Ignoring %d unexpected key(s) in response: %s", len(extra), truncate(strings.Join(extra, ", "), 200))
		}
		return translations, nil
	}

	return nil, fmt.Errorf("exhausted all %d attempts: %w", maxAttempts, lastErr)
}

// splitEntries divides entries into chunks of the given size.
func splitEntries(entries []arbfile.Entry, chunkSize int) [][]arbfile.Entry {
	if chunkSize <= 0 || chunkSize >= len(entries) {
		return [][]arbfile.Entry{entries}
	}
	var chunks [][]arbfile.Entry
	for i := 0; i < len(entries); i += chunkSize {
		end := i + chunkSize
		if end > len(entries) {
			end = len(entries)
		}
		chunks = append(chunks, entries[i:end])
	}
	return chunks
}

// ---------------------------------------------------------------------------
// Per-language and multi-language entry points
// ---------------------------------------------------------------------------

// Task holds one target language ready for translation.
type Task struct {
	// Lang is the target language code.
	Lang string
	// LangName is the human-readable language name.
	LangName string
	// FilePath is the path to write the translated file.
	FilePath string
	// File is the target ARB file (existing content, missing keys allowed).
	File *arbfile.File
	// Source is the base-language payload, in base-file order.
	Source []arbfile.Entry
}

// TranslateEntries translates source entries into opts.Language and returns
// the translated pairs in source order.
func TranslateEntries(ctx context.Context, source []arbfile.Entry, opts Options) ([]arbfile.Entry, error) {
	if len(source) == 0 {
		return nil, nil
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = len(source) // All at once
	}

	systemPrompt := opts.resolvedPrompt()
	chunks := splitEntries(source, chunkSize)
	translated := make(map[string]string, len(source))
	done := 0

	for i, chunk := range chunks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if opts.Verbose {
			opts.log("  Chunk %d/%d (%d keys)", i+1, len(chunks), len(chunk))
		}

		m, err := translateChunk(ctx, chunk, systemPrompt, opts)
		if err != nil {
			return nil, fmt.Errorf("translating chunk %d/%d: %w", i+1, len(chunks), err)
		}
		for k, v := range m {
			translated[k] = v
		}

		done += len(chunk)
		if opts.OnProgress != nil {
			opts.OnProgress(opts.Language, done, len(source))
		}

		// Delay between chunks
		if i < len(chunks)-1 && opts.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.RequestDelay):
			}
		}
	}

	pairs := make([]arbfile.Entry, 0, len(source))
	for _, e := range source {
		pairs = append(pairs, arbfile.Entry{Key: e.Key, Value: translated[e.Key]})
	}
	return pairs, nil
}

// Run translates and saves all tasks sequentially, one language at a time.
// A language that still fails after its retry budget aborts the whole run
// with a TranslationError; its file is not written. Files for languages
// translated before the failure stay on disk, so re-running completes the
// remainder.
func Run(ctx context.Context, tasks []Task, opts Options) error {
	for _, task := range tasks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if len(task.Source) == 0 {
			continue
		}

		taskOpts := opts
		taskOpts.Language = task.Lang
		taskOpts.LanguageName = task.LangName
		if taskOpts.LanguageName == "" {
			taskOpts.LanguageName = langmeta.Name(task.Lang)
		}

		opts.log("Translating %s (%s): %d keys...", task.Lang, taskOpts.LanguageName, len(task.Source))

		pairs, err := TranslateEntries(ctx, task.Source, taskOpts)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TranslationError{Lang: task.Lang, Cause: err}
		}

		task.File.Overlay(pairs)
		if err := task.File.WriteFile(task.FilePath); err != nil {
			return &TranslationError{Lang: task.Lang, Cause: err}
		}
		total, translated, _ := task.File.Stats()
		opts.log("Saved %s (%d/%d translated)", task.FilePath, translated, total)
	}

	return nil
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
