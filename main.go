// arbkit — translate Flutter ARB localization files with AI providers.
//
// The translate command merges command-line key=value entries into the base
// language file, sends the merged payload to an AI provider once per target
// language, and writes each translation back into the matching app_<lang>.arb
// file, preserving key order and unrelated keys.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/l10n-tools/arbkit/arbfile"
	"github.com/l10n-tools/arbkit/config"
	"github.com/l10n-tools/arbkit/i18n"
	"github.com/l10n-tools/arbkit/langmeta"
	"github.com/l10n-tools/arbkit/settings"
	"github.com/l10n-tools/arbkit/translate"
)

// Version information (set via ldflags at build time).
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorCyan+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

func main() {
	i18n.Init("")

	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arbkit",
		Short: "ARB translation kit for Flutter localization files",
		Long: `arbkit translates Flutter ARB (Application Resource Bundle) files
between languages using AI text-generation providers.

It reads app_<lang>.arb files from a directory, merges new entries given
on the command line into the base language, and produces or updates the
translation files for every other language found in the directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newTranslateCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("arbkit %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	indir       string
	outdir      string
	baseLang    string
	outLangs    []string
	provider    string
	model       string
	apiKey      string
	baseURL     string
	prompt      string
	chunkSize   int
	maxRetries  int
	retryDelay  time.Duration
	timeout     time.Duration
	proxy       string
	onlyMissing bool
	dryRun      bool
	verbose     bool
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate [key=value ...]",
		Short: "Translate ARB files into all target languages",
		Long: `Translate merges key=value entries from the command line into the base
language ARB file, then translates the merged entries into every target
language and writes the results back to app_<lang>.arb files.

Target languages are discovered from existing app_<lang>.arb files in the
input directory, or given explicitly with --out-langs. Keys already present
in a target file are overwritten with fresh translations unless
--only-missing is set.

Examples:
  arbkit translate --indir lib/l10n
  arbkit translate --indir lib/l10n greeting="Hello, {name}!" bye="Bye"
  arbkit translate --out-langs ru,de,fr --provider google
  arbkit translate --only-missing --dry-run`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, a, args)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&a.indir, "indir", "i", ".", "directory with app_<lang>.arb files")
	fl.StringVarP(&a.outdir, "outdir", "o", "", "output directory (default: same as --indir)")
	fl.StringVarP(&a.baseLang, "lang", "l", "", "base language code (default: en)")
	fl.StringSliceVar(&a.outLangs, "out-langs", nil, "target language codes (default: discovered from --indir)")
	fl.StringVarP(&a.provider, "provider", "p", "", "AI provider: "+strings.Join(translate.ProviderIDs(), ", "))
	fl.StringVarP(&a.model, "model", "m", "", "model name (default: provider-specific)")
	fl.StringVarP(&a.apiKey, "api-key", "k", "", "API key (overrides env and stored credentials)")
	fl.StringVar(&a.baseURL, "base-url", "", "custom API base URL")
	fl.StringVar(&a.prompt, "prompt", "", "custom system prompt ({{targetLang}} placeholder supported)")
	fl.IntVar(&a.chunkSize, "chunk-size", 0, "keys per API request (0 = all at once)")
	fl.IntVar(&a.maxRetries, "max-retries", 0, "attempts per request (default: 3)")
	fl.DurationVar(&a.retryDelay, "retry-delay", 0, "initial retry backoff, doubles per attempt (default: 1s)")
	fl.DurationVarP(&a.timeout, "timeout", "t", 0, "per-request timeout (default: provider-specific)")
	fl.StringVar(&a.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	fl.BoolVar(&a.onlyMissing, "only-missing", false, "translate only keys missing or empty in the target file")
	fl.BoolVarP(&a.dryRun, "dry-run", "n", false, "show what would be translated without calling the API")
	fl.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")

	return cmd
}

// parseEntryPairs parses positional key=value arguments.
func parseEntryPairs(args []string) ([]arbfile.Entry, error) {
	var pairs []arbfile.Entry
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid entry %q: expected key=value", arg)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid entry %q: empty key", arg)
		}
		if strings.HasPrefix(key, "@") {
			return nil, fmt.Errorf("invalid entry %q: metadata keys cannot be set from the command line", arg)
		}
		pairs = append(pairs, arbfile.Entry{Key: key, Value: value})
	}
	return pairs, nil
}

// applyConfig fills unset translate flags from a .arbkit.yaml file.
func applyConfig(cmd *cobra.Command, a *translateArgs, cfg *config.File) {
	if cfg == nil {
		return
	}
	if !cmd.Flags().Changed("indir") && cfg.ArbDir != "" {
		a.indir = cfg.ArbDir
	}
	if a.outdir == "" {
		a.outdir = cfg.OutDir
	}
	if a.baseLang == "" {
		a.baseLang = cfg.SourceLang
	}
	if len(a.outLangs) == 0 {
		a.outLangs = cfg.Languages
	}
	if a.provider == "" {
		a.provider = cfg.Provider
	}
	if a.model == "" {
		a.model = cfg.Model
	}
	if a.prompt == "" {
		a.prompt = cfg.Prompt
	}
	if a.chunkSize == 0 {
		a.chunkSize = cfg.ChunkSize
	}
}

func runTranslate(cmd *cobra.Command, a translateArgs, args []string) error {
	cliPairs, err := parseEntryPairs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(a.indir)
	if err != nil {
		return err
	}
	applyConfig(cmd, &a, cfg)

	if a.baseLang == "" {
		a.baseLang = "en"
	}
	if a.outdir == "" {
		a.outdir = a.indir
	}
	if a.provider == "" {
		a.provider = translate.ProviderOpenAI
	}
	if !langmeta.IsValid(a.baseLang) {
		return fmt.Errorf("invalid base language %q", a.baseLang)
	}
	for _, lang := range a.outLangs {
		if !langmeta.IsValid(lang) {
			return fmt.Errorf("invalid target language %q", lang)
		}
	}

	// Resolve provider configuration up front so a missing API key or model
	// fails before any file is touched or request sent.
	apiKey := settings.ResolveAPIKey(a.provider, a.apiKey)
	baseURL := a.baseURL
	if baseURL == "" {
		baseURL = settings.GetBaseURL(a.provider)
	}
	prov, err := translate.ResolveProvider(a.provider, baseURL, apiKey, a.model, a.proxy, a.timeout)
	if err != nil {
		return err
	}

	// Working set: explicit --out-langs, otherwise every app_<lang>.arb in
	// the input directory.
	discovered, err := arbfile.Discover(a.indir)
	if err != nil {
		return err
	}
	workingSet := a.outLangs
	if len(workingSet) == 0 {
		workingSet = discovered
	}
	if len(workingSet) == 0 && len(cliPairs) == 0 {
		logInfo(i18n.T("Nothing to translate."))
		return nil
	}

	// Merge command-line entries into the base file. Flags win over file
	// content; new keys are appended at the end.
	baseFile, err := arbfile.LoadOrEmpty(arbfile.PathFor(a.indir, a.baseLang), a.baseLang)
	if err != nil {
		return err
	}
	baseFile.Overlay(cliPairs)
	payload := baseFile.Entries()

	var targets []string
	for _, lang := range workingSet {
		if langmeta.Canonical(lang) != langmeta.Canonical(a.baseLang) {
			targets = append(targets, lang)
		}
	}

	if len(payload) == 0 {
		logInfo(i18n.T("Nothing to translate."))
		return nil
	}

	logInfo(i18n.T("Provider: %s (%s), Model: %s"), prov.Name, prov.ID, prov.Model)
	logInfo(i18n.T("Base language: %s"), a.baseLang)
	if len(targets) > 0 {
		logInfo(i18n.T("Languages: %s"), strings.Join(targets, ", "))
	}

	if a.dryRun {
		logInfo("%d key(s) in base payload", len(payload))
		for _, lang := range targets {
			src, err := taskSource(a, lang, payload)
			if err != nil {
				return err
			}
			logInfo("  %s: %d key(s) to translate", lang, len(src))
		}
		logInfo(i18n.T("Dry run: no API calls made."))
		return nil
	}

	// Write the merged base file first so the run is resumable: a later
	// translation failure leaves the base entries on disk.
	basePath := arbfile.PathFor(a.outdir, a.baseLang)
	outBase, err := arbfile.LoadOrEmpty(basePath, a.baseLang)
	if err != nil {
		return err
	}
	outBase.Overlay(payload)
	if err := outBase.WriteFile(basePath); err != nil {
		return err
	}
	if a.verbose {
		logInfo("Saved %s (%d keys)", basePath, len(payload))
	}

	tasks := make([]translate.Task, 0, len(targets))
	pending := 0
	for _, lang := range targets {
		src, err := taskSource(a, lang, payload)
		if err != nil {
			return err
		}
		outPath := arbfile.PathFor(a.outdir, lang)
		existing, err := arbfile.LoadOrEmpty(outPath, lang)
		if err != nil {
			return err
		}
		tasks = append(tasks, translate.Task{
			Lang:     lang,
			LangName: langmeta.Name(lang),
			FilePath: outPath,
			File:     existing,
			Source:   src,
		})
		if len(src) > 0 {
			pending++
		}
	}

	if pending == 0 {
		logSuccess(i18n.T("All translations are complete!"))
		return nil
	}

	opts := translate.Options{
		Provider:       prov,
		SourceLanguage: a.baseLang,
		ChunkSize:      a.chunkSize,
		MaxRetries:     a.maxRetries,
		RetryBaseDelay: a.retryDelay,
		Timeout:        a.timeout,
		SystemPrompt:   a.prompt,
		OnLog:          logInfo,
		OnError:        logWarning,
		OnProgress: func(lang string, done, total int) {
			if a.verbose {
				logInfo("  %s: %d/%d", lang, done, total)
			}
		},
		Verbose: a.verbose,
	}

	if err := translate.Run(context.Background(), tasks, opts); err != nil {
		return err
	}

	logSuccess(i18n.N("Updated %d ARB file", "Updated %d ARB files", pending+1), pending+1)
	return nil
}

// taskSource returns the payload for one target language: the full base
// payload, or with --only-missing just the keys absent or empty in the
// target file read from the input directory.
func taskSource(a translateArgs, lang string, payload []arbfile.Entry) ([]arbfile.Entry, error) {
	if !a.onlyMissing {
		return payload, nil
	}
	existing, err := arbfile.LoadOrEmpty(arbfile.PathFor(a.indir, lang), lang)
	if err != nil {
		return nil, err
	}
	var src []arbfile.Entry
	for _, e := range payload {
		if v, ok := existing.Get(e.Key); !ok || v == "" {
			src = append(src, e)
		}
	}
	return src, nil
}

// ---------------------------------------------------------------------------
// status
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var indir string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show translation statistics for a directory of ARB files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(indir)
		},
	}

	cmd.Flags().StringVarP(&indir, "indir", "i", ".", "directory with app_<lang>.arb files")

	return cmd
}

func runStatus(indir string) error {
	codes, err := arbfile.Discover(indir)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		logInfo(i18n.T("Nothing to translate."))
		return nil
	}

	fmt.Printf("%sARB files in %s%s\n\n", colorBold, indir, colorReset)
	for _, code := range codes {
		f, err := arbfile.ParseFile(arbfile.PathFor(indir, code))
		if err != nil {
			return err
		}
		total, translated, pct := f.Stats()
		meta := langmeta.Resolve(code)
		flag := meta.Flag
		if flag == "" {
			flag = "  "
		}
		fmt.Printf("  %s %-8s %-20s %4d/%-4d %6.1f%%\n",
			flag, code, meta.Name, translated, total, pct)
	}
	return nil
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored provider credentials",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var provider, apiKey, baseURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key for a provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := translate.DefaultProviders()[provider]; !ok {
				return fmt.Errorf("unknown provider %q (valid: %s)", provider, strings.Join(translate.ProviderIDs(), ", "))
			}

			if apiKey == "" {
				fmt.Fprintf(os.Stderr, "Enter API key for %s: ", provider)
				reader := bufio.NewReader(os.Stdin)
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("reading API key: %w", err)
				}
				apiKey = strings.TrimSpace(line)
			}
			if apiKey == "" {
				return fmt.Errorf("API key cannot be empty")
			}

			if err := settings.SetAPIKey(provider, apiKey); err != nil {
				return err
			}
			if baseURL != "" {
				if err := settings.SetBaseURL(provider, baseURL); err != nil {
					return err
				}
			}
			logSuccess(i18n.T("API key stored for %s"), provider)
			return nil
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", translate.ProviderOpenAI, "provider ID")
	cmd.Flags().StringVarP(&apiKey, "api-key", "k", "", "API key (prompted if omitted)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "custom API base URL to store")

	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := settings.Load()
			if len(store) == 0 {
				logInfo(i18n.T("No credentials stored."))
				return nil
			}
			fmt.Printf("%sStored credentials%s (%s)\n\n", colorBold, colorReset, settings.FilePath())
			for _, id := range translate.ProviderIDs() {
				info, ok := store[id]
				if !ok {
					continue
				}
				line := fmt.Sprintf("  %-14s %s", id, settings.MaskKey(info.Key))
				if info.BaseURL != "" {
					line += "  " + info.BaseURL
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
			} else if err := settings.Remove(provider); err != nil {
				return err
			}
			logSuccess(i18n.T("Credentials removed."))
			return nil
		},
	}

	cmd.Flags().StringVarP(&provider, "provider", "p", "", "provider ID (default: remove all)")

	return cmd
}
