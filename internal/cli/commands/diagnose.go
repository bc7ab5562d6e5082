package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidgumberg/leavelogalone/pkg/compiledb"
	"github.com/davidgumberg/leavelogalone/pkg/config"
	"github.com/davidgumberg/leavelogalone/pkg/detector"
	"github.com/davidgumberg/leavelogalone/pkg/extract"
	"github.com/davidgumberg/leavelogalone/pkg/logdb"
	"github.com/davidgumberg/leavelogalone/pkg/matcher"
	"github.com/davidgumberg/leavelogalone/pkg/parser"
	"github.com/davidgumberg/leavelogalone/pkg/scope"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	project projectOptions

	Verbose   bool
	File      string
	SampleLog string
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <src-dir>",
		Short: "Diagnose common project setup issues",
		Long: `Diagnose common project setup issues.

This command checks a project for the problems that stop extraction:
- Project root existence
- Config file syntax and structure
- Compilation database presence and contents
- Translation units selected by extensions and excludes
- A sample extraction of one translation unit
- Pattern compilation of the sampled messages
- The runtime log prefix, when a sample log is given

Example:
  leavelogalone diagnose ~/bitcoin
  leavelogalone diagnose -v ~/bitcoin --file src/init.cpp
  leavelogalone diagnose ~/bitcoin --sample-log ~/.bitcoin/debug.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(commandContext(cmd), cmd.OutOrStdout(), args[0], opts)
		},
	}

	opts.project.register(cmd)
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Translation unit to sample (default the first one)")
	cmd.Flags().StringVar(&opts.SampleLog, "sample-log", "", "Runtime log file to test the prefix pattern against")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, root string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check project root
	result := checkRoot(root)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Load config
	cfg, result := checkConfig(ctx, root, opts)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Check compilation database
	compileDB, result := checkCompileDB(cfg)
	results = append(results, result)

	if compileDB != nil {
		// 4. Check translation units
		cmds, result := checkTranslationUnits(cfg, compileDB, opts)
		results = append(results, result)

		if len(cmds) > 0 {
			// 5. Extract one translation unit
			sample, result := checkSampleExtraction(ctx, cfg, cmds[0], opts)
			results = append(results, result)

			// 6. Compile its patterns
			if sample != nil {
				results = append(results, checkPatterns(cfg, sample, opts))
			}
		}
	}

	// 7. Check runtime log prefix
	if opts.SampleLog != "" {
		results = append(results, checkPrefixFormat(ctx, cfg, opts)...)
	}

	// 8. Check webhooks configuration
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkRoot(root string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Project Root",
	}

	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Directory not found: %s", root)
		result.Suggests = []string{"Check the path to the source checkout"}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access directory: %v", err)
		result.Suggests = []string{"Check directory permissions"}
		return result
	}
	if !info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a file, not a directory"
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s", root)
	return result
}

func checkConfig(ctx context.Context, root string, opts *DiagnoseOptions) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config",
	}

	cfg, used, err := opts.project.load(ctx, root, nil)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to load config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
				"Unknown keys are rejected; check field names for typos",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	if used == "" {
		result.Message = fmt.Sprintf("No %s, using defaults", config.DefaultFileName)
	} else {
		result.Message = fmt.Sprintf("Loaded %s", used)
	}
	result.Details = []string{
		fmt.Sprintf("Build dir: %s", cfg.BuildPath()),
		fmt.Sprintf("Extensions: %s", strings.Join(cfg.Extensions, " ")),
		fmt.Sprintf("Exclude: %s", strings.Join(cfg.ExcludePatterns(), " ")),
	}
	return cfg, result
}

func checkCompileDB(cfg *config.Config) (*compiledb.Database, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Compilation Database",
	}

	db, err := compiledb.Load(cfg.BuildPath())
	if err != nil {
		result.Status = "error"
		result.Message = err.Error()
		result.Suggests = []string{
			"Configure the project with: cmake -B build -DCMAKE_EXPORT_COMPILE_COMMANDS=ON",
			"Or set build_dir in " + config.DefaultFileName,
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("%d entries in %s", db.Len(), db.Path())
	if db.Len() == 0 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("%s has no entries", db.Path())
	}
	return db, result
}

func checkTranslationUnits(cfg *config.Config, db *compiledb.Database, opts *DiagnoseOptions) ([]compiledb.Command, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Translation Units",
	}

	excluder, err := scope.NewExcluder(cfg.Root, cfg.ExcludePatterns())
	if err != nil {
		result.Status = "error"
		result.Message = err.Error()
		return nil, result
	}

	planOpts := extract.PlanOptions{Extensions: cfg.Extensions, Excluder: excluder}
	if opts.File != "" {
		planOpts.Files, err = resolveFiles(db, cfg.Root, []string{opts.File})
	}
	var cmds []compiledb.Command
	if err == nil {
		cmds, err = extract.Plan(db, planOpts)
	}
	if err != nil {
		result.Status = "error"
		result.Message = err.Error()
		result.Suggests = []string{"Paths given with --file must appear in compile_commands.json"}
		return nil, result
	}

	if len(cmds) == 0 {
		result.Status = "warning"
		result.Message = "No translation units selected"
		result.Suggests = []string{
			fmt.Sprintf("Check extensions (%s) and exclude patterns", strings.Join(cfg.Extensions, " ")),
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("%d of %d translation units selected", len(cmds), db.Len())
	if opts.Verbose {
		for i, c := range cmds {
			if i == 5 {
				result.Details = append(result.Details, fmt.Sprintf("... and %d more", len(cmds)-5))
				break
			}
			result.Details = append(result.Details, c.File)
		}
	}
	return cmds, result
}

func checkSampleExtraction(ctx context.Context, cfg *config.Config, cmd compiledb.Command, opts *DiagnoseOptions) (*logdb.Database, DiagnosticResult) {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Sample Extraction: %s", relPath(cfg.Root, cmd.File)),
	}

	runner, err := extract.NewRunner(extract.Options{
		Root:                 cfg.Root,
		Workers:              1,
		CompilePatterns:      cfg.CompilePatterns,
		JoinAdjacentLiterals: cfg.JoinAdjacentLiterals,
		Logger:               zap.NewNop(),
	})
	if err != nil {
		result.Status = "error"
		result.Message = err.Error()
		return nil, result
	}

	db := logdb.New()
	report, err := runner.Run(ctx, []compiledb.Command{cmd}, db)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Extraction interrupted: %v", err)
		return nil, result
	}
	if len(report.Failures) > 0 {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed: %v", report.Failures[0].Err)
		result.Suggests = []string{"Check that the file and its include directories exist"}
		return nil, result
	}

	if db.Len() == 0 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("No log messages found (%d call sites, %d skipped)", report.Sites, report.Skipped)
		result.Suggests = []string{"Try another translation unit with --file"}
		return db, result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("%d messages from %d call sites (%d skipped)", db.Len(), report.Sites, report.Skipped)
	if opts.Verbose {
		result.Details = append(result.Details, "Arguments: "+strings.Join(compiledb.CleanArgs(cmd.Arguments), " "))
		for i, m := range db.Messages() {
			if i == 5 {
				break
			}
			result.Details = append(result.Details, fmt.Sprintf("%s %q", m.Macro(), m.Fmt()))
		}
	}
	return db, result
}

func checkPatterns(cfg *config.Config, db *logdb.Database, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Pattern Compilation",
	}

	if !cfg.CompilePatterns {
		result.Status = "warning"
		result.Message = "Pattern compilation is disabled"
		result.Suggests = []string{"Set compile_patterns: true to store regexes in the database"}
		return result
	}

	m := matcher.New(db)
	if skipped := m.Skipped(); len(skipped) > 0 {
		result.Status = "error"
		result.Message = fmt.Sprintf("%d patterns do not compile", len(skipped))
		for _, s := range skipped {
			result.Details = append(result.Details, s.Err.Error())
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("%d distinct patterns compile", m.Len())
	if opts.Verbose {
		for i, msg := range db.Messages() {
			if i == 5 {
				break
			}
			if pattern, ok := msg.Pattern(); ok {
				result.Details = append(result.Details, truncate(pattern, 80))
			}
		}
	}
	return result
}

func checkPrefixFormat(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	result := DiagnosticResult{
		Check: "Log Prefix",
	}

	if cfg.Match.AutoDetect() {
		d := detector.New(detector.WithSampleSize(10))
		detResult, err := d.DetectFromFile(ctx, opts.SampleLog)
		if err != nil {
			result.Status = "error"
			result.Message = err.Error()
			return []DiagnosticResult{result}
		}
		if !detResult.HasMatch() {
			result.Status = "warning"
			result.Message = "Prefix is auto-detected but no known format matches the sample"
			result.Suggests = []string{"Set match.prefix_pattern and match.timestamp_layout explicitly"}
			return []DiagnosticResult{result}
		}
		best := detResult.BestMatch()
		result.Status = "ok"
		result.Message = fmt.Sprintf("Detected format: %s", best.Format.Name)
		result.Details = []string{
			fmt.Sprintf("Pattern: %s", best.Format.PatternStr),
			fmt.Sprintf("Layout: %s", best.Format.Layout),
		}
		return []DiagnosticResult{result}
	}

	if cfg.Match.CompiledPrefix() == nil {
		result.Status = "ok"
		result.Message = "No prefix pattern; whole lines are matched"
		return []DiagnosticResult{result}
	}

	result.Status = "ok"
	result.Message = "Prefix pattern is valid"
	result.Details = []string{
		fmt.Sprintf("Pattern: %s", cfg.Match.PrefixPattern),
		fmt.Sprintf("Layout: %s", cfg.Match.TimestampLayout),
	}
	results := []DiagnosticResult{result}

	testResult := DiagnosticResult{
		Check: fmt.Sprintf("Prefix Test: %s", opts.SampleLog),
	}

	lines, err := headLines(opts.SampleLog, 10)
	if err != nil {
		testResult.Status = "warning"
		testResult.Message = fmt.Sprintf("Cannot read file: %v", err)
		return append(results, testResult)
	}

	stripper := parser.NewPrefixStripper(cfg.Match.CompiledPrefix(), cfg.Match.TimestampLayout)
	matchCount := 0
	var sampleMatch string
	var sampleFail string
	for _, line := range lines {
		_, ts, ok := stripper.Strip(line)
		if ok && (cfg.Match.CompiledPrefix().NumSubexp() == 0 || !ts.IsZero()) {
			matchCount++
			if sampleMatch == "" {
				sampleMatch = line
			}
		} else if sampleFail == "" {
			sampleFail = line
		}
	}

	switch {
	case matchCount == 0:
		testResult.Status = "error"
		testResult.Message = "Prefix pattern matches no lines in log file"
		testResult.Suggests = []string{
			"The prefix pattern may not match your log format",
			"Use 'leavelogalone detect " + opts.SampleLog + "' to find the correct pattern",
		}
		if sampleFail != "" {
			testResult.Details = []string{
				"Sample line that didn't match:",
				truncate(sampleFail, 80),
			}
		}

		// Auto-detect and suggest
		d := detector.New(detector.WithSampleSize(10))
		detResult, _ := d.DetectFromFile(ctx, opts.SampleLog)
		if detResult != nil && detResult.HasMatch() {
			best := detResult.BestMatch()
			testResult.Suggests = append(testResult.Suggests,
				fmt.Sprintf("Detected format: %s", best.Format.Name),
				fmt.Sprintf("Suggested pattern: %s", best.Format.PatternStr),
				fmt.Sprintf("Suggested layout: %s", best.Format.Layout),
			)
		}
	case matchCount < len(lines)/2:
		testResult.Status = "warning"
		testResult.Message = fmt.Sprintf("Prefix pattern matches only %d/%d sample lines", matchCount, len(lines))
		if sampleFail != "" {
			testResult.Details = []string{
				"Sample line that didn't match:",
				truncate(sampleFail, 80),
			}
		}
	default:
		testResult.Status = "ok"
		testResult.Message = fmt.Sprintf("Prefix pattern matches %d/%d sample lines", matchCount, len(lines))
		if opts.Verbose && sampleMatch != "" {
			testResult.Details = []string{
				"Sample match:",
				truncate(sampleMatch, 80),
			}
		}
	}

	return append(results, testResult)
}

// headLines returns up to n non-empty lines from the start of path.
func headLines(path string, n int) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided log path
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(lines) < n {
		if line := scanner.Text(); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== leavelogalone Project Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	// Summary
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before running extraction.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nProject is usable but has warnings.")
	} else {
		fmt.Fprintln(w, "\nProject looks good!")
	}
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", name),
		}

		issues := []string{}
		warnings := []string{}

		// Check URL
		if wh.URL == "" {
			issues = append(issues, "Missing url")
		} else {
			u, err := url.Parse(wh.URL)
			if err != nil {
				issues = append(issues, fmt.Sprintf("Invalid URL: %v", err))
			} else if u.Scheme != "http" && u.Scheme != "https" {
				issues = append(issues, fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme))
			} else if u.Host == "" {
				issues = append(issues, "URL must have a host")
			}
		}

		// Check if token looks like an unexpanded env var
		if strings.HasPrefix(wh.Token, "$") {
			warnings = append(warnings, fmt.Sprintf("Token appears to be an unresolved env var: %s", wh.Token))
		}

		if len(issues) > 0 {
			result.Status = "error"
			result.Message = fmt.Sprintf("%d configuration issue(s)", len(issues))
			result.Details = issues
		} else if len(warnings) > 0 {
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
			result.Details = warnings
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
			if opts.Verbose {
				result.Details = []string{
					fmt.Sprintf("URL: %s", wh.URL),
					fmt.Sprintf("Timeout: %s", wh.Timeout),
				}
				if wh.Token != "" {
					result.Details = append(result.Details, "Token: configured")
				}
			}
		}

		results = append(results, result)
	}

	// Optionally test webhook connectivity
	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			name := wh.Name
			if name == "" {
				name = wh.URL
			}

			result := checkWebhookConnectivity(wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	// Any response (even 4xx/5xx) means the server is reachable
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}

func relPath(root, path string) string {
	if rel, ok := strings.CutPrefix(path, root+string(os.PathSeparator)); ok {
		return rel
	}
	return path
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
