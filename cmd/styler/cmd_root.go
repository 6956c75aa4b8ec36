package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dhamidi/styler/batch"
	"github.com/dhamidi/styler/config"
	"github.com/dhamidi/styler/errs"
	"github.com/dhamidi/styler/java/scanner"
	"github.com/dhamidi/styler/pipeline"
	"github.com/dhamidi/styler/report"
	"github.com/dhamidi/styler/rules"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var (
		classpath      string
		modulePath     string
		configPath     string
		outputFormat   string
		validationOnly bool
		overwrite      bool
		showDiff       bool
		maxConcurrency int
		memoryBudget   int64
		verbosity      int
	)

	cmd := &cobra.Command{
		Use:   "styler [files...]",
		Short: "A Java source formatter",
		Long: `Check Java source files against the configured style and
optionally rewrite them.

Positional arguments are .java files, directories (searched
recursively) or doublestar patterns such as 'src/**/*.java'.

By default the violation report is printed and nothing is rewritten;
use -w to write fixes back and --diff to preview them.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbosity)

			fs := afero.NewOsFs()
			files, err := expandArguments(fs, args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return errs.New(errs.KindUsage, "no .java files matched %s", strings.Join(args, " "))
			}

			var configs []rules.RuleConfig
			engine := rules.NewEngine(rules.DefaultRegistry, rules.WithIsolatedRules())
			if configPath != "" {
				configs, err = config.Load(fs, configPath)
				if err != nil {
					return err
				}
				if err := config.Validate(engine, configs); err != nil {
					return err
				}
			}

			renderer, err := report.DetectRenderer(outputFormat)
			if err != nil {
				return errs.Wrap(errs.KindUsage, err)
			}

			typeRes := rules.TypeResolutionConfig{
				ClasspathRoots:  splitPathList(classpath),
				ModulePathRoots: splitPathList(modulePath),
			}
			if roots := append(append([]string{}, typeRes.ClasspathRoots...), typeRes.ModulePathRoots...); len(roots) > 0 {
				typeRes.Scanner = scanner.New(roots)
			}

			pipe := pipeline.New(pipeline.Options{
				FS:             fs,
				Engine:         engine,
				Configs:        configs,
				TypeResolution: typeRes,
				ValidationOnly: validationOnly,
				Renderer:       renderer,
			})
			processor := batch.NewProcessor(pipe, batch.Options{
				MaxConcurrency: maxConcurrency,
				MemoryBudget:   memoryBudget,
				FS:             fs,
			})

			result := processor.Process(cmd.Context(), files)
			return emit(cmd, fs, result, files, overwrite, showDiff)
		},
	}

	cmd.Flags().StringVar(&classpath, "classpath", "", "classpath roots, separated by the platform path separator")
	cmd.Flags().StringVar(&classpath, "cp", "", "alias for --classpath")
	cmd.Flags().StringVarP(&modulePath, "module-path", "p", "", "module path roots, separated by the platform path separator")
	cmd.Flags().StringVar(&configPath, "config", "", "TOML or YAML configuration file")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", report.FormatAuto, "report format (json, human, auto)")
	cmd.Flags().BoolVar(&validationOnly, "validation-only", false, "analyze without formatting")
	cmd.Flags().BoolVarP(&overwrite, "write", "w", false, "write formatted output back to the files")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print a unified diff instead of rewriting")
	cmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 0, "parallel file limit (0 = derive from memory budget)")
	cmd.Flags().Int64Var(&memoryBudget, "memory-budget", 0, "admission pool in bytes (0 = default)")
	cmd.Flags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity")

	return cmd
}

// emit prints reports and diffs, applies -w, and folds the batch
// outcome into the exit-code contract.
func emit(cmd *cobra.Command, fs afero.Fs, result *batch.Result, files []string, overwrite, showDiff bool) error {
	out := cmd.OutOrStdout()
	violationsFound := false

	for _, file := range files {
		fileResult, ok := result.PerFile[file]
		if !ok {
			continue
		}
		if rep := fileResult.Report; rep != nil && len(rep.Violations) > 0 {
			violationsFound = true
		}
		if len(fileResult.Rendered) > 0 {
			fmt.Fprintf(out, "%s", fileResult.Rendered)
		}

		if !fileResult.Changed {
			continue
		}
		if showDiff {
			diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
				A:        difflib.SplitLines(string(fileResult.Source)),
				B:        difflib.SplitLines(fileResult.NewSource),
				FromFile: file,
				ToFile:   file + " (formatted)",
				Context:  3,
			})
			if err != nil {
				return errs.Wrap(errs.KindInternal, err)
			}
			fmt.Fprint(out, diff)
		}
		if overwrite {
			info, err := fs.Stat(file)
			mode := os.FileMode(0o644)
			if err == nil {
				mode = info.Mode()
			}
			if err := afero.WriteFile(fs, file, []byte(fileResult.NewSource), mode); err != nil {
				return errs.WrapFile(errs.KindIO, file, err)
			}
		}
	}

	for file, err := range result.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", file, err)
	}

	if code := worstExitCode(result, violationsFound); code != errs.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

// worstExitCode maps the batch outcome onto one process exit code:
// hard error kinds dominate, then the violations signal.
func worstExitCode(result *batch.Result, violationsFound bool) int {
	worst := errs.ExitOK
	rank := func(code int) int {
		// Severity order for picking the dominating code.
		switch code {
		case errs.ExitInternal:
			return 5
		case errs.ExitSecurity:
			return 4
		case errs.ExitIO:
			return 3
		case errs.ExitConfig:
			return 2
		case errs.ExitViolations:
			return 1
		default:
			return 0
		}
	}
	for _, err := range result.Errors {
		code := errs.ExitCode(err)
		if rank(code) > rank(worst) {
			worst = code
		}
	}
	if worst == errs.ExitOK && violationsFound {
		worst = errs.ExitViolations
	}
	return worst
}

// splitPathList splits a platform path-separator-delimited list,
// preserving relative entries. An empty value yields an empty list.
func splitPathList(value string) []string {
	if value == "" {
		return nil
	}
	var roots []string
	for _, entry := range strings.Split(value, string(os.PathListSeparator)) {
		if entry != "" {
			roots = append(roots, entry)
		}
	}
	return roots
}
