package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/bookboost/internal/api"
	"github.com/jackzampolin/bookboost/internal/chapters"
	"github.com/jackzampolin/bookboost/internal/config"
	"github.com/jackzampolin/bookboost/internal/convert"
	"github.com/jackzampolin/bookboost/internal/extract"
	"github.com/jackzampolin/bookboost/internal/prompts"
	"github.com/jackzampolin/bookboost/internal/prompts/chapter_cleanup"
	"github.com/jackzampolin/bookboost/internal/prompts/chapter_titles"
	"github.com/jackzampolin/bookboost/internal/prompts/evaluate"
	"github.com/jackzampolin/bookboost/internal/providers"
	"github.com/jackzampolin/bookboost/internal/types"
)

var (
	extractTitles     []string
	extractTitlesFile string
	extractProvider   string
	extractCleanup    bool
	extractEvaluate   bool
	extractAnalysis   bool
)

// extractOutput is what the extract command prints.
type extractOutput struct {
	File       string                      `json:"file" yaml:"file"`
	Titles     []string                    `json:"titles" yaml:"titles"`
	Analysis   *extract.Analysis           `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Chapters   []types.Chapter             `json:"chapters" yaml:"chapters"`
	Cleaned    []chapters.ProcessedChapter `json:"cleaned,omitempty" yaml:"cleaned,omitempty"`
	Evaluation *types.Evaluation           `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`
}

var extractCmd = &cobra.Command{
	Use:   "extract <manuscript>",
	Short: "Split a manuscript into chapters without a server",
	Long: `Split a local manuscript (txt, md, docx or pdf) into chapters.

Chapter titles come from --title, from a --titles file holding a YAML or
JSON list, or from an LLM provider via --provider. With --provider the
chapters can also be cleaned up (--cleanup) and the extraction scored
(--evaluate).

Examples:
  bookboost extract book.docx --title "Chapter 1" --title "Chapter 2"
  bookboost extract book.pdf --titles titles.yaml --analysis
  bookboost extract book.txt --provider openrouter --cleanup --evaluate -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		doc, err := convert.ExtractText(data, convert.Extension(path))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		titles, err := loadTitles()
		if err != nil {
			return err
		}

		var llm *chapters.Config
		if extractProvider != "" {
			if llm, err = extractLLM(); err != nil {
				return err
			}
		}
		if len(titles) == 0 {
			if llm == nil {
				return fmt.Errorf("chapter titles required: use --title, --titles or --provider")
			}
			if titles, err = chapters.NewTitleExtractor(*llm).ExtractTitles(ctx, doc.Text); err != nil {
				return err
			}
		}
		if (extractCleanup || extractEvaluate) && llm == nil {
			return fmt.Errorf("--cleanup and --evaluate require --provider")
		}

		cfg := config.DefaultConfig().Extraction
		if h, err := getHome(); err == nil {
			if mgr, err := loadConfig(h); err == nil {
				cfg = mgr.Get().Extraction
			}
		}
		result := extract.NewSegmenter(extract.Options{
			ASCIIFold:        cfg.ASCIIFold,
			TocFallbackLines: cfg.TocFallbackLines,
		}).Run(doc.Text, titles)

		out := extractOutput{
			File:     filepath.Base(path),
			Titles:   titles,
			Chapters: result.Chapters,
		}
		if extractAnalysis {
			out.Analysis = &result.Analysis
		}

		final := result.Chapters
		if extractCleanup {
			post := chapters.NewPostProcessor(*llm)
			final = make([]types.Chapter, len(result.Chapters))
			for i, ch := range result.Chapters {
				p := post.PostProcess(ctx, ch)
				out.Cleaned = append(out.Cleaned, p)
				final[i] = types.Chapter{Title: p.Title, Content: p.Content}
			}
		}
		if extractEvaluate {
			eval, err := chapters.NewEvaluator(*llm).Evaluate(ctx, final, doc.Text)
			if err != nil {
				return err
			}
			out.Evaluation = &eval
		}

		return api.Output(out)
	},
}

// loadTitles merges --title flags with the --titles file.
func loadTitles() ([]string, error) {
	titles := append([]string(nil), extractTitles...)
	if extractTitlesFile == "" {
		return titles, nil
	}
	data, err := os.ReadFile(extractTitlesFile)
	if err != nil {
		return nil, err
	}
	var fromFile []string
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("titles file must hold a list of strings: %w", err)
	}
	for _, t := range fromFile {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	return titles, nil
}

// extractLLM builds a collaborator config for --provider from the config file.
func extractLLM() (*chapters.Config, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	h, err := getHome()
	if err != nil {
		return nil, err
	}
	mgr, err := loadConfig(h)
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()

	registry := providers.NewRegistry()
	registry.SetLogger(logger)
	registry.Reload(cfg.ToProviderRegistryConfig())
	client, err := registry.GetLLM(extractProvider)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w (is it enabled with an API key?)", extractProvider, err)
	}

	resolver := prompts.NewResolver(logger)
	chapter_titles.RegisterPrompts(resolver)
	chapter_cleanup.RegisterPrompts(resolver)
	evaluate.RegisterPrompts(resolver)
	resolver.SetOverrides(cfg.PromptOverrides())

	return &chapters.Config{Client: client, Prompts: resolver, Logger: logger}, nil
}

func init() {
	extractCmd.Flags().StringArrayVar(&extractTitles, "title", nil, "Chapter title (repeatable)")
	extractCmd.Flags().StringVar(&extractTitlesFile, "titles", "", "File with a YAML or JSON list of chapter titles")
	extractCmd.Flags().StringVar(&extractProvider, "provider", "", "LLM provider for title extraction, cleanup and evaluation")
	extractCmd.Flags().BoolVar(&extractCleanup, "cleanup", false, "Clean up each chapter with the LLM")
	extractCmd.Flags().BoolVar(&extractEvaluate, "evaluate", false, "Score the extraction with the LLM")
	extractCmd.Flags().BoolVar(&extractAnalysis, "analysis", false, "Include the table of contents analysis")

	rootCmd.AddCommand(extractCmd)
}
