package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"docchat/internal/chromemdb"
	"docchat/internal/config"
	"docchat/internal/db"
	"docchat/internal/documents"
	"docchat/internal/embedding"
	"docchat/internal/helper"
	"docchat/internal/llmservice"
	"docchat/internal/parser"
	"docchat/internal/rag"
	"docchat/internal/server"
)

var configFilePath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your documents",
	Long: `docchat indexes uploaded documents into a vector store and answers
questions about them with a language model.

Running docchat without a subcommand starts the HTTP server.`,
	Version:       server.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFilePath, "config", config.DefaultConfigPath, "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, ingestCmd, askCmd, syncCmd, exportCmd, importCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Copy files into the upload folder and index them",
	Long: `Copy files into the upload folder and index them. Files that already live
inside the upload folder are indexed in place under their relative path.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question from the indexed documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the index from the upload folder",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the chromem collection to its export file",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the chromem collection with its export file",
	Args:  cobra.NoArgs,
	RunE:  runImport,
}

// app holds the components every command is built from.
type app struct {
	cfg      *config.Config
	store    rag.VectorStore
	embedder embedding.Provider
	library  *documents.Library
	indexer  *rag.Indexer
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if err := helper.SetupLogger(cfg.Log.Level, cfg.Log.Pretty); err != nil {
		return nil, err
	}
	log.Debug().Str("config", configFilePath).Str("store", cfg.VectorStore.Type).
		Str("embedding", cfg.Embedding.Provider).Str("llm", cfg.LLM.Model).Msg("Loaded config")

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	embedder, err := embedding.NewEmbedder(&cfg.Embedding)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("error creating embedder: %w", err)
	}
	chunker, err := parser.NewChunker(cfg.RAG.ChunkStrategy, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		store.Close()
		embedder.Close()
		return nil, err
	}
	library, err := documents.NewLibrary(cfg.Upload.Dir, parser.IsSupported)
	if err != nil {
		store.Close()
		embedder.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		library:  library,
		indexer: rag.NewIndexer(library, store, embedder, chunker,
			rag.WithBatchSize(cfg.Embedding.BatchSize)),
	}, nil
}

func newStore(ctx context.Context, cfg *config.Config) (rag.VectorStore, error) {
	switch cfg.VectorStore.Type {
	case "pgvector":
		store, err := db.NewPgVectorStore(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("error connecting to database: %w", err)
		}
		return store, nil
	default:
		store, err := chromemdb.NewVectorDBManager(&cfg.VectorStore)
		if err != nil {
			return nil, fmt.Errorf("error opening vector store: %w", err)
		}
		return store, nil
	}
}

// newService wires the chat path; it needs a configured LLM.
func (a *app) newService() (*rag.Service, error) {
	llm, err := llmservice.NewClient(&a.cfg.LLM)
	if err != nil {
		return nil, err
	}
	retriever := rag.NewRetriever(a.embedder, a.store)
	return rag.NewService(retriever, rag.NewComposer(llm), a.store, a.library, a.cfg.RAG.RetrievalK), nil
}

func (a *app) chromem() (*chromemdb.VectorDBManager, error) {
	m, ok := a.store.(*chromemdb.VectorDBManager)
	if !ok {
		return nil, errors.New("export and import need vector_store.type chromem")
	}
	return m, nil
}

func (a *app) Close() {
	if err := a.embedder.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing embedder")
	}
	if err := a.store.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing vector store")
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	total := 0
	for _, path := range args {
		n, err := a.ingestFile(ctx, path)
		if err != nil {
			return err
		}
		total += n
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d chunks\n", filepath.Base(path), n)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d file(s), %d chunks\n", len(args), total)
	return nil
}

func (a *app) ingestFile(ctx context.Context, path string) (int, error) {
	if _, ok := a.library.Rel(path); ok {
		return a.indexer.IndexFile(ctx, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return a.indexer.AddDocument(ctx, filepath.Base(path), f)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	service, err := a.newService()
	if err != nil {
		return err
	}
	resp, err := service.Chat(ctx, args[0], nil)
	if err != nil {
		return err
	}
	helper.PrettyPrint(cmd.OutOrStdout(), resp)
	return nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.indexer.Sync(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Synced %d chunks from %s\n", n, a.library.Dir())
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.chromem()
	if err != nil {
		return err
	}
	path, err := m.Export(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported collection to %s\n", path)
	return nil
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.chromem()
	if err != nil {
		return err
	}
	if err := m.Import(ctx); err != nil {
		return err
	}
	n, err := m.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d chunks\n", n)
	return nil
}
