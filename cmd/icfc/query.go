package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/politpatrick/icf-api/export"
	"github.com/politpatrick/icf-api/service"
	"github.com/politpatrick/icf-api/storage"
)

// query answers one lookup; the result is printed as JSON.
type query func(ctx context.Context, q *querier, args []string) (any, error)

type querier struct {
	store *storage.Store
	svc   *service.Static
}

// Node is one code of a subtree printed by "query children".
type Node struct {
	Code     string `json:"code"`
	Title    string `json:"title"`
	Children []Node `json:"children,omitempty"`
}

// DatasetStats summarises a dataset as printed by "query stats".
type DatasetStats struct {
	Source     string `json:"source"`
	Chapters   int    `json:"chapters"`
	Categories int    `json:"categories"`
	Qualifiers int    `json:"qualifiers"`
	Indexed    int    `json:"indexed"`
}

func queryCmd(a *app) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Look up codes in a written dataset",
		Long: `Query reads a dataset from a directory or a raw base URL
(--source, query.source, or compile.out_dir) and prints the answer as
JSON.`,
	}
	cmd.PersistentFlags().StringVar(&source, "source", "", "Dataset directory or base URL")

	run := func(fn query) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			location := source
			if location == "" {
				location = cfg.Query.Source
			}
			if location == "" {
				location = cfg.Compile.OutDir
			}

			store, err := storage.Open(location)
			if err != nil {
				return err
			}
			q := &querier{store: store, svc: service.NewStatic(store, a.logger)}

			ctx := cmd.Context()
			if cfg.Query.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Query.Timeout)
				defer cancel()
			}

			result, err := fn(ctx, q, args)
			if err != nil {
				return err
			}
			data, err := export.Encode(result)
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
	}

	var (
		limit int
		depth int
	)

	search := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Find codes whose texts contain a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, q *querier, args []string) (any, error) {
			return q.svc.SearchICF(ctx, service.SearchRequest{Keyword: args[0], Limit: limit})
		}),
	}
	search.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (default 20, at most 100)")

	children := &cobra.Command{
		Use:   "children <code>",
		Short: "Print the subtree below a code",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, q *querier, args []string) (any, error) {
			if depth < 1 {
				return nil, fmt.Errorf("children: depth must be at least 1")
			}
			return q.subtree(ctx, args[0], depth)
		}),
	}
	children.Flags().IntVar(&depth, "depth", 1, "Number of levels to descend")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "chapters",
			Short: "List the chapters",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, q *querier, _ []string) (any, error) {
				return q.svc.GetICFChapters(ctx)
			}),
		},
		&cobra.Command{
			Use:   "categories <chapter>",
			Short: "List the categories of a chapter",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, q *querier, args []string) (any, error) {
				return q.svc.GetICFCategories(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "code <code>",
			Short: "Print the detail record of a code",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, q *querier, args []string) (any, error) {
				return q.svc.GetICFCodeInfo(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "qualifiers <code>",
			Short: "List the qualifiers applicable to a code",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, q *querier, args []string) (any, error) {
				return q.svc.GetICFQualifiers(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "related <code>",
			Short: "Print the parent, children and siblings of a code",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, q *querier, args []string) (any, error) {
				return q.svc.GetRelatedCodes(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Summarise the dataset",
			Args:  cobra.NoArgs,
			RunE: run(func(ctx context.Context, q *querier, _ []string) (any, error) {
				return q.stats(ctx)
			}),
		},
		search,
		children,
	)

	return cmd
}

// subtree descends depth levels below code.
func (q *querier) subtree(ctx context.Context, code string, depth int) (*Node, error) {
	e, err := q.svc.GetICFCodeInfo(ctx, code)
	if err != nil {
		return nil, err
	}
	node := &Node{Code: e.Code, Title: e.Title}
	if depth == 0 {
		return node, nil
	}
	for _, child := range e.Children {
		n, err := q.subtree(ctx, child, depth-1)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, *n)
	}
	return node, nil
}

func (q *querier) stats(ctx context.Context) (*DatasetStats, error) {
	chapters, err := q.store.Chapters(ctx)
	if err != nil {
		return nil, err
	}
	entities, err := q.store.Entities(ctx)
	if err != nil {
		return nil, err
	}
	index, err := q.store.Index(ctx)
	if err != nil {
		return nil, err
	}

	qualifiers := make(map[string]bool)
	for _, e := range entities {
		for _, qual := range e.Qualifiers {
			qualifiers[qual.Scale+"/"+qual.Code] = true
		}
	}
	return &DatasetStats{
		Source:     q.store.Location(),
		Chapters:   len(chapters),
		Categories: len(entities),
		Qualifiers: len(qualifiers),
		Indexed:    len(index),
	}, nil
}
